package migration

import (
	"context"

	"statadvisor/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.1.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in order. Every step is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createTestCatalogsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create test_catalogs table")
	}

	if err := r.addTestCountColumn(ctx, db); err != nil {
		return errors.Wrap(err, "failed to add test_catalogs columns")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createTestCatalogsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS test_catalogs (
			name VARCHAR(255) PRIMARY KEY,
			version CHAR(64) NOT NULL,
			document JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

// test_count was added after the first release
func (r *MigrationRunner) addTestCountColumn(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'test_catalogs' AND column_name = 'test_count'
			) THEN
				ALTER TABLE test_catalogs ADD COLUMN test_count INTEGER NOT NULL DEFAULT 0;
				UPDATE test_catalogs SET test_count = jsonb_array_length(document->'tests');
			END IF;
		END $$;
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_test_catalogs_version ON test_catalogs(version);
		CREATE INDEX IF NOT EXISTS idx_test_catalogs_updated_at ON test_catalogs(updated_at DESC);
	`)
	return err
}
