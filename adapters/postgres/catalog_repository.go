package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"statadvisor/domain/catalog"
	"statadvisor/domain/core"
	"statadvisor/internal/errors"
	"statadvisor/ports"

	"github.com/jmoiron/sqlx"
)

// catalogRepository implements ports.CatalogRepository for PostgreSQL
type catalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new PostgreSQL catalog repository
func NewCatalogRepository(db *sqlx.DB) ports.CatalogRepository {
	return &catalogRepository{db: db}
}

type catalogRow struct {
	Name      string    `db:"name"`
	Version   string    `db:"version"`
	TestCount int       `db:"test_count"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r catalogRow) record() ports.CatalogRecord {
	return ports.CatalogRecord{
		Name:      r.Name,
		Version:   core.CatalogVersion(r.Version),
		TestCount: r.TestCount,
		UpdatedAt: core.NewTimestamp(r.UpdatedAt),
	}
}

// Save upserts the catalog document and its version fingerprint
func (r *catalogRepository) Save(ctx context.Context, cat *catalog.Catalog) (*ports.CatalogRecord, error) {
	if cat == nil || cat.Name == "" {
		return nil, core.NewValidationError("name", "catalog name is required")
	}

	document, err := json.Marshal(cat)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal catalog: %w", err)
	}

	var row catalogRow
	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO test_catalogs (name, version, test_count, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE
		SET version = EXCLUDED.version,
			test_count = EXCLUDED.test_count,
			document = EXCLUDED.document,
			updated_at = NOW()
		RETURNING name, version, test_count, updated_at
	`, cat.Name, cat.Version().String(), len(cat.Tests), document).StructScan(&row)
	if err != nil {
		return nil, errors.DatabaseError(fmt.Sprintf("failed to save catalog %s", cat.Name), err)
	}

	record := row.record()
	return &record, nil
}

// Load retrieves a catalog by name
func (r *catalogRepository) Load(ctx context.Context, name string) (*catalog.Catalog, error) {
	var document []byte
	err := r.db.QueryRowContext(ctx, `SELECT document FROM test_catalogs WHERE name = $1`, name).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrCatalogNotFound, name)
		}
		return nil, errors.DatabaseError(fmt.Sprintf("failed to load catalog %s", name), err)
	}

	var cat catalog.Catalog
	if err := json.Unmarshal(document, &cat); err != nil {
		return nil, fmt.Errorf("%w: stored catalog %s: %v", core.ErrInvalidCatalog, name, err)
	}
	return &cat, nil
}

// List returns stored catalog summaries ordered by name
func (r *catalogRepository) List(ctx context.Context) ([]ports.CatalogRecord, error) {
	var rows []catalogRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT name, version, test_count, updated_at
		FROM test_catalogs
		ORDER BY name
	`)
	if err != nil {
		return nil, errors.DatabaseError("failed to list catalogs", err)
	}

	records := make([]ports.CatalogRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}
