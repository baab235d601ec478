package postgres

import (
	"context"
	"os"
	"testing"

	"statadvisor/domain/catalog"
	"statadvisor/domain/core"
	"statadvisor/internal/errors"
	"statadvisor/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping database test: TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(context.Background(), db))
	return db
}

func TestCatalogRepository_SaveLoadList(t *testing.T) {
	db := openTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	name := "repo_test_" + core.NewID().String()[:8]
	t.Cleanup(func() { db.Exec(`DELETE FROM test_catalogs WHERE name = $1`, name) })

	cat := &catalog.Catalog{
		Name: name,
		Tests: []catalog.TestDefinition{{
			Name: "mann_whitney_u", Category: catalog.CategoryNonparametric,
			Assumptions: []string{"independence"},
			SampleSize:  catalog.SampleSizeRequirement{Min: 10, Optimal: 20}, BasePower: 0.72,
		}},
		Impact: catalog.ImpactTable{"independence": {Severe: []string{catalog.AllTests}}},
	}

	record, err := repo.Save(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, cat.Version(), record.Version)
	assert.Equal(t, 1, record.TestCount)

	loaded, err := repo.Load(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, cat.Version(), loaded.Version())

	cat.Tests[0].BasePower = 0.75
	record, err = repo.Save(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, cat.Version(), record.Version, "save replaces the stored document")

	records, err := repo.List(ctx)
	require.NoError(t, err)
	found := false
	for _, r := range records {
		found = found || r.Name == name
	}
	assert.True(t, found)

	_, err = repo.Load(ctx, name+"_missing")
	assert.ErrorIs(t, err, core.ErrCatalogNotFound)
}

func TestCatalogRepository_SaveRequiresName(t *testing.T) {
	repo := NewCatalogRepository(nil)
	_, err := repo.Save(context.Background(), &catalog.Catalog{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestCatalogRepository_DriverFailuresAreDatabaseErrors(t *testing.T) {
	// nothing listens on port 1, so every query fails at connect time
	db, err := sqlx.Open("postgres", "postgres://statadvisor@127.0.0.1:1/statadvisor?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	_, err = repo.List(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))

	_, err = repo.Load(ctx, "default")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}
