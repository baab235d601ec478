package ports

import (
	"context"

	"statadvisor/domain/catalog"
	"statadvisor/domain/core"
)

// CatalogRecord describes a stored catalog without its content
type CatalogRecord struct {
	Name      string              `json:"name"`
	Version   core.CatalogVersion `json:"version"`
	TestCount int                 `json:"test_count"`
	UpdatedAt core.Timestamp      `json:"updated_at"`
}

// CatalogRepository defines the interface for named catalog storage
type CatalogRepository interface {
	// Save inserts or replaces the catalog stored under cat.Name
	Save(ctx context.Context, cat *catalog.Catalog) (*CatalogRecord, error)

	// Load returns the named catalog, or an error wrapping core.ErrCatalogNotFound
	Load(ctx context.Context, name string) (*catalog.Catalog, error)

	// List returns every stored catalog ordered by name
	List(ctx context.Context) ([]CatalogRecord, error)
}
