// Package loader loads test catalogs from the bundled defaults or from
// YAML, JSON and spreadsheet files.
package loader

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"statadvisor/adapters/excel"
	"statadvisor/domain/catalog"
	"statadvisor/domain/core"
	"statadvisor/internal"
	"statadvisor/internal/errors"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *catalog.Catalog
	defaultErr     error
)

// Default returns the bundled catalog. The result is shared; treat it as read-only.
func Default() (*catalog.Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(defaultCatalogYAML, FormatYAML)
	})
	return defaultCatalog, defaultErr
}

// Format is a catalog file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// FormatFromPath infers the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unsupported catalog file type: %s", path))
}

// LoadFile reads, decodes and sanitizes a catalog file
func LoadFile(path string) (*catalog.Catalog, error) {
	cat, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return finish(cat, path)
}

// ReadFile reads and decodes a catalog file without validating it
func ReadFile(path string) (*catalog.Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	if format == FormatXLSX {
		cat, err := excel.ReadCatalogWorkbook(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read catalog workbook %s", path)
		}
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog file %s", path)
	}
	cat, err := decode(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode catalog file %s", path)
	}
	return cat, nil
}

// Parse decodes and sanitizes catalog bytes
func Parse(data []byte, format Format) (*catalog.Catalog, error) {
	cat, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	return finish(cat, string(format))
}

func decode(data []byte, format Format) (*catalog.Catalog, error) {
	var cat catalog.Catalog
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidCatalog, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidCatalog, err)
		}
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("cannot decode catalog format %q from bytes", format))
	}
	return &cat, nil
}

// finish drops unscoreable entries and logs every issue found, so one bad
// entry never prevents the rest of the catalog from loading.
func finish(cat *catalog.Catalog, source string) (*catalog.Catalog, error) {
	if cat.Name == "" {
		cat.Name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}

	for _, issue := range cat.Validate() {
		if !issue.Fatal {
			internal.DefaultLogger.Warn("catalog %s: %s", cat.Name, issue)
		}
	}

	clean, dropped := cat.Sanitize()
	for _, issue := range dropped {
		internal.DefaultLogger.Warn("catalog %s: dropping entry: %s", cat.Name, issue)
	}

	if len(clean.Tests) == 0 {
		return nil, fmt.Errorf("%w: catalog %s has no scoreable tests", core.ErrInvalidCatalog, cat.Name)
	}
	return clean, nil
}

// Encode renders a catalog in the given text format
func Encode(cat *catalog.Catalog, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(cat)
	case FormatJSON:
		return json.MarshalIndent(cat, "", "  ")
	}
	return nil, errors.InvalidInput(fmt.Sprintf("cannot encode catalog format %q to bytes", format))
}
