package api

import (
	"fmt"
	"net/http"

	"statadvisor/domain/catalog"
	"statadvisor/domain/core"
	"statadvisor/ports"

	"github.com/go-chi/chi/v5"
)

type catalogResponse struct {
	*catalog.Catalog
	Version core.CatalogVersion `json:"version"`
	Active  bool                `json:"active"`
}

func (s *Server) activeCatalog() *catalog.Catalog {
	return s.memo.Scorer().Catalog()
}

func (s *Server) handleActiveCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.activeCatalog()
	writeJSON(w, http.StatusOK, catalogResponse{Catalog: cat, Version: s.memo.Scorer().Version(), Active: true})
}

func (s *Server) handleCatalogByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if active := s.activeCatalog(); active.Name == name {
		writeJSON(w, http.StatusOK, catalogResponse{Catalog: active, Version: s.memo.Scorer().Version(), Active: true})
		return
	}
	if s.catalogs == nil {
		s.writeError(w, r, fmt.Errorf("%w: %s", core.ErrCatalogNotFound, name))
		return
	}

	cat, err := s.catalogs.Load(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Catalog: cat, Version: cat.Version()})
}

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	active := s.activeCatalog()
	records := []ports.CatalogRecord{}
	if s.catalogs != nil {
		stored, err := s.catalogs.List(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		records = stored
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active": ports.CatalogRecord{
			Name:      active.Name,
			Version:   s.memo.Scorer().Version(),
			TestCount: len(active.Tests),
		},
		"stored": records,
	})
}
