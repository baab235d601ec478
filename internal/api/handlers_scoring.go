package api

import (
	"fmt"
	"net/http"
	"strconv"

	"statadvisor/domain/assumption"
	"statadvisor/domain/core"
	"statadvisor/domain/scoring"
	"statadvisor/internal/report"
	"statadvisor/internal/severity"

	"github.com/go-chi/chi/v5"
)

type assessRequest struct {
	Checks        assumption.Checks `json:"checks"`
	SampleSize    int               `json:"sample_size"`
	MinConfidence *int              `json:"min_confidence,omitempty"`
}

type assessResponse struct {
	Assessments []report.Finding     `json:"assessments"`
	Worst       *severity.Assessment `json:"worst,omitempty"`
	Filtered    int                  `json:"filtered"`
}

type rankRequest struct {
	Checks     assumption.Checks `json:"checks"`
	SampleSize int               `json:"sample_size"`
	Limit      int               `json:"limit,omitempty"`
}

type rankResponse struct {
	CatalogVersion core.CatalogVersion `json:"catalog_version"`
	SampleSize     int                 `json:"sample_size"`
	Ranking        scoring.Ranking     `json:"ranking"`
}

func validateSampleSize(n int) error {
	if n < 0 {
		return core.NewValidationError("sample_size", "must not be negative")
	}
	return nil
}

// assess classifies checks and keeps those meeting the confidence threshold
func (s *Server) assess(checks assumption.Checks, sampleSize, threshold int) assessResponse {
	all := severity.Assess(checks, sampleSize)
	kept := severity.FilterByConfidence(all, threshold)

	resp := assessResponse{
		Assessments: report.Findings(kept, s.activeCatalog().RemediesFor),
		Filtered:    len(all) - len(kept),
	}
	if worst, ok := severity.Worst(kept); ok {
		resp.Worst = &worst
	}
	return resp
}

func (s *Server) confidenceThreshold(r *http.Request, override *int) (int, error) {
	if override != nil {
		return *override, nil
	}
	if raw := r.URL.Query().Get("min_confidence"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, core.NewValidationError("min_confidence", "must be an integer")
		}
		return v, nil
	}
	return s.config.MinConfidence, nil
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateSampleSize(req.SampleSize); err != nil {
		s.writeError(w, r, err)
		return
	}
	threshold, err := s.confidenceThreshold(r, req.MinConfidence)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.assess(req.Checks, req.SampleSize, threshold))
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateSampleSize(req.SampleSize); err != nil {
		s.writeError(w, r, err)
		return
	}

	ranking := s.memo.Rank(req.Checks, req.SampleSize)
	if req.Limit > 0 {
		ranking = ranking.Top(req.Limit)
	}
	writeJSON(w, http.StatusOK, rankResponse{
		CatalogVersion: s.memo.Scorer().Version(),
		SampleSize:     req.SampleSize,
		Ranking:        ranking,
	})
}

func (s *Server) handleScoreTest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "test")
	def, ok := s.activeCatalog().Lookup(name)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s", core.ErrTestNotFound, name))
		return
	}

	var req rankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateSampleSize(req.SampleSize); err != nil {
		s.writeError(w, r, err)
		return
	}

	score := s.memo.Scorer().ScoreTest(def, req.Checks, req.SampleSize)
	writeJSON(w, http.StatusOK, scoring.RankedTest{Test: def.Name, TestScore: score})
}
