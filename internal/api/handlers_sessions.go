package api

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"statadvisor/domain/assumption"
	"statadvisor/domain/core"
	"statadvisor/internal/report"
	"statadvisor/internal/session"
	"statadvisor/internal/severity"

	"github.com/go-chi/chi/v5"
)

var errChecksDisabled = stderrors.New("no assumption check backend is configured")

type createSessionRequest struct {
	SampleSize int               `json:"sample_size"`
	DatasetID  string            `json:"dataset_id,omitempty"`
	Checks     assumption.Checks `json:"checks,omitempty"`
}

type sampleSizeRequest struct {
	SampleSize *int `json:"sample_size"`
}

type sessionRankingResponse struct {
	SessionID core.SessionID `json:"session_id"`
	rankResponse
}

func sessionID(r *http.Request) (core.SessionID, error) {
	id, err := core.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	return id, nil
}

// withSession resolves the {id} parameter and loads the session
func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionID(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		sess, err := s.sessions.Get(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var datasetID core.DatasetID
	if strings.TrimSpace(req.DatasetID) != "" {
		id, err := core.ParseDatasetID(req.DatasetID)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
			return
		}
		datasetID = id
	}

	sess, err := s.sessions.Create(req.SampleSize, datasetID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Checks) > 0 {
		if sess, err = s.sessions.MergeChecks(sess.ID, req.Checks); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	w.Header().Set("Location", "/api/sessions/"+sess.ID.String())
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess session.Session) {
		writeJSON(w, http.StatusOK, sess)
	})(w, r)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutCheck(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var result assumption.CheckResult
	if err := decodeJSON(w, r, &result); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.sessions.PutCheck(id, chi.URLParam(r, "assumption"), result)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSetSampleSize(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req sampleSizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.SampleSize == nil {
		s.writeError(w, r, core.NewValidationError("sample_size", "is required"))
		return
	}

	sess, err := s.sessions.SetSampleSize(id, *req.SampleSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess session.Session) {
		if s.checks == nil {
			s.writeError(w, r, errChecksDisabled)
			return
		}
		if sess.DatasetID == "" {
			s.writeError(w, r, fmt.Errorf("%w: session has no dataset_id to refresh from", core.ErrInvalidInput))
			return
		}

		checks, err := s.checks.Fetch(r.Context(), sess.DatasetID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		updated, err := s.sessions.MergeChecks(sess.ID, checks)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.logger.Info("refreshed session %s with %d checks from dataset %s", sess.ID, len(checks), sess.DatasetID)
		writeJSON(w, http.StatusOK, updated)
	})(w, r)
}

func (s *Server) handleSessionRanking(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess session.Session) {
		writeJSON(w, http.StatusOK, sessionRankingResponse{
			SessionID: sess.ID,
			rankResponse: rankResponse{
				CatalogVersion: s.memo.Scorer().Version(),
				SampleSize:     sess.SampleSize,
				Ranking:        s.memo.Rank(sess.Checks, sess.SampleSize),
			},
		})
	})(w, r)
}

func (s *Server) handleSessionAssessment(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess session.Session) {
		threshold, err := s.confidenceThreshold(r, nil)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.assess(sess.Checks, sess.SampleSize, threshold))
	})(w, r)
}

func (s *Server) handleSessionReport(w http.ResponseWriter, r *http.Request) {
	s.withSession(func(w http.ResponseWriter, r *http.Request, sess session.Session) {
		threshold, err := s.confidenceThreshold(r, nil)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		assessments := severity.FilterByConfidence(severity.Assess(sess.Checks, sess.SampleSize), threshold)
		rep := report.Build(s.memo.Rank(sess.Checks, sess.SampleSize), assessments, s.activeCatalog().RemediesFor, sess.SampleSize)

		switch format := r.URL.Query().Get("format"); format {
		case "", "md", "markdown":
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(rep.Markdown()))
		case "html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write(rep.HTML())
		case "json":
			writeJSON(w, http.StatusOK, rep)
		default:
			s.writeError(w, r, fmt.Errorf("%w: unsupported report format %q", core.ErrInvalidInput, format))
		}
	})(w, r)
}
