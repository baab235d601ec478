// Package api exposes the severity classifier, the test scorer and analysis
// sessions over HTTP.
package api

import (
	"net/http"

	"statadvisor/internal"
	"statadvisor/internal/errors"
	"statadvisor/internal/session"
	"statadvisor/internal/suitability"
	"statadvisor/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Config holds API behaviour settings
type Config struct {
	// MinConfidence is the default confidence threshold for assessments
	MinConfidence int
	// AccessLog enables chi's request logger
	AccessLog bool
}

// Server routes HTTP requests to the scoring engine
type Server struct {
	router   *chi.Mux
	memo     *suitability.Memo
	sessions *session.Store
	checks   ports.CheckSource
	catalogs ports.CatalogRepository
	config   Config
	logger   *internal.Logger
}

// Option configures optional server collaborators
type Option func(*Server)

// WithCheckSource enables session refresh from a statistics backend
func WithCheckSource(source ports.CheckSource) Option {
	return func(s *Server) { s.checks = source }
}

// WithCatalogRepository enables lookups of stored catalogs by name
func WithCatalogRepository(repo ports.CatalogRepository) Option {
	return func(s *Server) { s.catalogs = repo }
}

// NewServer creates a server around a memoized scorer and a session store
func NewServer(memo *suitability.Memo, sessions *session.Store, config Config, opts ...Option) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		memo:     memo,
		sessions: sessions,
		config:   config,
		logger:   internal.DefaultLogger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	if s.config.AccessLog {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errors.NotFound("route "+r.URL.Path))
	})

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Catalog
		r.Get("/catalog", s.handleActiveCatalog)
		r.Get("/catalog/{name}", s.handleCatalogByName)
		r.Get("/catalogs", s.handleListCatalogs)

		// Stateless scoring
		r.Post("/assess", s.handleAssess)
		r.Post("/rank", s.handleRank)
		r.Post("/score/{test}", s.handleScoreTest)

		// Sessions
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Put("/checks/{assumption}", s.handlePutCheck)
			r.Put("/sample-size", s.handleSetSampleSize)
			r.Post("/refresh", s.handleRefreshSession)
			r.Get("/ranking", s.handleSessionRanking)
			r.Get("/assessment", s.handleSessionAssessment)
			r.Get("/report", s.handleSessionReport)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	scorer := s.memo.Scorer()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"catalog":         scorer.Catalog().Name,
		"catalog_version": scorer.Version().String(),
		"sessions":        s.sessions.Len(),
		"memo":            s.memo.Stats(),
		"checks_backend":  s.checks != nil,
	})
}
