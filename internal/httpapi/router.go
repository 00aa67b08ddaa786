// Package httpapi wires the HTTP surface of the journal service.
// It keeps handlers thin, delegating record rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tinoosan/journal/internal/service/journal"
	"github.com/tinoosan/journal/internal/storage"
)

// Server wires handlers and middleware using Chi.
type Server struct {
	svc      journal.Service
	deposits DepositReader
	ready    storage.ReadyChecker
	auth     AuthConfig
	origins  []string
	log      *slog.Logger
	rt       *chi.Mux
}

// Option configures optional collaborators of the server.
type Option func(*Server)

// WithDeposits exposes GET /v1/deposits backed by d.
func WithDeposits(d DepositReader) Option { return func(s *Server) { s.deposits = d } }

// WithReadyChecker makes /readyz report rc.
func WithReadyChecker(rc storage.ReadyChecker) Option { return func(s *Server) { s.ready = rc } }

// WithAuth sets how callers are authenticated.
func WithAuth(cfg AuthConfig) Option { return func(s *Server) { s.auth = cfg } }

// WithAllowedOrigins enables CORS for the listed origins.
func WithAllowedOrigins(origins []string) Option { return func(s *Server) { s.origins = origins } }

// New constructs the HTTP server with routes and middleware.
// The logger is used by request logging and panic recovery.
func New(svc journal.Service, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{svc: svc, log: logger, rt: chi.NewRouter()}
	for _, opt := range opts {
		opt(s)
	}

	s.rt.Use(chimw.RequestID)
	s.rt.Use(requestLogger(logger))
	s.rt.Use(recoverer(logger))
	s.rt.Use(metricsMiddleware)
	if len(s.origins) > 0 {
		s.rt.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", CallerHeader},
			MaxAge:         300,
		}))
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	s.rt.Group(func(r chi.Router) {
		r.Use(authenticate(s.auth))
		r.Post("/v1/entries", s.createEntry)
		r.Put("/v1/entries", s.updateEntry)
		r.Delete("/v1/entries", s.deleteEntry)
		if s.deposits != nil {
			r.Get("/v1/deposits", s.getDeposit)
		}
	})
	// Read-only lookups need no caller identity.
	s.rt.Get("/v1/entries", s.getEntry)
	s.rt.Get("/v1/addresses", s.getAddress)
	// Health (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
