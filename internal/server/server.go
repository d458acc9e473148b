// Package server provides the HTTP API for the index registry.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/horago"
	"github.com/hupe1980/horago/internal/config"
)

// Server is the HTTP server for the registry API.
type Server struct {
	registry *horago.Registry
	metrics  *horago.BasicMetricsCollector
	config   *config.ServerConfig
	logger   *horago.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. metrics may be nil.
func NewServer(
	registry *horago.Registry,
	metrics *horago.BasicMetricsCollector,
	cfg *config.ServerConfig,
	logger *horago.Logger,
) *Server {
	if logger == nil {
		logger = horago.NoopLogger()
	}
	s := &Server{
		registry: registry,
		metrics:  metrics,
		config:   cfg,
		logger:   logger,
	}
	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/indexes", s.handleList)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/indexes/{name}", func(r chi.Router) {
			r.Put("/", s.handleCreate)
			r.Delete("/", s.handleDrop)
			r.Get("/stats", s.handleStats)
			r.Post("/vectors", s.handleAdd)
			r.Post("/build", s.handleBuild)
			r.Post("/search", s.handleSearch)
			r.Post("/dump", s.handleDump)
			r.Post("/load", s.handleLoad)
		})
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
