// Package api provides the HTTP server and routing.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/graphops/class-registry/internal/api/handlers"
	"github.com/graphops/class-registry/internal/config"
	"github.com/graphops/class-registry/internal/metrics"
	"github.com/graphops/class-registry/internal/registry"
)

// Server represents the HTTP server.
type Server struct {
	config   *config.Config
	registry *registry.Registry
	router   chi.Router
	server   *http.Server
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, reg *registry.Registry, logger *slog.Logger) *Server {
	s := &Server{
		config:   cfg,
		registry: reg,
		logger:   logger,
		metrics:  metrics.New(),
	}

	s.setupRouter()
	return s
}

// Metrics returns the metrics instance for recording custom metrics.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// setupRouter configures the HTTP router.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Create handlers
	h := handlers.New(s.registry, s.metrics, s.logger)

	// Health checks
	r.Get("/", h.HealthCheck)
	r.Get("/health", h.HealthCheck)
	r.Get("/health/live", h.Liveness)
	r.Get("/health/ready", h.Readiness)

	// Metrics endpoint
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	// API documentation
	r.Get("/docs", handleSwaggerUI)
	r.Get("/openapi.yaml", handleOpenAPISpec)

	// Classes
	r.Get("/classes", h.ListClasses)
	r.Post("/classes", h.CreateClass)
	r.Get("/classes/{class}", h.GetClass)
	r.Put("/classes/{class}", h.ReplaceClass)
	r.Delete("/classes/{class}", h.DeleteClass)
	r.Post("/classes/{class}/validate", h.ValidateProperties)

	// Entities
	r.Post("/entities", h.CreateEntity)
	r.Get("/entities/{id}", h.GetEntity)
	r.Get("/entities/{id}/compatibility/{class}", h.CheckCompatibility)
	r.Post("/entities/{id}/switch", h.SwitchClass)

	s.router = r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
	}

	s.logger.Info("starting server", slog.String("address", addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the HTTP router for testing.
func (s *Server) Router() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Address returns the server address.
func (s *Server) Address() string {
	return fmt.Sprintf("http://%s", s.config.Address())
}
