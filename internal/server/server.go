// Package server exposes the Newton minimizer over HTTP and JSON-RPC 2.0.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/copyleftdev/newtonopt/internal/config"
	apierrors "github.com/copyleftdev/newtonopt/internal/errors"
	"github.com/copyleftdev/newtonopt/internal/logging"
	"github.com/copyleftdev/newtonopt/internal/optimization/functions"
)

// Server implements the HTTP and JSON-RPC server for the minimization
// service. Runs execute synchronously inside the request and are kept in
// memory afterwards.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *functions.Registry
	runs     *runStore
	metrics  *metrics
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	registry        *functions.Registry
	metricsRegistry *prometheus.Registry
}

// WithFunctions replaces the default function registry.
func WithFunctions(r *functions.Registry) Option {
	return func(o *serverOptions) { o.registry = r }
}

// WithMetricsRegistry sets the prometheus registry the server's collectors
// are registered with and /metrics serves.
func WithMetricsRegistry(r *prometheus.Registry) Option {
	return func(o *serverOptions) { o.metricsRegistry = r }
}

// NewServer creates a new server instance with the given config and logger.
func NewServer(cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := serverOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = functions.Default()
	}
	if o.metricsRegistry == nil {
		o.metricsRegistry = defaultRegistry()
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: o.registry,
		runs:     newRunStore(cfg.HTTP.MaxRuns),
	}
	s.metrics = newMetrics(o.metricsRegistry, func() float64 { return float64(s.runs.len()) })
	return s
}

// Handler returns the complete router: middleware, API routes, health
// check and metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(apierrors.RecoveryMiddleware(s.logger))
	r.Use(apierrors.ErrorHandler(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Debug("Health check")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", s.metrics.handler())

	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the API and JSON-RPC routes on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/minimize", s.handleMinimize)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)
		r.Get("/functions", s.handleFunctions)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// requestContext bounds a request by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.HTTP.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.cfg.HTTP.RequestTimeout)
}

// handleMinimize handles POST /api/v1/minimize. It answers 200 with the run
// for a converged minimization and 422 with the stored run for a failed one.
func (s *Server) handleMinimize(w http.ResponseWriter, r *http.Request) {
	var req MinimizeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		apierrors.Write(w, apierrors.WithStatus(fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	run, err := s.minimize(ctx, &req)
	if err != nil {
		apierrors.Write(w, err)
		return
	}
	apierrors.WriteJSON(w, runStatusCode(run), run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteJSON(w, http.StatusOK, s.runs.list())
}

// handleGetRun handles GET /api/v1/runs/{id}.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, ok := s.runs.get(id)
	if !ok {
		apierrors.Write(w, errRunNotFound(id))
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, run)
}

// handleDeleteRun handles DELETE /api/v1/runs/{id}.
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.runs.delete(id) {
		apierrors.Write(w, errRunNotFound(id))
		return
	}
	logging.FromContext(r.Context()).Info("Run deleted", zap.String("run_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// handleFunctions handles GET /api/v1/functions.
func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteJSON(w, http.StatusOK, s.registry.Definitions())
}

func errRunNotFound(id string) error {
	return apierrors.WithStatus(fmt.Errorf("run %q not found", id), http.StatusNotFound)
}

// NewHTTPServer wraps Handler in an http.Server configured from cfg.
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTP.Port),
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.HTTP.WriteTimeout,
		IdleTimeout:       s.cfg.HTTP.IdleTimeout,
	}
}

// Close drops all stored runs.
func (s *Server) Close() error {
	for _, run := range s.runs.list() {
		s.runs.delete(run.ID)
	}
	return nil
}
