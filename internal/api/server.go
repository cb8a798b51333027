// Package api serves the HTTP interface for running and inspecting
// backtests.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handler "github.com/newthinker/sextant/internal/api/handler/api"
	"github.com/newthinker/sextant/internal/api/job"
	"github.com/newthinker/sextant/internal/api/middleware"
	"github.com/newthinker/sextant/internal/api/response"
	"github.com/newthinker/sextant/internal/backtest"
	"github.com/newthinker/sextant/internal/metrics"
	"github.com/newthinker/sextant/internal/storage/run"
)

// Server represents the HTTP server for sextant.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	auth       func(http.Handler) http.Handler
	backtests  *handler.BacktestHandler
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	JobTTL      time.Duration
	MaxJobs     int
	MetricsPath string // empty disables /metrics
}

// Dependencies are the components the handlers serve.
type Dependencies struct {
	Service  handler.Service
	Runs     run.Store
	Defaults backtest.Params
	Metrics  *metrics.Registry // optional
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Service == nil || deps.Runs == nil {
		return nil, errors.New("server needs a service and a run store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
		auth:   middleware.APIKeyAuth(cfg.APIKey),
	}

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger.Named("http"))(h)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     h,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: job streams stay open until the job ends
		IdleTimeout: 60 * time.Second,
	}

	s.setupRoutes(cfg, deps)
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	jobs := job.NewStore(cfg.MaxJobs, cfg.JobTTL)
	s.backtests = handler.NewBacktestHandler(jobs, deps.Service, deps.Defaults, deps.Metrics, s.logger.Named("jobs"))
	streams := handler.NewStreamHandler(jobs, s.logger.Named("stream"))
	runs := handler.NewRunsHandler(deps.Runs)
	cmp := handler.NewCompareHandler(deps.Service)

	s.handle("POST /api/v1/backtests", s.backtests.Create)
	s.handle("POST /api/v1/sweeps", s.backtests.CreateSweep)
	s.handle("GET /api/v1/jobs", s.backtests.ListJobs)
	s.handle("GET /api/v1/jobs/{id}", s.backtests.GetJob)
	s.handle("GET /api/v1/jobs/{id}/stream", streams.Stream)
	s.handle("GET /api/v1/runs", runs.List)
	s.handle("GET /api/v1/runs/{id}", runs.Get)
	s.handle("DELETE /api/v1/runs/{id}", runs.Delete)
	s.handle("POST /api/v1/compare", cmp.Compare)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.Handle(pattern, s.auth(fn))
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for running jobs until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)
	if werr := s.backtests.Wait(ctx); werr != nil {
		s.logger.Warn("jobs still running at shutdown", zap.Error(werr))
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
