// Package api exposes the simulator over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/llm"
	"github.com/Veraticus/digital-twin/internal/simulation"
)

// Simulator runs simulations.
type Simulator interface {
	Run(ctx context.Context, p simulation.Params, f campaign.Filter) (*simulation.Result, error)
}

// Parser turns campaign descriptions into filters.
type Parser interface {
	Parse(ctx context.Context, text string) (llm.ParseResult, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	sim      Simulator
	parser   Parser
	logger   *slog.Logger
	runs     *runStore
	defaults simulation.Params
}

// Option configures a Server.
type Option func(*Server)

// WithParser enables description parsing. Without a parser, requests that
// need one are answered with 503.
func WithParser(p Parser) Option {
	return func(s *Server) { s.parser = p }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithDefaults sets the parameters a simulate request starts from.
func WithDefaults(p simulation.Params) Option {
	return func(s *Server) { s.defaults = p }
}

// WithRetainedRuns sets how many recent runs are kept for twin lookups.
func WithRetainedRuns(n int) Option {
	return func(s *Server) { s.runs = newRunStore(n) }
}

// NewServer creates a server around sim.
func NewServer(sim Simulator, opts ...Option) *Server {
	s := &Server{
		sim:      sim,
		defaults: simulation.DefaultParams(),
		runs:     newRunStore(defaultRetainedRuns),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = common.LoggerOrDefault(s.logger)
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Post("/parse", s.handleParse)
		r.Post("/simulate", s.handleSimulate)
		r.Get("/runs/{run_id}/twins/{customer_id}", s.handleTwin)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
