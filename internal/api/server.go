// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the HTTP facade of the relay.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytrelay/internal/api/middleware"
	"github.com/ManuGH/ytrelay/internal/config"
	"github.com/ManuGH/ytrelay/internal/download"
	"github.com/ManuGH/ytrelay/internal/jobs"
	"github.com/ManuGH/ytrelay/internal/log"
	"github.com/ManuGH/ytrelay/internal/ytdlp"
)

// InfoFetcher looks up video metadata. *ytdlp.Runner implements it.
type InfoFetcher interface {
	VideoInfo(ctx context.Context, url, cookies string) (ytdlp.VideoInfo, error)
}

// JobRunner submits and cancels download jobs. *download.Manager implements it.
type JobRunner interface {
	Submit(ctx context.Context, req download.Request) (jobs.Job, error)
	Cancel(ctx context.Context, id string) error
}

// JobReader reads job records. *jobs.Registry implements it.
type JobReader interface {
	Get(ctx context.Context, id string) (jobs.Job, error)
}

// Prober serves the health endpoints. *health.Manager implements it.
type Prober interface {
	ServeHealth(w http.ResponseWriter, r *http.Request)
	ServeReady(w http.ResponseWriter, r *http.Request)
}

// Deps are the collaborators of the HTTP facade.
type Deps struct {
	Info   InfoFetcher
	Runner JobRunner
	Jobs   JobReader
	Health Prober
}

// Server routes HTTP requests to the job and metadata services.
type Server struct {
	cfg    config.AppConfig
	deps   Deps
	now    func() time.Time
	logger zerolog.Logger
}

// Option customises a Server.
type Option func(*Server)

// WithClock overrides the clock used by /api/test.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server. Every dependency in deps except Health is required.
func New(cfg config.AppConfig, deps Deps, opts ...Option) (*Server, error) {
	if deps.Info == nil || deps.Runner == nil || deps.Jobs == nil {
		return nil, errors.New("api: info, runner and jobs dependencies are required")
	}
	if _, err := LoadOpenAPI(context.Background()); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		now:    time.Now,
		logger: log.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler builds the router with the full middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	stack := middleware.StackConfig{AllowedOrigins: s.cfg.CORS.AllowedOrigins}
	if s.cfg.Telemetry.Enabled {
		stack.TracingService = "ytrelay"
	}
	if s.cfg.RateLimit.Enabled {
		stack.RateLimit = &middleware.RateLimitConfig{
			RequestLimit:   s.cfg.RateLimit.Requests,
			WindowSize:     s.cfg.RateLimit.Window,
			TrustedProxies: s.cfg.RateLimit.TrustedProxies,
		}
	}
	middleware.ApplyStack(r, stack)

	r.Get("/api/test", s.handleTest)
	r.Get("/api/openapi.yaml", s.handleOpenAPI)
	r.Post("/api/video-info", s.handleVideoInfo)
	r.Post("/api/download", s.handleDownload)
	r.Route("/api/download/{id}", func(r chi.Router) {
		r.Delete("/", s.handleCancel)
		r.Get("/progress", s.handleProgress)
		r.Get("/file", s.handleFile)
	})
	r.Handle("/downloads/*", http.StripPrefix("/downloads", s.secureFileServer()))

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}
	if s.cfg.Server.MetricsAddr == "" {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
