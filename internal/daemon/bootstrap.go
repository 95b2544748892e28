// SPDX-License-Identifier: MIT

// Package daemon wires the relay together and owns its lifecycle.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/ytrelay/internal/api"
	"github.com/ManuGH/ytrelay/internal/config"
	"github.com/ManuGH/ytrelay/internal/download"
	"github.com/ManuGH/ytrelay/internal/health"
	"github.com/ManuGH/ytrelay/internal/jobs"
	"github.com/ManuGH/ytrelay/internal/log"
	"github.com/ManuGH/ytrelay/internal/telemetry"
	"github.com/ManuGH/ytrelay/internal/ytdlp"
)

// Runtime is a fully wired relay ready to Run.
type Runtime struct {
	App       *App
	Registry  *jobs.Registry
	Downloads *download.Manager
	Handler   http.Handler
}

// Run blocks until ctx is cancelled or a server fails.
func (r *Runtime) Run(ctx context.Context) error { return r.App.Run(ctx) }

// Bootstrap prepares directories, opens the job store, recovers interrupted
// jobs and assembles the HTTP stack. Resources opened here are released by
// the manager's shutdown hooks, or immediately when Bootstrap fails.
func Bootstrap(ctx context.Context, cfg config.AppConfig) (_ *Runtime, err error) {
	logger := log.WithComponent("daemon")
	logger.Info().
		Str("version", cfg.Version).
		Str("listen", cfg.Server.ListenAddr).
		Str("store", cfg.Jobs.Store).
		Msg("Starting ytrelay")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks: %w", err)
	}

	provider, err := telemetry.NewProvider(ctx, telemetry.FromAppConfig(cfg))
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry initialization failed, continuing without tracing")
		provider = nil
	}

	store, err := jobs.OpenStore(ctx, cfg.Jobs)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("open job store: %w", err)
	}
	defer func() {
		if err != nil {
			_ = store.Close()
			_ = provider.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	registry := jobs.NewRegistry(store, cfg.Jobs.Retention)
	if _, err := registry.Recover(ctx); err != nil {
		logger.Warn().Err(err).Msg("could not recover interrupted jobs")
	}

	runner := ytdlp.NewRunner(cfg.YTDLP)
	downloads := download.NewManager(registry, runner, download.Options{
		Dir:           cfg.Downloads.Dir,
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		MaxPending:    cfg.Jobs.MaxPending,
		MaxRuntime:    cfg.Jobs.MaxRuntime,
	})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBinaryChecker("ytdlp", runner.Binary()))
	hm.RegisterChecker(health.NewDirChecker("downloads_dir", cfg.Downloads.Dir))
	hm.RegisterChecker(health.NewDirChecker("cookie_dir", cfg.YTDLP.CookieDir))
	if pinger, ok := store.(jobs.Pinger); ok {
		hm.RegisterChecker(health.NewPingChecker("job_store", pinger.Ping))
	}

	srv, err := api.New(cfg, api.Deps{
		Info:   runner,
		Runner: downloads,
		Jobs:   registry,
		Health: hm,
	})
	if err != nil {
		return nil, fmt.Errorf("build api: %w", err)
	}
	handler := srv.Handler()

	deps := Deps{
		Logger:      logger,
		APIHandler:  handler,
		MetricsAddr: cfg.Server.MetricsAddr,
	}
	if cfg.Server.MetricsAddr != "" {
		deps.MetricsHandler = promhttp.Handler()
	}
	mgr, err := NewManager(cfg.Server, deps)
	if err != nil {
		return nil, err
	}

	// LIFO: running jobs stop first, then the store, then the exporter.
	mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	mgr.RegisterShutdownHook("job_store", func(context.Context) error { return store.Close() })
	mgr.RegisterShutdownHook("downloads", downloads.Shutdown)

	sweep := cfg.Jobs.SweepInterval
	if sweep <= 0 {
		sweep = cfg.Jobs.Retention
	}
	app := NewApp(logger, mgr, Task{
		Name: "job_sweeper",
		Run:  func(ctx context.Context) error { return registry.Run(ctx, sweep) },
	})

	return &Runtime{
		App:       app,
		Registry:  registry,
		Downloads: downloads,
		Handler:   handler,
	}, nil
}

// WaitForShutdown returns a context cancelled on SIGINT or SIGTERM.
func WaitForShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
