// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/ytrelay/internal/validate"
)

// Validate checks the resolved configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("server.listen", cfg.Server.ListenAddr)
	if cfg.Server.MetricsAddr != "" {
		v.ListenAddr("server.metrics_listen", cfg.Server.MetricsAddr)
	}
	v.NonNegativeDuration("server.read_timeout", cfg.Server.ReadTimeout)
	v.NonNegativeDuration("server.write_timeout", cfg.Server.WriteTimeout)
	v.PositiveDuration("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.NonNegative("server.max_connections", cfg.Server.MaxConnections)
	if cfg.Server.BodyLimit <= 0 {
		v.AddError("server.body_limit", "value must be positive", cfg.Server.BodyLimit)
	}

	if cfg.RateLimit.Enabled {
		v.Positive("ratelimit.requests", cfg.RateLimit.Requests)
		v.PositiveDuration("ratelimit.window", cfg.RateLimit.Window)
	}

	v.NotEmpty("downloads.dir", cfg.Downloads.Dir)
	v.NotEmpty("ytdlp.binary", cfg.YTDLP.Binary)
	v.NotEmpty("ytdlp.cookie_dir", cfg.YTDLP.CookieDir)
	v.PositiveDuration("ytdlp.info_timeout", cfg.YTDLP.InfoTimeout)
	v.NonNegativeDuration("ytdlp.terminate_grace", cfg.YTDLP.TerminateGrace)

	v.PositiveDuration("jobs.retention", cfg.Jobs.Retention)
	v.PositiveDuration("jobs.sweep_interval", cfg.Jobs.SweepInterval)
	v.Range("jobs.max_concurrent", cfg.Jobs.MaxConcurrent, 1, 256)
	if cfg.Jobs.MaxPending < cfg.Jobs.MaxConcurrent {
		v.AddError("jobs.max_pending", "must be at least jobs.max_concurrent", cfg.Jobs.MaxPending)
	}
	v.NonNegativeDuration("jobs.max_runtime", cfg.Jobs.MaxRuntime)
	v.OneOf("jobs.store", cfg.Jobs.Store, []string{StoreMemory, StoreRedis, StoreBadger, StoreSQLite})
	switch cfg.Jobs.Store {
	case StoreRedis:
		v.HostPort("jobs.redis.addr", cfg.Jobs.Redis.Addr)
		v.Range("jobs.redis.db", cfg.Jobs.Redis.DB, 0, 15)
	case StoreBadger:
		v.NotEmpty("jobs.badger.dir", cfg.Jobs.Badger.Dir)
	case StoreSQLite:
		v.NotEmpty("jobs.sqlite.path", cfg.Jobs.SQLite.Path)
	}

	v.OneOf("log.level", cfg.Log.Level, []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"})
	v.OneOf("log.format", cfg.Log.Format, []string{"json", "console"})

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.HostPort("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
