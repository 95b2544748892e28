// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads and validates the ytrelay runtime configuration.
package config

import (
	"os"
	"time"
)

// Job store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

// AppConfig is the fully resolved configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	CORS      CORSConfig      `yaml:"cors"`
	Downloads DownloadsConfig `yaml:"downloads"`
	YTDLP     YTDLPConfig     `yaml:"ytdlp"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RateLimitConfig configures the per-client request cap.
type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Requests       int           `yaml:"requests"`
	Window         time.Duration `yaml:"window"`
	TrustedProxies []string      `yaml:"trusted_proxies"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DownloadsConfig holds where finished artifacts are written and served from.
type DownloadsConfig struct {
	Dir string `yaml:"dir"`
}

// YTDLPConfig controls how the external downloader is invoked.
type YTDLPConfig struct {
	Binary         string        `yaml:"binary"`
	CookieDir      string        `yaml:"cookie_dir"`
	InfoTimeout    time.Duration `yaml:"info_timeout"`
	TerminateGrace time.Duration `yaml:"terminate_grace"`
}

// JobsConfig controls job retention, admission and persistence.
type JobsConfig struct {
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxPending    int           `yaml:"max_pending"`
	MaxRuntime    time.Duration `yaml:"max_runtime"`
	Store         string        `yaml:"store"`
	Redis         RedisConfig   `yaml:"redis"`
	Badger        BadgerConfig  `yaml:"badger"`
	SQLite        SQLiteConfig  `yaml:"sqlite"`
}

// RedisConfig holds Redis connection settings for the redis job store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// BadgerConfig holds the on-disk location of the badger job store.
type BadgerConfig struct {
	Dir string `yaml:"dir"`
}

// SQLiteConfig holds the database file of the sqlite job store.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

// Defaults returns the built-in configuration: port 3001, 50 requests per
// 15 minutes, a 10 MB JSON body cap and hourly job retention.
func Defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			ListenAddr:      ":3001",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxHeaderBytes:  1 << 20,
			BodyLimit:       10 << 20,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 50,
			Window:   15 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Downloads: DownloadsConfig{
			Dir: "downloads",
		},
		YTDLP: YTDLPConfig{
			Binary:         "yt-dlp",
			CookieDir:      os.TempDir(),
			InfoTimeout:    2 * time.Minute,
			TerminateGrace: 5 * time.Second,
		},
		Jobs: JobsConfig{
			Retention:     time.Hour,
			SweepInterval: time.Hour,
			MaxConcurrent: 4,
			MaxPending:    64,
			Store:         StoreMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "ytrelay",
			},
			Badger: BadgerConfig{Dir: "data/jobs"},
			SQLite: SQLiteConfig{Path: "data/jobs.db"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
