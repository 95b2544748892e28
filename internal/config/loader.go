// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	envFile         string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty configPath skips the file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// WithEnvFile makes Load read KEY=VALUE pairs from path into the process
// environment before env overrides are applied. Variables that are already
// set win over the file. A missing file is not an error.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envStringList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseStringList(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults,
// then validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load env file %s: %w", l.envFile, err)
		}
	}
	l.mergeEnvConfig(&cfg)

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Errors from loadFile, matchable with errors.Is.
var (
	ErrUnknownConfigField = errors.New("config file sets a key ytrelay does not know")
	ErrUnsupportedFormat  = errors.New("config file is not YAML")
)

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields cause an error to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnvConfig applies YTRELAY_* overrides on top of file and defaults.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	s := &cfg.Server
	s.ListenAddr = l.envString("YTRELAY_LISTEN", s.ListenAddr)
	s.ReadTimeout = l.envDuration("YTRELAY_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = l.envDuration("YTRELAY_WRITE_TIMEOUT", s.WriteTimeout)
	s.ShutdownTimeout = l.envDuration("YTRELAY_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxConnections = l.envInt("YTRELAY_MAX_CONNECTIONS", s.MaxConnections)
	s.MetricsAddr = l.envString("YTRELAY_METRICS_LISTEN", s.MetricsAddr)

	r := &cfg.RateLimit
	r.Enabled = l.envBool("YTRELAY_RATELIMIT_ENABLED", r.Enabled)
	r.Requests = l.envInt("YTRELAY_RATELIMIT_REQUESTS", r.Requests)
	r.Window = l.envDuration("YTRELAY_RATELIMIT_WINDOW", r.Window)

	cfg.CORS.AllowedOrigins = l.envStringList("YTRELAY_CORS_ORIGINS", cfg.CORS.AllowedOrigins)
	cfg.Downloads.Dir = l.envString("YTRELAY_DOWNLOAD_DIR", cfg.Downloads.Dir)

	y := &cfg.YTDLP
	y.Binary = l.envString("YTRELAY_YTDLP_BIN", y.Binary)
	y.CookieDir = l.envString("YTRELAY_COOKIE_DIR", y.CookieDir)
	y.InfoTimeout = l.envDuration("YTRELAY_INFO_TIMEOUT", y.InfoTimeout)

	j := &cfg.Jobs
	j.Retention = l.envDuration("YTRELAY_JOB_RETENTION", j.Retention)
	j.SweepInterval = l.envDuration("YTRELAY_SWEEP_INTERVAL", j.SweepInterval)
	j.MaxConcurrent = l.envInt("YTRELAY_MAX_CONCURRENT", j.MaxConcurrent)
	j.MaxPending = l.envInt("YTRELAY_MAX_PENDING", j.MaxPending)
	j.MaxRuntime = l.envDuration("YTRELAY_MAX_RUNTIME", j.MaxRuntime)
	j.Store = l.envString("YTRELAY_JOB_STORE", j.Store)
	j.Redis.Addr = l.envString("YTRELAY_REDIS_ADDR", j.Redis.Addr)
	j.Redis.Password = l.envString("YTRELAY_REDIS_PASSWORD", j.Redis.Password)
	j.Redis.DB = l.envInt("YTRELAY_REDIS_DB", j.Redis.DB)
	j.Redis.Prefix = l.envString("YTRELAY_REDIS_PREFIX", j.Redis.Prefix)
	j.Badger.Dir = l.envString("YTRELAY_BADGER_DIR", j.Badger.Dir)
	j.SQLite.Path = l.envString("YTRELAY_SQLITE_PATH", j.SQLite.Path)

	cfg.Log.Level = l.envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = l.envString("LOG_FORMAT", cfg.Log.Format)

	t := &cfg.Telemetry
	t.Enabled = l.envBool("YTRELAY_OTEL_ENABLED", t.Enabled)
	t.Exporter = l.envString("YTRELAY_OTEL_EXPORTER", t.Exporter)
	t.Endpoint = l.envString("YTRELAY_OTEL_ENDPOINT", t.Endpoint)
	t.SamplingRate = l.envFloat("YTRELAY_OTEL_SAMPLING_RATE", t.SamplingRate)
}
