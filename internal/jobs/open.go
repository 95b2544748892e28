// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/ytrelay/internal/config"
)

// OpenStore builds the store selected by cfg.Store.
func OpenStore(ctx context.Context, cfg config.JobsConfig) (Store, error) {
	// persistent records expire on their own after twice the retention window
	ttl := 2 * cfg.Retention

	switch cfg.Store {
	case "", config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      ttl,
		})
	case config.StoreBadger:
		if err := os.MkdirAll(cfg.Badger.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		return OpenBadgerStore(cfg.Badger.Dir, ttl)
	case config.StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		return OpenSQLiteStore(ctx, cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown job store %q", cfg.Store)
	}
}
