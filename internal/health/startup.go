// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ManuGH/ytrelay/internal/config"
	"github.com/ManuGH/ytrelay/internal/log"
)

// PerformStartupChecks prepares the downloads and cookie directories and
// verifies they are writable. A missing yt-dlp binary only logs a warning:
// the relay still serves its other endpoints and readiness reports it.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	if err := os.MkdirAll(cfg.Downloads.Dir, 0o750); err != nil {
		return fmt.Errorf("create downloads dir: %w", err)
	}
	if err := checkWritableDir(cfg.Downloads.Dir); err != nil {
		return fmt.Errorf("downloads dir not writable: %w", err)
	}
	if err := checkWritableDir(cfg.YTDLP.CookieDir); err != nil {
		return fmt.Errorf("cookie dir not writable: %w", err)
	}

	if path, err := exec.LookPath(cfg.YTDLP.Binary); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "startup.ytdlp_missing").
			Str("binary", cfg.YTDLP.Binary).
			Msg("yt-dlp not found; downloads will fail until it is installed")
	} else {
		logger.Info().Str("binary", path).Msg("yt-dlp resolved")
	}

	logger.Info().Str(log.FieldPath, cfg.Downloads.Dir).Msg("startup checks passed")
	return nil
}
