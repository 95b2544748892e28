// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	xglog "github.com/ManuGH/ytrelay/internal/log"
	"github.com/ManuGH/ytrelay/internal/metrics"
)

// WriteCookieFile writes a Netscape cookie jar to dir/name with mode 0600.
// The returned cleanup removes the file and must be called on every exit
// path of the process that reads it; it is idempotent.
func WriteCookieFile(dir, name, text string) (path string, cleanup func(), err error) {
	if name == "" || filepath.Base(name) != name {
		return "", nil, fmt.Errorf("invalid cookie file name %q", name)
	}
	path = filepath.Join(dir, name)
	if err := renameio.WriteFile(path, []byte(text), 0o600); err != nil {
		return "", nil, fmt.Errorf("write cookie file: %w", err)
	}
	metrics.IncCookieFiles()

	removed := false
	cleanup = func() {
		if removed {
			return
		}
		removed = true
		metrics.DecCookieFiles()
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger := xglog.WithComponent("ytdlp")
			logger.Error().Err(err).
				Str(xglog.FieldEvent, "ytdlp.cookie_cleanup_failed").
				Str(xglog.FieldPath, path).
				Msg("failed to remove cookie file")
		}
	}
	return path, cleanup, nil
}
