// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"fmt"
	"strings"
)

// SpawnError means the binary could not be started at all.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return e.Err.Error() }
func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError means the process ran and exited non-zero.
type ExitError struct {
	Code   int
	Stderr []string // last lines of stderr, oldest first
}

func (e *ExitError) Error() string {
	if len(e.Stderr) == 0 {
		return fmt.Sprintf("yt-dlp exited with code %d", e.Code)
	}
	return fmt.Sprintf("yt-dlp exited with code %d: %s", e.Code, e.Stderr[len(e.Stderr)-1])
}

// InfoError is a metadata lookup failure. Detail is safe to show to callers.
type InfoError struct {
	Detail string
	Err    error
}

func (e *InfoError) Error() string { return e.Detail }
func (e *InfoError) Unwrap() error { return e.Err }

func infoDetail(stderr string) string {
	if strings.TrimSpace(stderr) == "" {
		return "Failed to get video info"
	}
	return stderr
}
