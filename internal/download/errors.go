// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import "errors"

var (
	// ErrInvalidURL rejects empty URLs and values that would parse as flags.
	ErrInvalidURL = errors.New("invalid url")
	// ErrBusy is returned when max_pending jobs are already queued or running.
	ErrBusy = errors.New("server busy")
	// ErrNotRunning is returned by Cancel for jobs that already finished.
	ErrNotRunning = errors.New("job not running")
	// ErrClosed is returned by Submit after Shutdown started.
	ErrClosed = errors.New("download manager closed")
)

// Cancellation causes, mapped to the job's error message.
var (
	errCancelled = errors.New("cancelled by client")
	errEvicted   = errors.New("job record expired")
	errTimedOut  = errors.New("max runtime exceeded")
	errShutdown  = errors.New("server shutting down")
)
