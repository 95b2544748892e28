// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts child processes in their own process group and
// tears the whole group down, so helpers spawned by the child (ffmpeg during
// audio extraction, for example) do not outlive it.
package procgroup

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrKillFailed wraps any failure to deliver a signal to a process group.
var ErrKillFailed = errors.New("kill operation failed")

func signalName(sig syscall.Signal) string {
	if sig == syscall.SIGKILL {
		return "SIGKILL"
	}
	return "SIGTERM"
}

func killError(pid int, sig syscall.Signal, err error) error {
	return fmt.Errorf("%w: %s to pid %d: %w", ErrKillFailed, signalName(sig), pid, err)
}
