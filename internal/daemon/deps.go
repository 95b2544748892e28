// SPDX-License-Identifier: MIT

package daemon

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Construction and lifecycle errors.
var (
	ErrMissingLogger     = errors.New("daemon: logger not configured")
	ErrMissingAPIHandler = errors.New("daemon: no API handler")
	ErrMissingManager    = errors.New("daemon: app has no server manager")
	ErrManagerNotStarted = errors.New("daemon: shutdown before start")
	ErrAlreadyStarted    = errors.New("daemon: start called twice")
)

// Deps is what NewManager needs to serve the relay.
type Deps struct {
	Logger     zerolog.Logger
	APIHandler http.Handler

	// MetricsHandler is served on MetricsAddr when that is non-empty.
	MetricsHandler http.Handler
	MetricsAddr    string
}

// Validate rejects a disabled logger or a missing API handler.
func (d *Deps) Validate() error {
	switch {
	case d.Logger.GetLevel() == zerolog.Disabled:
		return ErrMissingLogger
	case d.APIHandler == nil:
		return ErrMissingAPIHandler
	default:
		return nil
	}
}
