// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrBadRequest  = errors.New("relay: request rejected")
	ErrNotFound    = errors.New("relay: resource not found")
	ErrConflict    = errors.New("relay: conflicting state")
	ErrRateLimited = errors.New("relay: rate limited")
	ErrUnavailable = errors.New("relay: unavailable")
	ErrServer      = errors.New("relay: server error")
	ErrJobFailed   = errors.New("relay: download failed")
)

// APIError carries the server's {"error": ...} message.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Message   string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %v (HTTP %d)", e.Operation, e.Sentinel, e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Sentinel }

// JobError is returned by the poller when the job ends in the error state.
type JobError struct {
	ID      string
	Message string
}

func (e *JobError) Error() string { return e.Message }

func (e *JobError) Unwrap() error { return ErrJobFailed }

func sentinelFor(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusServiceUnavailable:
		return ErrUnavailable
	case status >= 400 && status < 500:
		return ErrBadRequest
	default:
		return ErrServer
	}
}
