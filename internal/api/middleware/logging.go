// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytrelay/internal/log"
)

// Logging writes one access log line per request. Probe and metrics
// endpoints log at debug level.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger := log.WithComponentFromContext(r.Context(), "http")
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logger.Error()
		case isQuietPath(r.URL.Path):
			ev = logger.Debug()
		default:
			ev = logger.Info()
		}
		ev.Str(log.FieldEvent, "http.request").
			Str("method", r.Method).
			Str(log.FieldPath, r.URL.Path).
			Str("route", routePattern(r)).
			Int(log.FieldStatus, status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str(log.FieldRemoteIP, r.RemoteAddr).
			Msg("request served")
	})
}

func isQuietPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}
