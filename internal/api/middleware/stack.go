// SPDX-License-Identifier: MIT

package middleware

import (
	"strings"

	"github.com/go-chi/chi/v5"
)

// StackConfig selects the optional parts of the ingress stack.
type StackConfig struct {
	AllowedOrigins []string
	// TracingService enables otelhttp spans when non-empty.
	TracingService string
	// RateLimit is skipped when nil.
	RateLimit *RateLimitConfig
}

// ApplyStack installs the middleware chain in its fixed order: recovery,
// request id, tracing, security headers, CORS, metrics, access log, rate
// limit.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	r.Use(SecurityHeaders)
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(Metrics)
	r.Use(Logging)
	if cfg.RateLimit != nil {
		r.Use(RateLimit(*cfg.RateLimit))
	}
}

// routeTemplate replaces the job id segment of /api/download/{id}/... paths.
// otelhttp runs before chi has matched a route, so the pattern is not known yet.
func routeTemplate(path string) string {
	const prefix = "/api/download/"
	if !strings.HasPrefix(path, prefix) {
		if strings.HasPrefix(path, "/downloads/") {
			return "/downloads/*"
		}
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" {
		return path
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return prefix + "{id}" + rest[i:]
	}
	return prefix + "{id}"
}
