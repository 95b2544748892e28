// SPDX-License-Identifier: MIT

package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ManuGH/ytrelay/internal/log"
	"github.com/ManuGH/ytrelay/internal/metrics"
)

// RateLimitBody is the 429 response body.
const RateLimitBody = `{"error":"Too many requests","message":"Rate limit exceeded. Please try again later."}`

// RateLimitConfig holds the per-client request cap.
type RateLimitConfig struct {
	// RequestLimit is the number of requests allowed per WindowSize.
	RequestLimit int
	WindowSize   time.Duration
	// TrustedProxies are IPs or CIDRs whose X-Forwarded-For/X-Real-IP
	// headers are believed. Other peers are keyed by their socket address.
	TrustedProxies []string
}

// RateLimit limits each client to RequestLimit requests per sliding window.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	trusted := parsePrefixes(cfg.TrustedProxies)
	retryAfter := strconv.Itoa(int(cfg.WindowSize.Seconds()))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(clientKey(trusted)),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimited()
			logger := log.WithComponentFromContext(r.Context(), "ratelimit")
			logger.Warn().
				Str(log.FieldEvent, "ratelimit.exceeded").
				Str(log.FieldRemoteIP, r.RemoteAddr).
				Str(log.FieldPath, r.URL.Path).
				Msg("rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(RateLimitBody))
		}),
	)
}

func clientKey(trusted []netip.Prefix) httprate.KeyFunc {
	return func(r *http.Request) (string, error) {
		if len(trusted) > 0 && peerTrusted(r.RemoteAddr, trusted) {
			return httprate.KeyByRealIP(r)
		}
		return httprate.KeyByIP(r)
	}
}

func peerTrusted(remoteAddr string, trusted []netip.Prefix) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func parsePrefixes(values []string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if p, err := netip.ParsePrefix(v); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(v); err == nil {
			out = append(out, netip.PrefixFrom(a.Unmap(), a.Unmap().BitLen()))
		}
	}
	return out
}
