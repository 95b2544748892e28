// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
)

// correlationKey is keyed by the log field name it populates.
type correlationKey string

const (
	requestIDKey correlationKey = FieldRequestID
	jobIDKey     correlationKey = FieldJobID
)

// correlationKeys lists the context values copied onto loggers, in field order.
var correlationKeys = []correlationKey{requestIDKey, jobIDKey}

func withValue(ctx context.Context, key correlationKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func valueOf(ctx context.Context, key correlationKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithRequestID tags ctx with the HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// ContextWithJobID tags ctx with a download job ID.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return withValue(ctx, jobIDKey, id)
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string { return valueOf(ctx, requestIDKey) }

// JobIDFromContext returns the job ID or "".
func JobIDFromContext(ctx context.Context) string { return valueOf(ctx, jobIDKey) }

// WithContext copies the correlation IDs held by ctx onto logger. The
// logger is returned unchanged when ctx carries none.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	var b *zerolog.Context
	for _, key := range correlationKeys {
		v := valueOf(ctx, key)
		if v == "" {
			continue
		}
		if b == nil {
			c := logger.With()
			b = &c
		}
		*b = b.Str(string(key), v)
	}
	if b == nil {
		return logger
	}
	return b.Logger()
}

// WithComponentFromContext is WithComponent plus the IDs from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
