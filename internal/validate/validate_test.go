// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_AccumulatesErrors(t *testing.T) {
	v := New()
	v.NotEmpty("ytdlp.binary", "  ")
	v.Positive("jobs.max_concurrent", 0)
	v.OneOf("jobs.store", "etcd", []string{"memory", "redis"})

	require.False(t, v.IsValid())
	require.Len(t, v.Errors(), 3)

	err := v.Err()
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors(), 3)
	assert.Contains(t, err.Error(), "jobs.store")
	assert.Contains(t, err.Error(), "; ")
}

func TestValidator_ErrNilWhenValid(t *testing.T) {
	v := New()
	v.NotEmpty("field", "value")
	v.Range("field", 5, 1, 10)
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())
}

func TestValidator_HostPort(t *testing.T) {
	v := New()
	v.HostPort("jobs.redis.addr", "localhost:6379")
	v.HostPort("telemetry.endpoint", "otel-collector:4317")
	require.True(t, v.IsValid(), v.Err())

	v.HostPort("jobs.redis.addr", ":6379")
	v.HostPort("jobs.redis.addr", "redis")
	assert.Len(t, v.Errors(), 2)
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{addr: ":3001", wantErr: false},
		{addr: "127.0.0.1:0", wantErr: false},
		{addr: "localhost", wantErr: true},
		{addr: ":http", wantErr: true},
		{addr: ":70000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			v := New()
			v.ListenAddr("server.listen", tt.addr)
			assert.Equal(t, tt.wantErr, !v.IsValid())
		})
	}
}

func TestValidator_Durations(t *testing.T) {
	v := New()
	v.PositiveDuration("jobs.retention", 0)
	v.NonNegativeDuration("jobs.max_runtime", -time.Second)
	v.NonNegativeDuration("jobs.max_runtime", 0)
	assert.Len(t, v.Errors(), 2)
}
