// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytrelay/internal/config"
)

type staticChecker struct {
	name   string
	status Status
}

func (c staticChecker) Name() string { return c.name }
func (c staticChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: c.status}
}

func TestHealth_ChecksOnlyWhenVerbose(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(staticChecker{"a", StatusHealthy})
	m.RegisterChecker(staticChecker{"b", StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestReady(t *testing.T) {
	m := NewManager("v")
	assert.True(t, m.Ready(context.Background()).Ready, "no checkers means ready")

	m.RegisterChecker(staticChecker{"deg", StatusDegraded})
	r := m.Ready(context.Background())
	assert.True(t, r.Ready)
	assert.Equal(t, StatusDegraded, r.Status)

	m.RegisterChecker(staticChecker{"down", StatusUnhealthy})
	r = m.Ready(context.Background())
	assert.False(t, r.Ready)
	assert.Equal(t, StatusUnhealthy, r.Status)
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v")
	m.RegisterChecker(staticChecker{"down", StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Ready)
	assert.Contains(t, body.Checks, "down")

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestBinaryChecker(t *testing.T) {
	assert.Equal(t, StatusUnhealthy, NewBinaryChecker("ytdlp", "definitely-not-installed-ytrelay").Check(context.Background()).Status)

	dir := t.TempDir()
	bin := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	assert.Equal(t, StatusHealthy, NewBinaryChecker("tool", bin).Check(context.Background()).Status)
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, StatusHealthy, NewDirChecker("downloads", dir).Check(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, NewDirChecker("missing", filepath.Join(dir, "nope")).Check(context.Background()).Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")
}

func TestPingChecker(t *testing.T) {
	assert.Equal(t, StatusHealthy, NewPingChecker("store", nil).Check(context.Background()).Status)
	ok := NewPingChecker("store", func(context.Context) error { return nil })
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)
	bad := NewPingChecker("store", func(context.Context) error { return errors.New("connection refused") })
	res := bad.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "connection refused", res.Error)
}

func TestPerformStartupChecks_CreatesDownloadsDir(t *testing.T) {
	cfg := config.Defaults()
	cfg.Downloads.Dir = filepath.Join(t.TempDir(), "downloads")
	cfg.YTDLP.CookieDir = t.TempDir()
	cfg.YTDLP.Binary = "definitely-not-installed-ytrelay"

	require.NoError(t, PerformStartupChecks(context.Background(), cfg))
	assert.DirExists(t, cfg.Downloads.Dir)
}

func TestPerformStartupChecks_BadCookieDir(t *testing.T) {
	cfg := config.Defaults()
	cfg.Downloads.Dir = t.TempDir()
	cfg.YTDLP.CookieDir = filepath.Join(t.TempDir(), "missing")
	assert.Error(t, PerformStartupChecks(context.Background(), cfg))
}
