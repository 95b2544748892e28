// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/ytrelay/internal/config"
)

// fakeBinary writes an executable sh script standing in for yt-dlp. The
// script records the value passed to --cookies and whether that file existed.
func fakeBinary(t *testing.T, body string) (bin, dir string) {
	t.Helper()
	dir = t.TempDir()
	bin = filepath.Join(dir, "yt-dlp")
	script := fmt.Sprintf(`#!/bin/sh
for a in "$@"; do
  if [ "$prev" = "--cookies" ]; then
    echo "$a" > %[1]q/cookie_path
    cp "$a" %[1]q/cookie_copy
  fi
  prev="$a"
done
%[2]s
`, dir, body)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, dir
}

func newTestRunner(bin, cookieDir string) *Runner {
	return NewRunner(config.YTDLPConfig{
		Binary:         bin,
		CookieDir:      cookieDir,
		InfoTimeout:    10 * time.Second,
		TerminateGrace: 500 * time.Millisecond,
	}, WithRunnerClock(func() time.Time {
		return time.Date(2025, 1, 20, 14, 5, 0, 0, time.UTC)
	}))
}

type eventLog struct {
	mu       sync.Mutex
	progress []float64
	filename string
}

func (l *eventLog) sink(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ev.HasProgress {
		l.progress = append(l.progress, ev.Progress)
	}
	if ev.Filename != "" {
		l.filename = ev.Filename
	}
}

func TestDownload_Success(t *testing.T) {
	defer goleak.VerifyNone(t)

	bin, dir := fakeBinary(t, `
printf '[download]  12.0%% of 1MiB\r'
printf '[download]  42.5%% of 1MiB\n'
echo "[download] Destination: /some/dir/Chan_2024-01-01_Title_DL-2025-01-20-14-05.mp4"
echo "warning on stderr" >&2
exit 0`)
	cookieDir := t.TempDir()
	r := newTestRunner(bin, cookieDir)

	var log eventLog
	err := r.Download(context.Background(), DownloadRequest{
		JobID:   "job-1",
		URL:     "https://youtu.be/x",
		Format:  FormatMP4,
		Quality: "720p",
		Cookies: "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tLOGIN_INFO\tabc\n",
		Dir:     t.TempDir(),
	}, log.sink)
	require.NoError(t, err)

	assert.Equal(t, []float64{12, 42.5}, log.progress)
	assert.Equal(t, "Chan_2024-01-01_Title_DL-2025-01-20-14-05.mp4", log.filename)

	// the script saw the cookie file; it is gone afterwards
	seen, err := os.ReadFile(filepath.Join(dir, "cookie_path"))
	require.NoError(t, err)
	cookiePath := strings.TrimSpace(string(seen))
	assert.Equal(t, filepath.Join(cookieDir, "cookies_job-1.txt"), cookiePath)
	copied, err := os.ReadFile(filepath.Join(dir, "cookie_copy"))
	require.NoError(t, err)
	assert.Contains(t, string(copied), "LOGIN_INFO")
	assert.NoFileExists(t, cookiePath)
}

func TestDownload_NonZeroExit(t *testing.T) {
	defer goleak.VerifyNone(t)

	bin, _ := fakeBinary(t, `
echo "ERROR: Video unavailable" >&2
exit 1`)
	cookieDir := t.TempDir()
	r := newTestRunner(bin, cookieDir)

	err := r.Download(context.Background(), DownloadRequest{
		JobID: "job-2", URL: "u", Format: FormatMP3, Cookies: "c", Dir: t.TempDir(),
	}, func(Event) {})

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
	assert.Equal(t, []string{"ERROR: Video unavailable"}, exitErr.Stderr)
	assert.NoFileExists(t, filepath.Join(cookieDir, "cookies_job-2.txt"))
}

func TestDownload_SpawnFailure(t *testing.T) {
	cookieDir := t.TempDir()
	r := newTestRunner(filepath.Join(t.TempDir(), "does-not-exist"), cookieDir)

	err := r.Download(context.Background(), DownloadRequest{
		JobID: "job-3", URL: "u", Format: FormatMP4, Cookies: "c", Dir: t.TempDir(),
	}, func(Event) {})

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.NoFileExists(t, filepath.Join(cookieDir, "cookies_job-3.txt"))
}

func TestDownload_InvalidFormat(t *testing.T) {
	r := newTestRunner("yt-dlp", t.TempDir())
	err := r.Download(context.Background(), DownloadRequest{URL: "u", Format: "webm"}, func(Event) {})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDownload_CancelTerminatesGroup(t *testing.T) {
	defer goleak.VerifyNone(t)

	bin, dir := fakeBinary(t, `
sleep 30 &
echo $! > "$(dirname "$0")/child_pid"
printf '[download]   1.0%%\n'
wait`)
	cookieDir := t.TempDir()
	r := newTestRunner(bin, cookieDir)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once

	done := make(chan error, 1)
	go func() {
		done <- r.Download(ctx, DownloadRequest{
			JobID: "job-4", URL: "u", Format: FormatMP4, Cookies: "c", Dir: t.TempDir(),
		}, func(ev Event) {
			if ev.HasProgress {
				once.Do(func() { close(started) })
			}
		})
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("fake yt-dlp never reported progress")
	}
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Download did not return after cancel")
	}
	assert.NoFileExists(t, filepath.Join(cookieDir, "cookies_job-4.txt"))
	assert.FileExists(t, filepath.Join(dir, "child_pid"))
}

func TestVideoInfo_Success(t *testing.T) {
	bin, _ := fakeBinary(t, `
cat <<'JSON'
{"id":"abc","title":"T","uploader":"U","duration":65,"upload_date":"20240102","view_count":1234,"formats":[{"height":720}]}
JSON`)
	r := newTestRunner(bin, t.TempDir())

	info, err := r.VideoInfo(context.Background(), "https://youtu.be/abc", "")
	require.NoError(t, err)
	assert.Equal(t, "abc", info.ID)
	assert.Equal(t, "U", info.Channel)
	assert.Equal(t, "1:05", info.Duration)
	assert.Equal(t, "2024-01-02", info.UploadDate)
	assert.Equal(t, "1,234 views", info.ViewCount)
	assert.Equal(t, []string{"720p", "audio"}, qualities(info.AvailableFormats))
}

func TestVideoInfo_Failures(t *testing.T) {
	t.Run("stderr becomes detail", func(t *testing.T) {
		bin, _ := fakeBinary(t, `echo "ERROR: Private video" >&2; exit 1`)
		cookieDir := t.TempDir()
		r := newTestRunner(bin, cookieDir)

		_, err := r.VideoInfo(context.Background(), "u", "cookie text")
		var infoErr *InfoError
		require.ErrorAs(t, err, &infoErr)
		assert.Equal(t, "ERROR: Private video\n", infoErr.Detail)

		entries, rerr := os.ReadDir(cookieDir)
		require.NoError(t, rerr)
		assert.Empty(t, entries, "cookie file must be removed")
	})

	t.Run("silent failure", func(t *testing.T) {
		bin, _ := fakeBinary(t, `exit 2`)
		_, err := newTestRunner(bin, t.TempDir()).VideoInfo(context.Background(), "u", "")
		var infoErr *InfoError
		require.ErrorAs(t, err, &infoErr)
		assert.Equal(t, "Failed to get video info", infoErr.Detail)
	})

	t.Run("bad json", func(t *testing.T) {
		bin, _ := fakeBinary(t, `echo "{not json"`)
		_, err := newTestRunner(bin, t.TempDir()).VideoInfo(context.Background(), "u", "")
		var infoErr *InfoError
		require.ErrorAs(t, err, &infoErr)
		assert.NotEmpty(t, infoErr.Detail)
	})
}
