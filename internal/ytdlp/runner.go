// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ManuGH/ytrelay/internal/config"
	xglog "github.com/ManuGH/ytrelay/internal/log"
	"github.com/ManuGH/ytrelay/internal/metrics"
	"github.com/ManuGH/ytrelay/internal/procgroup"
	"github.com/ManuGH/ytrelay/internal/telemetry"
)

const stderrTailLines = 20

// DownloadRequest describes one download run.
type DownloadRequest struct {
	JobID      string
	URL        string
	Format     string
	Quality    string
	Cookies    string
	Title      string
	Channel    string
	UploadDate string
	// Dir is where the artifact is written.
	Dir string
}

// Runner invokes the yt-dlp binary.
type Runner struct {
	binary      string
	cookieDir   string
	infoTimeout time.Duration
	grace       time.Duration
	now         func() time.Time
	logger      zerolog.Logger
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithRunnerClock overrides the clock used for download stamps.
func WithRunnerClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner from the ytdlp config section.
func NewRunner(cfg config.YTDLPConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		binary:      cfg.Binary,
		cookieDir:   cfg.CookieDir,
		infoTimeout: cfg.InfoTimeout,
		grace:       cfg.TerminateGrace,
		now:         time.Now,
		logger:      xglog.WithComponent("ytdlp"),
	}
	if r.binary == "" {
		r.binary = "yt-dlp"
	}
	if r.grace <= 0 {
		r.grace = 5 * time.Second
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binary returns the configured executable.
func (r *Runner) Binary() string { return r.binary }

// Download runs yt-dlp for req and reports parsed output to sink. sink is
// called from a single goroutine and never after Download returns.
//
// The returned error is nil on exit code 0, *SpawnError if the process could
// not start, *ExitError on a non-zero exit, or ctx.Err() if ctx ended first,
// in which case the whole process group has been terminated.
func (r *Runner) Download(ctx context.Context, req DownloadRequest, sink func(Event)) (err error) {
	if err := ValidateFormat(req.Format); err != nil {
		return err
	}
	ctx, span := telemetry.StartSpan(ctx, "ytdlp.download")
	span.SetAttributes(telemetry.DownloadAttributes(req.JobID, req.Format, req.Quality, req.Cookies != "")...)
	defer func() { telemetry.EndSpan(span, err) }()

	logger := xglog.WithContext(ctx, r.logger)

	var cookieFile string
	if req.Cookies != "" {
		path, cleanup, werr := WriteCookieFile(r.cookieDir, "cookies_"+req.JobID+".txt", req.Cookies)
		if werr != nil {
			return &SpawnError{Err: werr}
		}
		defer cleanup()
		cookieFile = path
	}

	output := OutputTemplate(req.Dir, req.Channel, req.Title, req.UploadDate, r.now())
	args := DownloadArgs(req.URL, req.Format, req.Quality, output, cookieFile)

	cmd := exec.Command(r.binary, args...)
	procgroup.Set(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &SpawnError{Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &SpawnError{Err: err}
	}
	if err := cmd.Start(); err != nil {
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "ytdlp.spawn_failed").
			Str("binary", r.binary).
			Msg("failed to start yt-dlp")
		return &SpawnError{Err: err}
	}
	span.SetAttributes(attribute.Int(telemetry.ProcessPIDKey, cmd.Process.Pid))
	logger.Debug().
		Str(xglog.FieldEvent, "ytdlp.started").
		Int(xglog.FieldPID, cmd.Process.Pid).
		Str(xglog.FieldFormat, req.Format).
		Bool("has_cookies", cookieFile != "").
		Msg("yt-dlp started")

	tail := NewRingBuffer(stderrTailLines)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if perr := Parse(stdout, sink); perr != nil {
			logger.Warn().Err(perr).Msg("yt-dlp stdout parse stopped")
		}
	}()
	go func() {
		defer wg.Done()
		_ = scan(stderr, func(line string) {
			tail.Add(line)
			logger.Debug().Str("stream", "stderr").Msg(line)
		})
	}()

	// Pipes must be drained before Wait.
	waitCh := make(chan error, 1)
	go func() {
		wg.Wait()
		waitCh <- cmd.Wait()
	}()

	select {
	case werr := <-waitCh:
		if werr == nil {
			metrics.IncProcWait("exit0")
			return nil
		}
		metrics.IncProcWait("exit_nonzero")
		var exitErr *exec.ExitError
		if errors.As(werr, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Stderr: tail.Lines()}
		}
		return fmt.Errorf("wait yt-dlp: %w", werr)
	case <-ctx.Done():
		_ = procgroup.Terminate(cmd, waitCh, r.grace)
		logger.Info().
			Str(xglog.FieldEvent, "ytdlp.terminated").
			Int(xglog.FieldPID, cmd.Process.Pid).
			Msg("yt-dlp terminated")
		return ctx.Err()
	}
}

// VideoInfo runs a metadata lookup. Failures are returned as *InfoError.
func (r *Runner) VideoInfo(ctx context.Context, url, cookies string) (info VideoInfo, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ytdlp.video_info")
	span.SetAttributes(attribute.Bool(telemetry.DownloadCookiesKey, cookies != ""))
	defer func() {
		telemetry.EndSpan(span, err)
		metrics.RecordVideoInfo(err == nil)
	}()

	if r.infoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.infoTimeout)
		defer cancel()
	}

	var cookieFile string
	if cookies != "" {
		path, cleanup, werr := WriteCookieFile(r.cookieDir, "cookies_info_"+uuid.NewString()+".txt", cookies)
		if werr != nil {
			return VideoInfo{}, &InfoError{Detail: werr.Error(), Err: werr}
		}
		defer cleanup()
		cookieFile = path
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, InfoArgs(url, cookieFile)...)
	procgroup.Set(cmd)
	cmd.Cancel = func() error { return procgroup.Kill(cmd, syscall.SIGKILL) }
	cmd.WaitDelay = r.grace
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{w: &stderr, n: 64 << 10}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return VideoInfo{}, &InfoError{Detail: "Failed to get video info: " + ctxErr.Error(), Err: ctxErr}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return VideoInfo{}, &InfoError{Detail: infoDetail(stderr.String()), Err: err}
		}
		return VideoInfo{}, &InfoError{Detail: err.Error(), Err: &SpawnError{Err: err}}
	}

	info, err = ParseVideoInfo(stdout.Bytes())
	if err != nil {
		return VideoInfo{}, &InfoError{Detail: err.Error(), Err: err}
	}
	return info, nil
}

// limitedWriter keeps at most n bytes and silently discards the rest.
type limitedWriter struct {
	w io.Writer
	n int64
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	total := len(p)
	if l.n <= 0 {
		return total, nil
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.w.Write(p)
	l.n -= int64(n)
	if err != nil {
		return n, err
	}
	return total, nil
}
