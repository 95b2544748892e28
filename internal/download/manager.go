// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package download runs download jobs: it admits them through a bounded
// gate, drives the yt-dlp runner and writes progress into the job registry.
package download

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/ManuGH/ytrelay/internal/jobs"
	xglog "github.com/ManuGH/ytrelay/internal/log"
	"github.com/ManuGH/ytrelay/internal/metrics"
	"github.com/ManuGH/ytrelay/internal/ytdlp"
)

const progressLogInterval = 5 * time.Second

// Downloader runs one yt-dlp download. *ytdlp.Runner implements it.
type Downloader interface {
	Download(ctx context.Context, req ytdlp.DownloadRequest, sink func(ytdlp.Event)) error
}

// Request is a download submission.
type Request struct {
	URL        string
	Format     string
	Quality    string
	Cookies    string
	Title      string
	Channel    string
	UploadDate string
}

// Validate checks the fields the HTTP facade must reject with 400.
func (r Request) Validate() error {
	if r.URL == "" || strings.HasPrefix(r.URL, "-") {
		return ErrInvalidURL
	}
	return ytdlp.ValidateFormat(r.Format)
}

// Options configures a Manager.
type Options struct {
	// Dir receives finished artifacts.
	Dir string
	// MaxConcurrent bounds running yt-dlp processes. Values below 1 mean 1.
	MaxConcurrent int
	// MaxPending bounds queued plus running jobs. Zero disables the cap.
	MaxPending int
	// MaxRuntime fails a job that runs longer. Zero disables it.
	MaxRuntime time.Duration
}

type task struct {
	cancel context.CancelCauseFunc
	format string
}

// Manager owns the lifecycle of every submitted job.
type Manager struct {
	registry   *jobs.Registry
	runner     Downloader
	opts       Options
	sem        *semaphore.Weighted
	logger     zerolog.Logger
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu     sync.Mutex
	active map[string]*task
	// reserved counts admitted submissions whose record is being created.
	reserved int
	closed   bool
	wg       sync.WaitGroup
}

// NewManager creates a Manager and subscribes it to registry evictions, so a
// swept job that is still running gets its process terminated.
func NewManager(registry *jobs.Registry, runner Downloader, opts Options) *Manager {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())
	m := &Manager{
		registry:   registry,
		runner:     runner,
		opts:       opts,
		sem:        semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger:     xglog.WithComponent("download"),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		active:     make(map[string]*task),
	}
	registry.OnEvict(func(job jobs.Job) {
		m.cancel(job.ID, errEvicted)
	})
	return m
}

// Submit validates req, creates its job record and starts it in the
// background. It returns as soon as the record exists.
func (m *Manager) Submit(ctx context.Context, req Request) (jobs.Job, error) {
	if err := req.Validate(); err != nil {
		return jobs.Job{}, err
	}

	if err := m.reserve(); err != nil {
		return jobs.Job{}, err
	}

	// The store may be remote, so the record is created without m.mu held.
	job, err := m.registry.Create(ctx)

	m.mu.Lock()
	m.reserved--
	if err != nil {
		m.mu.Unlock()
		m.wg.Done()
		return jobs.Job{}, err
	}
	jobCtx, cancel := context.WithCancelCause(m.baseCtx)
	jobCtx = xglog.ContextWithJobID(jobCtx, job.ID)
	if rid := xglog.RequestIDFromContext(ctx); rid != "" {
		jobCtx = xglog.ContextWithRequestID(jobCtx, rid)
	}
	m.active[job.ID] = &task{cancel: cancel, format: req.Format}
	closed := m.closed
	if closed {
		// Shutdown began while the record was created; run records the
		// interruption.
		cancel(errShutdown)
	}
	m.mu.Unlock()

	if closed {
		metrics.IncJobsQueued()
		go m.run(jobCtx, job.ID, req)
		return jobs.Job{}, ErrClosed
	}

	metrics.RecordJobSubmitted(req.Format)
	metrics.IncJobsQueued()
	logger := xglog.WithContext(jobCtx, m.logger)
	logger.Info().
		Str(xglog.FieldEvent, "job.created").
		Str(xglog.FieldFormat, req.Format).
		Str(xglog.FieldQuality, req.Quality).
		Bool("has_cookies", req.Cookies != "").
		Msg("download job created")

	go m.run(jobCtx, job.ID, req)
	return job, nil
}

// reserve admits one submission against the pending cap. On success the
// caller owns a wg slot and must either start run or call wg.Done.
func (m *Manager) reserve() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	inFlight := len(m.active) + m.reserved
	if m.opts.MaxPending > 0 && inFlight >= m.opts.MaxPending {
		metrics.RecordAdmissionRejected()
		m.logger.Warn().
			Str(xglog.FieldEvent, "job.rejected").
			Int("active", inFlight).
			Msg("admission rejected: too many pending jobs")
		return ErrBusy
	}
	m.reserved++
	m.wg.Add(1)
	return nil
}

// Cancel stops a queued or running job. It returns jobs.ErrNotFound for
// unknown ids and ErrNotRunning for jobs that already finished.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	if m.cancel(id, errCancelled) {
		return nil
	}
	if _, err := m.registry.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotRunning
}

func (m *Manager) cancel(id string, cause error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.active[id]
	if !ok {
		return false
	}
	t.cancel(cause)
	return true
}

// Active returns the number of queued or running jobs.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Shutdown rejects new submissions, cancels every job and waits for the
// workers to record their final state, or for ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, t := range m.active {
		t.cancel(errShutdown)
	}
	n := len(m.active)
	m.mu.Unlock()

	if n > 0 {
		m.logger.Info().Int("jobs", n).Msg("cancelling active downloads")
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.baseCancel()
		return nil
	case <-ctx.Done():
		m.baseCancel()
		return ctx.Err()
	}
}

func (m *Manager) run(ctx context.Context, id string, req Request) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		if t, ok := m.active[id]; ok {
			t.cancel(nil)
			delete(m.active, id)
		}
		m.mu.Unlock()
	}()

	logger := xglog.WithContext(ctx, m.logger)
	// Record writes outlive the job context so the final state is stored.
	storeCtx := context.WithoutCancel(ctx)

	if err := m.sem.Acquire(ctx, 1); err != nil {
		metrics.DecJobsQueued()
		m.complete(storeCtx, ctx, logger, id, req.Format, time.Now(), err)
		return
	}
	metrics.DecJobsQueued()
	metrics.IncJobsRunning()
	defer func() {
		metrics.DecJobsRunning()
		m.sem.Release(1)
	}()

	runCtx := ctx
	if m.opts.MaxRuntime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeoutCause(ctx, m.opts.MaxRuntime, errTimedOut)
		defer cancel()
	}

	started := time.Now()
	sometimes := rate.Sometimes{Interval: progressLogInterval}
	sink := func(ev ytdlp.Event) {
		job, err := m.registry.Update(storeCtx, id, func(j *jobs.Job) {
			if ev.HasProgress {
				j.SetProgress(ev.Progress)
			}
			if ev.Filename != "" {
				j.SetFilename(ev.Filename)
			}
		})
		if err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				m.cancel(id, errEvicted)
				return
			}
			logger.Warn().Err(err).Msg("failed to record progress")
			return
		}
		if ev.Filename != "" {
			logger.Debug().Str(xglog.FieldFilename, ev.Filename).Msg("destination reported")
		}
		sometimes.Do(func() {
			logger.Debug().
				Str(xglog.FieldEvent, "job.progress").
				Float64(xglog.FieldProgress, job.Progress).
				Msg("download progress")
		})
	}

	err := m.runner.Download(runCtx, ytdlp.DownloadRequest{
		JobID:      id,
		URL:        req.URL,
		Format:     req.Format,
		Quality:    req.Quality,
		Cookies:    req.Cookies,
		Title:      req.Title,
		Channel:    req.Channel,
		UploadDate: req.UploadDate,
		Dir:        m.opts.Dir,
	}, sink)

	m.complete(storeCtx, runCtx, logger, id, req.Format, started, err)
}

// complete stores the terminal state. runCtx is only consulted for the
// cancellation cause.
func (m *Manager) complete(storeCtx, runCtx context.Context, logger zerolog.Logger, id, format string, started time.Time, runErr error) {
	outcome, message := classify(runCtx, runErr)

	job, err := m.registry.Update(storeCtx, id, func(j *jobs.Job) {
		if outcome == metrics.OutcomeCompleted {
			j.Complete()
			return
		}
		j.Fail(message)
	})
	metrics.RecordJobFinished(format, outcome, time.Since(started))

	switch {
	case errors.Is(err, jobs.ErrNotFound):
		logger.Warn().Str(xglog.FieldEvent, "job.orphaned").Str("outcome", outcome).Msg("job record expired before completion")
		return
	case err != nil:
		logger.Error().Err(err).Msg("failed to record job outcome")
		return
	}

	if outcome == metrics.OutcomeCompleted {
		ev := logger.Info().Str(xglog.FieldEvent, "job.completed").Dur("duration", time.Since(started))
		if job.Filename != nil {
			ev = ev.Str(xglog.FieldFilename, *job.Filename)
		}
		ev.Msg("download completed")
		return
	}

	ev := logger.Warn().Str(xglog.FieldEvent, eventFor(outcome)).Str("outcome", outcome).Err(runErr)
	var exitErr *ytdlp.ExitError
	if errors.As(runErr, &exitErr) {
		ev = ev.Int(xglog.FieldExitCode, exitErr.Code).Strs("stderr_tail", exitErr.Stderr)
	}
	ev.Msg(message)
}

// classify maps a runner result to a metrics outcome and a job message.
func classify(runCtx context.Context, err error) (outcome, message string) {
	if err == nil {
		return metrics.OutcomeCompleted, ""
	}
	var spawnErr *ytdlp.SpawnError
	var exitErr *ytdlp.ExitError
	switch {
	case errors.As(err, &spawnErr):
		return metrics.OutcomeSpawn, jobs.ProcessErrorMessage(spawnErr.Err)
	case errors.As(err, &exitErr):
		return metrics.OutcomeFailed, jobs.MsgDownloadFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		switch cause := context.Cause(runCtx); {
		case errors.Is(cause, errTimedOut):
			return metrics.OutcomeTimeout, jobs.MsgTimedOut
		case errors.Is(cause, errShutdown):
			return metrics.OutcomeCancelled, jobs.MsgInterrupted
		default:
			return metrics.OutcomeCancelled, jobs.MsgCancelled
		}
	default:
		return metrics.OutcomeFailed, jobs.MsgDownloadFailed
	}
}

func eventFor(outcome string) string {
	switch outcome {
	case metrics.OutcomeCancelled:
		return "job.cancelled"
	case metrics.OutcomeTimeout:
		return "job.timed_out"
	default:
		return "job.failed"
	}
}
