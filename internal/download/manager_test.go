// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/ytrelay/internal/jobs"
	"github.com/ManuGH/ytrelay/internal/ytdlp"
)

// fakeRunner replays a script of events and then returns result. With
// block set it waits for release or ctx before returning.
type fakeRunner struct {
	mu      sync.Mutex
	started []string
	events  func(req ytdlp.DownloadRequest) []ytdlp.Event
	result  error
	block   bool
	release chan struct{}
	running chan string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{release: make(chan struct{}), running: make(chan string, 16)}
}

func (f *fakeRunner) Download(ctx context.Context, req ytdlp.DownloadRequest, sink func(ytdlp.Event)) error {
	f.mu.Lock()
	f.started = append(f.started, req.JobID)
	f.mu.Unlock()
	f.running <- req.JobID

	if f.events != nil {
		for _, ev := range f.events(req) {
			sink(ev)
		}
	}
	if f.block {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.result
}

func (f *fakeRunner) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setup(t *testing.T, runner Downloader, opts Options) (*Manager, *jobs.Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	reg := jobs.NewRegistry(jobs.NewMemoryStore(), time.Hour, jobs.WithClock(clock.Now))
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	m := NewManager(reg, runner, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m, reg, clock
}

func waitTerminal(t *testing.T, reg *jobs.Registry, id string) jobs.Job {
	t.Helper()
	var job jobs.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = reg.Get(context.Background(), id)
		return err == nil && job.Status.IsTerminal()
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func mp4(url string) Request {
	return Request{URL: url, Format: "mp4", Quality: "best"}
}

func TestSubmit_Validation(t *testing.T) {
	runner := newFakeRunner()
	m, reg, _ := setup(t, runner, Options{MaxConcurrent: 1})
	ctx := context.Background()

	_, err := m.Submit(ctx, Request{Format: "mp4"})
	assert.ErrorIs(t, err, ErrInvalidURL)
	_, err = m.Submit(ctx, Request{URL: "--exec=rm", Format: "mp4"})
	assert.ErrorIs(t, err, ErrInvalidURL)
	_, err = m.Submit(ctx, Request{URL: "https://youtu.be/x", Format: "webm"})
	assert.ErrorIs(t, err, ytdlp.ErrInvalidFormat)

	n, err := reg.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "rejected submissions must not create jobs")
	assert.Zero(t, runner.startedCount())
}

func TestSubmit_CompletesWithProgressAndFilename(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	runner := newFakeRunner()
	runner.events = func(ytdlp.DownloadRequest) []ytdlp.Event {
		return []ytdlp.Event{
			{Progress: 10, HasProgress: true},
			{Progress: 42.5, HasProgress: true},
			{Filename: "Chan_2024-01-01_Title_DL-2025-01-15-12-00.mp4"},
		}
	}
	m, reg, _ := setup(t, runner, Options{MaxConcurrent: 2})

	job, err := m.Submit(context.Background(), mp4("https://youtu.be/x"))
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusStarting, job.Status)

	final := waitTerminal(t, reg, job.ID)
	assert.Equal(t, jobs.StatusCompleted, final.Status)
	assert.Equal(t, 100.0, final.Progress)
	require.NotNil(t, final.Filename)
	assert.Equal(t, "Chan_2024-01-01_Title_DL-2025-01-15-12-00.mp4", *final.Filename)
	assert.Nil(t, final.Error)
}

func TestSubmit_ProgressAndFilenameWithoutExit(t *testing.T) {
	runner := newFakeRunner()
	runner.block = true
	runner.events = func(ytdlp.DownloadRequest) []ytdlp.Event {
		return []ytdlp.Event{{Progress: 42.5, HasProgress: true}, {Filename: "a.mp4"}}
	}
	m, reg, _ := setup(t, runner, Options{MaxConcurrent: 1})

	job, err := m.Submit(context.Background(), mp4("u"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		j, err := reg.Get(context.Background(), job.ID)
		return err == nil && j.Filename != nil
	}, 5*time.Second, 5*time.Millisecond)

	got, err := reg.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 42.5, got.Progress)
	assert.Equal(t, jobs.StatusDownloading, got.Status)
	assert.Equal(t, "a.mp4", *got.Filename)
}

func TestSubmit_FailureMessages(t *testing.T) {
	tests := []struct {
		name   string
		result error
		want   string
	}{
		{"non-zero exit", &ytdlp.ExitError{Code: 1}, jobs.MsgDownloadFailed},
		{"spawn failure", &ytdlp.SpawnError{Err: errors.New("exec: \"yt-dlp\": executable file not found in $PATH")}, "Process error: exec: \"yt-dlp\": executable file not found in $PATH"},
		{"unexpected", errors.New("wait: broken"), jobs.MsgDownloadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.result = tt.result
			m, reg, _ := setup(t, runner, Options{MaxConcurrent: 1})

			job, err := m.Submit(context.Background(), mp4("u"))
			require.NoError(t, err)

			final := waitTerminal(t, reg, job.ID)
			assert.Equal(t, jobs.StatusError, final.Status)
			require.NotNil(t, final.Error)
			assert.Equal(t, tt.want, *final.Error)
		})
	}
}

func TestAdmission_BoundsConcurrency(t *testing.T) {
	runner := newFakeRunner()
	runner.block = true
	m, reg, _ := setup(t, runner, Options{MaxConcurrent: 1, MaxPending: 2})
	ctx := context.Background()

	first, err := m.Submit(ctx, mp4("a"))
	require.NoError(t, err)
	<-runner.running

	second, err := m.Submit(ctx, mp4("b"))
	require.NoError(t, err)

	_, err = m.Submit(ctx, mp4("c"))
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 2, m.Active())

	// the second job is queued behind the semaphore
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, runner.startedCount())
	queued, err := reg.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusStarting, queued.Status)

	runner.release <- struct{}{}
	assert.Equal(t, jobs.StatusCompleted, waitTerminal(t, reg, first.ID).Status)
	assert.Equal(t, second.ID, <-runner.running)
	runner.release <- struct{}{}
	assert.Equal(t, jobs.StatusCompleted, waitTerminal(t, reg, second.ID).Status)
}

func TestCancel(t *testing.T) {
	runner := newFakeRunner()
	runner.block = true
	m, reg, _ := setup(t, runner, Options{MaxConcurrent: 1})
	ctx := context.Background()

	job, err := m.Submit(ctx, mp4("u"))
	require.NoError(t, err)
	<-runner.running

	require.NoError(t, m.Cancel(ctx, job.ID))
	final := waitTerminal(t, reg, job.ID)
	assert.Equal(t, jobs.StatusError, final.Status)
	assert.Equal(t, jobs.MsgCancelled, *final.Error)

	require.Eventually(t, func() bool { return m.Active() == 0 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, m.Cancel(ctx, job.ID), ErrNotRunning)
	assert.ErrorIs(t, m.Cancel(ctx, "never-issued"), jobs.ErrNotFound)
}

func TestCancel_QueuedJob(t *testing.T) {
	runner := newFakeRunner()
	runner.block = true
	m, reg, _ := setup(t, runner, Options{MaxConcurrent: 1})
	ctx := context.Background()

	_, err := m.Submit(ctx, mp4("a"))
	require.NoError(t, err)
	<-runner.running
	queued, err := m.Submit(ctx, mp4("b"))
	require.NoError(t, err)

	require.NoError(t, m.Cancel(ctx, queued.ID))
	final := waitTerminal(t, reg, queued.ID)
	assert.Equal(t, jobs.MsgCancelled, *final.Error)
	assert.Equal(t, 1, runner.startedCount())
}

func TestMaxRuntime(t *testing.T) {
	runner := newFakeRunner()
	runner.block = true
	m, reg, _ := setup(t, runner, Options{MaxConcurrent: 1, MaxRuntime: 30 * time.Millisecond})

	job, err := m.Submit(context.Background(), mp4("u"))
	require.NoError(t, err)

	final := waitTerminal(t, reg, job.ID)
	assert.Equal(t, jobs.MsgTimedOut, *final.Error)
}

func TestShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	runner := newFakeRunner()
	runner.block = true
	m, reg, _ := setup(t, runner, Options{MaxConcurrent: 2})
	ctx := context.Background()

	job, err := m.Submit(ctx, mp4("u"))
	require.NoError(t, err)
	<-runner.running

	require.NoError(t, m.Shutdown(ctx))
	got, err := reg.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusError, got.Status)
	assert.Equal(t, jobs.MsgInterrupted, *got.Error)

	_, err = m.Submit(ctx, mp4("late"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSweep_CancelsEvictedRunningJob(t *testing.T) {
	runner := newFakeRunner()
	runner.block = true
	m, reg, clock := setup(t, runner, Options{MaxConcurrent: 1})
	ctx := context.Background()

	job, err := m.Submit(ctx, mp4("u"))
	require.NoError(t, err)
	<-runner.running

	clock.Advance(time.Hour + time.Second)
	evicted, err := reg.Sweep(ctx)
	require.NoError(t, err)
	require.Len(t, evicted, 1)

	require.Eventually(t, func() bool { return m.Active() == 0 }, 5*time.Second, 5*time.Millisecond)
	_, err = reg.Get(ctx, job.ID)
	assert.ErrorIs(t, err, jobs.ErrNotFound, "a swept job must not be recreated by its worker")
}

func TestConcurrentSubmissions_NoCrossContamination(t *testing.T) {
	const n = 5
	runner := newFakeRunner()
	runner.events = func(req ytdlp.DownloadRequest) []ytdlp.Event {
		return []ytdlp.Event{
			{Progress: 50, HasProgress: true},
			{Filename: req.JobID + ".mp4"},
		}
	}
	m, reg, _ := setup(t, runner, Options{MaxConcurrent: n})
	ctx := context.Background()

	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, err := m.Submit(ctx, mp4(fmt.Sprintf("https://youtu.be/%d", i)))
			assert.NoError(t, err)
			ids[i] = job.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		final := waitTerminal(t, reg, id)
		assert.Equal(t, jobs.StatusCompleted, final.Status)
		require.NotNil(t, final.Filename)
		assert.Equal(t, id+".mp4", *final.Filename)
	}
}

// gatedStore parks the next Put once armed, standing in for a slow remote store.
type gatedStore struct {
	*jobs.MemoryStore
	armed   atomic.Bool
	entered chan struct{}
	gate    chan struct{}
}

func (s *gatedStore) Put(ctx context.Context, job jobs.Job) error {
	if s.armed.CompareAndSwap(true, false) {
		s.entered <- struct{}{}
		<-s.gate
	}
	return s.MemoryStore.Put(ctx, job)
}

func TestSubmit_SlowStoreDoesNotBlockCancel(t *testing.T) {
	store := &gatedStore{MemoryStore: jobs.NewMemoryStore(), entered: make(chan struct{}, 1), gate: make(chan struct{})}
	var once sync.Once
	openGate := func() { once.Do(func() { close(store.gate) }) }
	defer openGate()

	runner := newFakeRunner()
	runner.block = true
	reg := jobs.NewRegistry(store, time.Hour)
	m := NewManager(reg, runner, Options{Dir: t.TempDir(), MaxConcurrent: 2, MaxPending: 2})
	t.Cleanup(func() {
		openGate()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	ctx := context.Background()

	first, err := m.Submit(ctx, mp4("a"))
	require.NoError(t, err)
	<-runner.running

	store.armed.Store(true)
	submitted := make(chan error, 1)
	go func() {
		_, err := m.Submit(ctx, mp4("b"))
		submitted <- err
	}()
	<-store.entered

	// the in-flight creation holds an admission slot
	_, err = m.Submit(ctx, mp4("c"))
	assert.ErrorIs(t, err, ErrBusy)

	cancelled := make(chan error, 1)
	go func() { cancelled <- m.Cancel(ctx, first.ID) }()
	select {
	case err := <-cancelled:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel blocked behind a pending store write")
	}

	openGate()
	require.NoError(t, <-submitted)
	final := waitTerminal(t, reg, first.ID)
	assert.Equal(t, jobs.MsgCancelled, *final.Error)
}
