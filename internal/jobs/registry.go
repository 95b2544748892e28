// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/ytrelay/internal/log"
	"github.com/ManuGH/ytrelay/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EvictFunc is called for every record removed by a sweep.
type EvictFunc func(job Job)

// Registry owns the job records. It is the only writer to its Store, which
// keeps read-modify-write updates and sweeps from interleaving.
type Registry struct {
	store     Store
	retention time.Duration
	now       func() time.Time
	newID     func() string
	logger    zerolog.Logger

	mu sync.Mutex

	hooksMu sync.RWMutex
	onEvict []EvictFunc
}

// Option customises a Registry.
type Option func(*Registry)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator replaces the uuid generator, used by tests.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) { r.newID = gen }
}

// NewRegistry creates a registry over store. Records older than retention
// are removed by Sweep.
func NewRegistry(store Store, retention time.Duration, opts ...Option) *Registry {
	r := &Registry{
		store:     store,
		retention: retention,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		logger:    log.WithComponent("jobs"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store exposes the backing store for health checks.
func (r *Registry) Store() Store { return r.store }

// Retention returns the configured retention window.
func (r *Registry) Retention() time.Duration { return r.retention }

// OnEvict registers a hook invoked after a record is swept.
func (r *Registry) OnEvict(fn EvictFunc) {
	r.hooksMu.Lock()
	defer r.hooksMu.Unlock()
	r.onEvict = append(r.onEvict, fn)
}

// Create allocates a record in the starting state with progress 0.
func (r *Registry) Create(ctx context.Context) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < 3; attempt++ {
		id := r.newID()
		if _, err := r.store.Get(ctx, id); err == nil {
			continue // id collision with a live record
		} else if !errors.Is(err, ErrNotFound) {
			return Job{}, fmt.Errorf("check job id: %w", err)
		}

		job := Job{
			ID:        id,
			Progress:  0,
			Status:    StatusStarting,
			Timestamp: r.now().UnixMilli(),
		}
		if err := r.store.Put(ctx, job); err != nil {
			return Job{}, fmt.Errorf("store job: %w", err)
		}
		r.logger.Debug().
			Str(log.FieldEvent, "job.created").
			Str(log.FieldJobID, id).
			Msg("job created")
		return job, nil
	}
	return Job{}, errors.New("could not allocate a unique job id")
}

// Get returns a snapshot of the record, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (Job, error) {
	return r.store.Get(ctx, id)
}

// Update applies fn to the stored record and writes it back. A record that
// was swept in the meantime stays gone and ErrNotFound is returned.
func (r *Registry) Update(ctx context.Context, id string, fn func(*Job)) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	fn(&job)
	job.ID = id
	if err := r.store.Put(ctx, job); err != nil {
		return Job{}, fmt.Errorf("store job: %w", err)
	}
	return job, nil
}

// Len returns the number of retained records.
func (r *Registry) Len(ctx context.Context) (int, error) {
	list, err := r.store.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Sweep removes every record created before now minus the retention window,
// whatever its status, and returns the removed records.
func (r *Registry) Sweep(ctx context.Context) ([]Job, error) {
	cutoff := r.now().Add(-r.retention).UnixMilli()

	r.mu.Lock()
	list, err := r.store.List(ctx)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var evicted []Job
	for _, job := range list {
		if job.Timestamp >= cutoff {
			continue
		}
		if err := r.store.Delete(ctx, job.ID); err != nil {
			r.mu.Unlock()
			return evicted, fmt.Errorf("delete job %s: %w", job.ID, err)
		}
		evicted = append(evicted, job)
	}
	remaining := len(list) - len(evicted)
	r.mu.Unlock()

	metrics.SetRegistrySize(remaining)

	r.hooksMu.RLock()
	hooks := append([]EvictFunc(nil), r.onEvict...)
	r.hooksMu.RUnlock()

	for _, job := range evicted {
		metrics.RecordJobSwept(string(job.Status))
		ev := r.logger.Debug()
		if job.Status.IsActive() {
			ev = r.logger.Warn()
		}
		ev.Str(log.FieldEvent, "job.swept").
			Str(log.FieldJobID, job.ID).
			Str(log.FieldStatus, string(job.Status)).
			Msg("job record expired")
		for _, hook := range hooks {
			hook(job)
		}
	}
	return evicted, nil
}

// Run sweeps on every interval tick until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info().
		Dur("interval", interval).
		Dur("retention", r.retention).
		Msg("job sweeper started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("job sweeper stopped")
			return nil
		case <-ticker.C:
			evicted, err := r.Sweep(ctx)
			if err != nil {
				r.logger.Error().Err(err).Str(log.FieldEvent, "job.sweep_failed").Msg("sweep failed")
				continue
			}
			if len(evicted) > 0 {
				r.logger.Info().Int("evicted", len(evicted)).Msg("sweep finished")
			}
		}
	}
}

// Recover marks records left active by a previous process as failed. Only
// persistent stores can hold such records. Shared stores are skipped: their
// active records may belong to a peer instance that is still running them.
func (r *Registry) Recover(ctx context.Context) (int, error) {
	if s, ok := r.store.(SharedStore); ok && s.Shared() {
		r.logger.Debug().Str(log.FieldEvent, "job.recover_skipped").Msg("job store is shared, leaving active jobs alone")
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list jobs: %w", err)
	}
	n := 0
	for _, job := range list {
		if !job.Status.IsActive() {
			continue
		}
		job.Fail(MsgInterrupted)
		if err := r.store.Put(ctx, job); err != nil {
			return n, fmt.Errorf("store job %s: %w", job.ID, err)
		}
		n++
	}
	if n > 0 {
		r.logger.Warn().Int("jobs", n).Str(log.FieldEvent, "job.recovered").Msg("marked interrupted jobs as failed")
	}
	return n, nil
}

// User-facing failure messages.
const (
	MsgDownloadFailed = "Download failed - check if video is available"
	MsgCancelled      = "Download cancelled"
	MsgTimedOut       = "Download timed out"
	MsgInterrupted    = "Download interrupted by server restart"
)

// ProcessErrorMessage formats a spawn failure.
func ProcessErrorMessage(err error) string {
	return "Process error: " + err.Error()
}
