// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("job not found")

// Store persists job records. Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, job Job) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (Job, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Job, error)
	Close() error
}

// Pinger is implemented by stores backed by an external service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SharedStore is implemented by stores that several relay instances may
// use at once. Shared reports whether that is the case.
type SharedStore interface {
	Shared() bool
}

// MemoryStore keeps records in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

func (s *MemoryStore) Put(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

// List returns all records ordered by creation time.
func (s *MemoryStore) List(_ context.Context) ([]Job, error) {
	s.mu.RLock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	s.mu.RUnlock()
	sortByCreation(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func sortByCreation(list []Job) {
	sort.Slice(list, func(i, k int) bool {
		if list[i].Timestamp == list[k].Timestamp {
			return list[i].ID < list[k].ID
		}
		return list[i].Timestamp < list[k].Timestamp
	})
}
