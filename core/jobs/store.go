// Package jobs stores the jobs referenced by dispatch requests. The dispatch
// engine mutates a job exactly once, on acceptance; milestone transitions come
// through the tracking API.
package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/aapatcall/roadassist/core/model"
)

// ErrNotFound is returned for unknown job IDs.
var ErrNotFound = errors.New("jobs: not found")

// Store is the job persistence contract.
type Store interface {
	Create(ctx context.Context, j model.Job) error
	Get(ctx context.Context, id string) (model.Job, error)
	Update(ctx context.Context, j model.Job) error
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.Job
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]model.Job{}}
}

func (s *MemoryStore) Create(_ context.Context, j model.Job) error {
	s.mu.Lock()
	s.data[j.ID] = j
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.data[id]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return j, nil
}

func (s *MemoryStore) Update(_ context.Context, j model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[j.ID]; !ok {
		return ErrNotFound
	}
	s.data[j.ID] = j
	return nil
}
