// Package registry holds the known mechanics and their availability. The
// dispatch engine only reads snapshots from it; mutation happens through the
// mechanic-facing API.
package registry

import (
	"sync"
	"time"

	"github.com/aapatcall/roadassist/core/model"
)

// Filter narrows List results.
type Filter struct {
	Available   bool
	VehicleType model.VehicleType
}

// Store is the mechanic registry contract.
type Store interface {
	Upsert(m model.Mechanic)
	Get(id string) (model.Mechanic, bool)
	// List returns mechanics matching the filter in registration order. The
	// stable order matters: the ranker relies on it to break ties between
	// mechanics without a known position.
	List(f Filter) []model.Mechanic
	// SetAvailability updates the availability flag and last-known position
	// of a registered mechanic. Reports false for unknown IDs.
	SetAvailability(id string, available bool, pos model.Coordinates, now time.Time) bool
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]model.Mechanic
	order []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]model.Mechanic{}}
}

func (s *MemoryStore) Upsert(m model.Mechanic) {
	s.mu.Lock()
	if _, ok := s.data[m.ID]; !ok {
		s.order = append(s.order, m.ID)
	}
	s.data[m.ID] = m
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (model.Mechanic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.data[id]
	return m, ok
}

func (s *MemoryStore) SetAvailability(id string, available bool, pos model.Coordinates, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[id]
	if !ok {
		return false
	}
	m.Available = available
	m.LastSeen = now
	if pos.Valid() {
		m.Location = pos
		m.HasLocation = true
	}
	s.data[id] = m
	return true
}

func (s *MemoryStore) List(f Filter) []model.Mechanic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Mechanic, 0, len(s.order))
	for _, id := range s.order {
		m := s.data[id]
		if f.Available && !m.Available {
			continue
		}
		if f.VehicleType != model.VehicleAny && m.VehicleType != f.VehicleType {
			continue
		}
		res = append(res, m)
	}
	return res
}
