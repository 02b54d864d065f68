// Package audit retains resolved dispatch requests. Requests are never
// deleted; every terminal transition appends one record.
package audit

import (
	"context"
	"sync"
	"time"
)

// Record captures one resolved dispatch request.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
	JobID      string    `json:"job_id"`
	Queue      []string  `json:"queue"`
	Cursor     int       `json:"cursor"`
	Winner     string    `json:"winner,omitempty"`
	Outcome    string    `json:"outcome"` // matched, exhausted, cancelled
	ClaimedAt  time.Time `json:"claimed_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start      time.Time
	End        time.Time
	JobID      string
	MechanicID string
	Outcome    string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// MemoryStore keeps records in memory, oldest first.
type MemoryStore struct {
	mu   sync.RWMutex
	recs []Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.recs {
		if matches(r, q) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func matches(r Record, q Query) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.JobID != "" && r.JobID != q.JobID {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	if q.MechanicID != "" {
		found := r.Winner == q.MechanicID
		for _, id := range r.Queue {
			if id == q.MechanicID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
