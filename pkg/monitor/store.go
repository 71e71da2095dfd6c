package monitor

import (
	"context"
	"sync"
)

// EventStore persists security events. Implementations must be safe for
// concurrent use.
type EventStore interface {
	// Append adds an event to the log
	Append(ctx context.Context, event SecurityEvent) error

	// Query returns events matching the filter, newest first
	Query(ctx context.Context, filter EventFilter) ([]SecurityEvent, error)

	// Recent returns the n most recent events, newest first
	Recent(ctx context.Context, n int) ([]SecurityEvent, error)

	// Len returns the number of events currently retained
	Len(ctx context.Context) (int, error)
}

// MemoryStore is a capacity-bounded in-memory event log. When full, the
// oldest event is evicted on append.
type MemoryStore struct {
	mu   sync.RWMutex
	buf  []SecurityEvent
	next int
	full bool
}

// DefaultCapacity bounds the in-memory log when no capacity is given
const DefaultCapacity = 10000

// NewMemoryStore creates a bounded in-memory store. A non-positive
// capacity falls back to DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		buf: make([]SecurityEvent, 0, capacity),
	}
}

// Append adds an event, evicting the oldest entry when at capacity
func (s *MemoryStore) Append(_ context.Context, event SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.full {
		s.buf = append(s.buf, event)
		if len(s.buf) == cap(s.buf) {
			s.full = true
		}
		return nil
	}
	s.buf[s.next] = event
	s.next = (s.next + 1) % len(s.buf)
	return nil
}

// Query returns matching events newest first
func (s *MemoryStore) Query(_ context.Context, filter EventFilter) ([]SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []SecurityEvent
	n := len(s.buf)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recently written slot
		idx := (s.next - 1 - i + 2*n) % n
		e := s.buf[idx]
		if !filter.Matches(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Recent returns the n most recent events, newest first
func (s *MemoryStore) Recent(ctx context.Context, n int) ([]SecurityEvent, error) {
	return s.Query(ctx, EventFilter{Limit: n})
}

// Len returns the number of retained events
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buf), nil
}
