package journal

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store in memory. Entries are lost on exit.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
}

// NewMemoryStore creates an empty store keeping at most maxEntries entries
// (0 means unlimited).
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{maxEntries: maxEntries}
}

// Record appends e.
func (s *MemoryStore) Record(ctx context.Context, e Entry) (Entry, error) {
	if err := e.validate(); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		s.entries = append([]Entry(nil), s.entries[len(s.entries)-s.maxEntries:]...)
	}
	return e, nil
}

// List returns matching entries, newest first.
func (s *MemoryStore) List(ctx context.Context, q Query) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if !q.matches(s.entries[i]) {
			continue
		}
		result = append(result, s.entries[i])
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result, nil
}

// Count returns the number of stored entries.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
