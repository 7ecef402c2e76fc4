package audit

import (
	"context"
	"sync"
)

// MemoryStore is an in-process append-only Store used in tests and DSN-less
// runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

// List returns entries newest-first.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]Entry, 0, limit)
	for i := len(s.entries) - 1; i >= 0 && len(res) < limit; i-- {
		res = append(res, s.entries[i])
	}
	return res, nil
}
