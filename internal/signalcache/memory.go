package signalcache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-process fallback backend used with --use-memory.
// It mirrors RedisStore semantics including the retention window.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	retention time.Duration
	now       func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string]*Entry),
		retention: retention,
		now:       time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, fingerprint string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[fingerprint]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	// Enforce retention lazily, matching the physical TTL Redis applies.
	if s.now().After(entry.ComputedAt.Add(s.retention)) {
		s.mu.Lock()
		delete(s.entries, fingerprint)
		s.mu.Unlock()
		return nil, ErrMiss
	}

	copied := *entry
	return &copied, nil
}

func (s *MemoryStore) Set(_ context.Context, entry *Entry) error {
	copied := *entry

	s.mu.Lock()
	s.entries[copied.Fingerprint] = &copied
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	delete(s.entries, fingerprint)
	s.mu.Unlock()
	return nil
}
