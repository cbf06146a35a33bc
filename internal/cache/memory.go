package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in a mutex-guarded map. Contents do not survive
// a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	opts    Options
	now     func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		opts:    opts,
		now:     opts.clock(),
	}
}

// Get returns a copy of the entry for key.
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	e.Data = bytes.Clone(e.Data)
	return e, true, nil
}

// Put replaces the entry for entry.Key and evicts older entries over budget.
func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	if err := entry.validate(); err != nil {
		return err
	}
	entry.Data = bytes.Clone(entry.Data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Key] = entry
	for _, key := range evictionVictims(s.metaLocked(), s.opts.MaxBytes, entry.Key) {
		delete(s.entries, key)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return summarize(BackendMemory, s.metaLocked()), nil
}

func (s *MemoryStore) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if e.FetchedAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) metaLocked() []entryMeta {
	out := make([]entryMeta, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, entryMeta{key: e.Key, size: e.Size(), fetchedAt: e.FetchedAt})
	}
	return out
}
