package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process cache tier for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	has     bool
}

// NewMemoryStore creates an empty in-memory store holding no snapshot.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the held snapshot, or ErrNoSnapshot when invalidated or never
// populated.
func (s *MemoryStore) Load(ctx context.Context) (EntrySet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.has {
		return EntrySet{}, ErrNoSnapshot
	}

	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	return NewEntrySet(entries), nil
}

// ReplaceAll overwrites the held snapshot.
func (s *MemoryStore) ReplaceAll(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]Entry, len(entries))
	copy(s.entries, entries)
	s.has = true
	return nil
}

// AppendOne adds a single entry to the held snapshot.
func (s *MemoryStore) AppendOne(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	s.has = true
	return nil
}

// Invalidate drops the held snapshot.
func (s *MemoryStore) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.has = false
	return nil
}
