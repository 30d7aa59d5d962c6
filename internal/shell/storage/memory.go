package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory ObjectStore for dev mode and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]bool)}
}

// Put marks a key as present.
func (s *MemoryStore) Put(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.keys[key] = true
	}
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[key], nil
}
