package memory

import (
	"context"
	"sync"
	"time"
)

// KVStore is an in-memory key-value store with per-key TTL. It implements
// persist.Store and is the fallback when no redis is configured.
type KVStore struct {
	mu      sync.RWMutex
	clock   func() time.Time
	entries map[string]kvEntry
}

type kvEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func NewKVStore() *KVStore {
	return &KVStore{
		clock:   time.Now,
		entries: make(map[string]kvEntry),
	}
}

// NewKVStoreWithClock allows deterministic expiry in tests.
func NewKVStoreWithClock(now func() time.Time) *KVStore {
	store := NewKVStore()
	store.clock = now
	return store
}

func (s *KVStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(s.clock()) {
		delete(s.entries, key)
		return nil, nil
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

func (s *KVStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := kvEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.clock().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *KVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
