package cache

import (
	"context"
	"sync"
	"time"

	"github.com/highprosper/backend/internal/domain/shared"
)

type sessionEntry struct {
	value     []byte
	expiresAt time.Time
}

// InMemorySessionStore implements SessionStore with a local map, for
// single-instance deployments and tests.
type InMemorySessionStore struct {
	mu      sync.RWMutex
	entries map[string]sessionEntry
}

// NewInMemorySessionStore creates an in-memory session store
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{entries: make(map[string]sessionEntry)}
}

// Get returns the stored value and whether the key exists and is unexpired.
// Expired entries are removed lazily.
func (s *InMemorySessionStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores a value with a TTL
func (s *InMemorySessionStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = sessionEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes a key
func (s *InMemorySessionStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close releases resources
func (s *InMemorySessionStore) Close() error {
	return nil
}

var _ shared.SessionStore = (*InMemorySessionStore)(nil)
