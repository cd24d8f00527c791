// Package storage provides key-value backends for user preferences.
package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
)

// Compile-time interface check.
var _ domain.PreferenceStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory preference store. Safe for concurrent access.
// Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	log    *logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
		log:    log,
	}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		s.log.Debug("preference not found: %s", key)
		return "", domain.ErrNotFound
	}
	return v, nil
}

// Set stores value under key, overwriting any previous value.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("saving preference %s=%q", key, value)
	s.values[key] = value
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
