// Package profilestore provides persistence backends for the
// calibrator's opaque key/value ProfileStore port.
package profilestore

import (
	"context"
	"sync"

	"github.com/djentronome/rhythm-core/internal/domain"
	"github.com/djentronome/rhythm-core/internal/logger"
)

// Compile-time interface check.
var _ domain.ProfileStore = (*MemoryStore)(nil)

// MemoryStore is an in-process, mutex-protected key/value store. It
// satisfies domain.ProfileStore for tests and for single-process demo
// harnesses where a real disk-backed store is unnecessary.
type MemoryStore struct {
	mu   sync.RWMutex
	log  *logger.Logger
	data map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{log: log, data: make(map[string][]byte)}
}

// Get returns the value for key, or found=false if it does not exist.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Put stores value under key, overwriting any existing value.
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	s.log.Debug("profilestore: wrote %d bytes for key %q", len(value), key)
	return nil
}
