// Package securestore provides the encrypted key-value slots that back every
// persisted collection. Each slot holds one serialized value.
package securestore

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound = errors.New("slot not found")
	ErrCorrupt  = errors.New("slot value cannot be decrypted")
)

// Store is a key-value slot store
type Store interface {
	// Get returns the slot value or ErrNotFound
	Get(ctx context.Context, key string) (string, error)
	// Set replaces the slot value
	Set(ctx context.Context, key, value string) error
	// Delete removes the slot; deleting a missing slot is not an error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps slots in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.slots[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}

// Keys returns the slot keys currently held
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.slots))
	for k := range s.slots {
		keys = append(keys, k)
	}
	return keys
}
