package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store with an optional byte quota.
// The quota exists so tests can exercise quota-exceeded handling the
// same way a real bounded backend would report it.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	maxBytes int
	used     int
}

// NewMemoryStore creates a store limited to maxBytes of stored values.
// maxBytes <= 0 means unlimited.
func NewMemoryStore(maxBytes int) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.used - len(s.data[key]) + len(value)
	if s.maxBytes > 0 && next > s.maxBytes {
		return ErrCapacityExceeded
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	s.used = next
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		s.used -= len(v)
		delete(s.data, key)
	}
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
