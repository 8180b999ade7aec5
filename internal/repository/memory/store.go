// Package memory provides an in-process repository.Store.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"ridemeter/internal/repository"
)

// Store is an in-memory implementation of repository.Store.
// It is safe for concurrent use and supports error injection for tests.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte

	// Counters for verification
	GetCallCount    int32
	SetCallCount    int32
	RemoveCallCount int32

	// Error injection
	GetError    error
	SetError    error
	RemoveError error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	atomic.AddInt32(&s.GetCallCount, 1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.GetError != nil {
		return nil, s.GetError
	}
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores a copy of value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	atomic.AddInt32(&s.SetCallCount, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetError != nil {
		return s.SetError
	}
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) error {
	atomic.AddInt32(&s.RemoveCallCount, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RemoveError != nil {
		return s.RemoveError
	}
	delete(s.data, key)
	return nil
}

// SetFailures configures injected errors. Pass nil to clear.
func (s *Store) SetFailures(getErr, setErr, removeErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetError = getErr
	s.SetError = setErr
	s.RemoveError = removeErr
}

// Has reports whether key holds a value, for test assertions.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var _ repository.Store = (*Store)(nil)
