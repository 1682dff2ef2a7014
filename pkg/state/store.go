// Package state provides the persistent key-value store used by gitexplorer
// to keep its repository registry, plus helpers for handling credentials.
package state

import (
	"errors"
	"sort"
	"sync"
)

// Store is the injected key-value persistence boundary. Values are opaque
// strings; callers own their encoding.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(key string) (string, error)
	// Set stores or replaces the value under key.
	Set(key, value string) error
	// Delete removes key (idempotent).
	Delete(key string) error
	// Keys returns all stored keys in sorted order.
	Keys() ([]string, error)
}

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("state: key not found")

// InMemoryStore is a thread-safe, volatile implementation.
// Useful for tests and ephemeral sessions.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		values: make(map[string]string),
	}
}

// Get implements Store.
func (s *InMemoryStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store.
func (s *InMemoryStore) Set(key, value string) error {
	if key == "" {
		return errors.New("state: key cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys implements Store.
func (s *InMemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.values), nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RedactToken safely redacts a token for logging purposes.
func RedactToken(tok string) string {
	if tok == "" {
		return ""
	}
	if len(tok) <= 4 {
		return "***"
	}
	return tok[:4] + "***"
}
