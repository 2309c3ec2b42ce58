package session

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned by a [Backend] when a key has no value.
var ErrNotFound = errors.New("session key not found")

// ErrBackendUnavailable wraps I/O failures reported by a [Backend].
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Backend is the key/value medium behind a [Store]. Values are opaque bytes.
// Get must return [ErrNotFound] for missing keys. Delete of a missing key is
// not an error.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
}

// Batcher is implemented by backends that can apply several writes and
// deletes as one unit. Either every change is visible afterwards or none is.
type Batcher interface {
	Apply(ctx context.Context, sets map[string][]byte, deletes []string) error
}

// MemoryBackend keeps values in process memory. It is safe for concurrent use.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty [MemoryBackend].
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

// Delete removes key.
func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Clear removes every key.
func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	m.data = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

// Apply commits sets and deletes under one lock.
func (m *MemoryBackend) Apply(_ context.Context, sets map[string][]byte, deletes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range sets {
		m.data[k] = append([]byte(nil), v...)
	}
	for _, k := range deletes {
		delete(m.data, k)
	}
	return nil
}
