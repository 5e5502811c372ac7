package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Adapter is the persistence boundary for stores. Implementations may be
// backed by files, databases, or anything else; the in-memory adapter is
// the default.
type Adapter interface {
	// Save persists the full key-value snapshot.
	Save(ctx context.Context, data map[string]json.RawMessage) error
	// Load returns the last persisted snapshot.
	Load(ctx context.Context) (map[string]json.RawMessage, error)
	// Set persists a single entry.
	Set(ctx context.Context, key string, value json.RawMessage) error
	// Get returns a single entry; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value json.RawMessage, ok bool, err error)
}

// SerializationError reports a value that could not be marshaled for
// persistence.
type SerializationError struct {
	Key string
	Err error
}

// Error returns a formatted message including the offending key.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("store: serialize %q: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *SerializationError) Unwrap() error {
	return e.Err
}

// MemoryAdapter is an Adapter that keeps data in process memory. It is safe
// for concurrent use.
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// NewMemoryAdapter creates an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{data: make(map[string]json.RawMessage)}
}

// Save replaces the stored snapshot.
func (m *MemoryAdapter) Save(_ context.Context, data map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]json.RawMessage, len(data))
	for k, v := range data {
		m.data[k] = v
	}
	return nil
}

// Load returns a copy of the stored snapshot.
func (m *MemoryAdapter) Load(_ context.Context) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

// Set stores a single entry.
func (m *MemoryAdapter) Set(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Get returns a single entry.
func (m *MemoryAdapter) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}
