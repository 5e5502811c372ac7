package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Store holds caller-wide settings that influence tool behavior. The
// gateway carries one and exposes it to handlers through the context, so
// defaults reach tools explicitly rather than via ambient globals. It is
// safe for concurrent use and persists through an Adapter.
type Store struct {
	mu      sync.RWMutex
	adapter Adapter
	cache   map[string]any
}

// New creates a Store backed by the given adapter, or an in-memory adapter
// when nil.
func New(adapter Adapter) *Store {
	if adapter == nil {
		adapter = NewMemoryAdapter()
	}
	return &Store{
		adapter: adapter,
		cache:   make(map[string]any),
	}
}

// NewFrom creates a Store seeded with the given entries.
func NewFrom(data map[string]any) *Store {
	s := New(nil)
	for k, v := range data {
		s.cache[k] = v
	}
	return s
}

// Get returns the value at key; ok is false when the key is absent.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.cache[key]
	return v, ok
}

// GetString returns the string at key, or "" when absent or not a string.
func (s *Store) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetBool returns the bool at key, or false when absent or not a bool.
func (s *Store) GetBool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// Set stores a value under key, replacing any previous value.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = value
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Sync persists the current entries to the adapter.
func (s *Store) Sync(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := make(map[string]json.RawMessage, len(s.cache))
	for k, v := range s.cache {
		raw, err := json.Marshal(v)
		if err != nil {
			return &SerializationError{Key: k, Err: err}
		}
		data[k] = raw
	}
	return s.adapter.Save(ctx, data)
}

// Reload replaces the entries with the adapter's last persisted snapshot.
func (s *Store) Reload(ctx context.Context) error {
	data, err := s.adapter.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]any, len(data))
	for k, raw := range data {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return &SerializationError{Key: k, Err: err}
		}
		s.cache[k] = v
	}
	return nil
}
