package store

import (
	"context"
	"encoding/json"
	"sync"

	turnkit "github.com/stephencalder/turnkit"
)

// TurnStore manages a conversation's turn list. Turns are append-only; the
// optional change listener fires synchronously after every mutation, in
// order, which is how the orchestrator drives its Sink.
type TurnStore struct {
	mu       sync.RWMutex
	turns    []turnkit.Turn
	adapter  Adapter
	onChange func(turns []turnkit.Turn)
}

// NewTurnStore creates a new TurnStore with the given adapter.
// If adapter is nil, a default in-memory adapter is used.
func NewTurnStore(adapter Adapter) *TurnStore {
	if adapter == nil {
		adapter = NewMemoryAdapter()
	}
	return &TurnStore{
		turns:   make([]turnkit.Turn, 0),
		adapter: adapter,
	}
}

// NewTurnStoreFrom creates a TurnStore initialized with existing turns.
func NewTurnStoreFrom(turns []turnkit.Turn, adapter Adapter) *TurnStore {
	ts := NewTurnStore(adapter)
	if len(turns) > 0 {
		ts.turns = make([]turnkit.Turn, len(turns))
		copy(ts.turns, turns)
	}
	return ts
}

// OnChange sets the change listener. It is invoked with a snapshot of the
// full turn list after every Append and Clear.
func (t *TurnStore) OnChange(fn func(turns []turnkit.Turn)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Turns returns a copy of all turns.
func (t *TurnStore) Turns() []turnkit.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]turnkit.Turn, len(t.turns))
	copy(result, t.turns)
	return result
}

// Append adds turns to the store and notifies the change listener.
func (t *TurnStore) Append(turns ...turnkit.Turn) {
	if len(turns) == 0 {
		return
	}
	t.mu.Lock()
	t.turns = append(t.turns, turns...)
	snapshot := make([]turnkit.Turn, len(t.turns))
	copy(snapshot, t.turns)
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Len returns the number of turns.
func (t *TurnStore) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Last returns the last n turns. If n > Len(), returns all turns.
func (t *TurnStore) Last(n int) []turnkit.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	start := len(t.turns) - n
	if start < 0 {
		start = 0
	}
	result := make([]turnkit.Turn, len(t.turns)-start)
	copy(result, t.turns[start:])
	return result
}

// Clear removes all turns and notifies the change listener.
func (t *TurnStore) Clear() {
	t.mu.Lock()
	t.turns = make([]turnkit.Turn, 0)
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(nil)
	}
}

// Sync persists the turns to the adapter under the given key.
func (t *TurnStore) Sync(ctx context.Context, key string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	raw, err := json.Marshal(t.turns)
	if err != nil {
		return &SerializationError{Key: key, Err: err}
	}
	return t.adapter.Set(ctx, key, raw)
}

// Reload loads turns from the adapter using the given key. Missing keys
// leave the store empty.
func (t *TurnStore) Reload(ctx context.Context, key string) error {
	raw, ok, err := t.adapter.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var turns []turnkit.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return &SerializationError{Key: key, Err: err}
	}

	t.mu.Lock()
	t.turns = turns
	t.mu.Unlock()
	return nil
}
