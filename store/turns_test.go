package store

import (
	"context"
	"testing"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnStoreAppendAndTurns(t *testing.T) {
	ts := NewTurnStore(nil)
	assert.Equal(t, 0, ts.Len())

	ts.Append(turnkit.NewUserTurn("hello"))
	ts.Append(turnkit.NewAssistantTurn("hi"))

	turns := ts.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Equal(t, "hi", turns[1].Text)

	// Mutating the returned slice does not affect the store.
	turns[0].Text = "mutated"
	assert.Equal(t, "hello", ts.Turns()[0].Text)
}

func TestTurnStoreOnChange(t *testing.T) {
	ts := NewTurnStore(nil)

	var snapshots [][]turnkit.Turn
	ts.OnChange(func(turns []turnkit.Turn) {
		snapshots = append(snapshots, turns)
	})

	ts.Append(turnkit.NewUserTurn("one"))
	ts.Append(turnkit.NewUserTurn("two"))
	ts.Clear()

	require.Len(t, snapshots, 3)
	assert.Len(t, snapshots[0], 1)
	assert.Len(t, snapshots[1], 2)
	assert.Empty(t, snapshots[2])
}

func TestTurnStoreLast(t *testing.T) {
	ts := NewTurnStore(nil)
	ts.Append(
		turnkit.NewUserTurn("a"),
		turnkit.NewAssistantTurn("b"),
		turnkit.NewUserTurn("c"),
	)

	last := ts.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, "b", last[0].Text)
	assert.Equal(t, "c", last[1].Text)

	assert.Len(t, ts.Last(10), 3)
	assert.Nil(t, ts.Last(0))
}

func TestTurnStoreSyncAndReload(t *testing.T) {
	adapter := NewMemoryAdapter()

	ts := NewTurnStore(adapter)
	ts.Append(turnkit.NewUserTurn("persist me"))
	require.NoError(t, ts.Sync(context.Background(), "conv-1"))

	restored := NewTurnStore(adapter)
	require.NoError(t, restored.Reload(context.Background(), "conv-1"))
	require.Equal(t, 1, restored.Len())
	assert.Equal(t, "persist me", restored.Turns()[0].Text)
}

func TestTurnStoreReloadMissingKey(t *testing.T) {
	ts := NewTurnStore(nil)
	require.NoError(t, ts.Reload(context.Background(), "absent"))
	assert.Equal(t, 0, ts.Len())
}

func TestNewTurnStoreFrom(t *testing.T) {
	seed := []turnkit.Turn{turnkit.NewUserTurn("seeded")}
	ts := NewTurnStoreFrom(seed, nil)

	require.Equal(t, 1, ts.Len())

	// The store owns its copy of the seed slice.
	seed[0].Text = "changed"
	assert.Equal(t, "seeded", ts.Turns()[0].Text)
}
