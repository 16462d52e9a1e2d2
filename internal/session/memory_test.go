package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreMissReturnsInitialState(t *testing.T) {
	store := NewMemoryStore()

	state, err := store.Get(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, PhaseInitial, state.Phase)
	assert.Empty(t, state.Entity)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state := &State{
		Phase:     PhaseAwaitingEntityType,
		Entity:    "HDFC Bank",
		LastQuery: "hdfc bank",
	}
	require.NoError(t, store.Put(ctx, "s1", state))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingEntityType, got.Phase)
	assert.Equal(t, "HDFC Bank", got.Entity)

	// The returned state is a copy; mutating it does not leak back.
	got.Entity = "changed"
	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "HDFC Bank", again.Entity)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s1", &State{Phase: PhaseAwaitingEntityType, Entity: "x"}))
	require.NoError(t, store.Delete(ctx, "s1"))

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseInitial, state.Phase)
}

func TestStateReset(t *testing.T) {
	state := &State{
		Phase:      PhaseAwaitingEntityType,
		Entity:     "HDFC Bank",
		EntityType: "stock",
		LastQuery:  "stock",
	}
	state.Reset()

	assert.Equal(t, PhaseInitial, state.Phase)
	assert.Empty(t, state.Entity)
	assert.Empty(t, state.EntityType)
	assert.Equal(t, "stock", state.LastQuery)
}
