package session

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	store, err := NewRedisStore(mr.Host(), port, "", 0, ttl)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Hour)
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
	assert.Equal(t, "hdfc bank", got.LastQuery)
}

func TestRedisStoreMissReturnsInitialState(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Hour)

	state, err := store.Get(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Equal(t, PhaseInitial, state.Phase)
	assert.Empty(t, state.Entity)
}

func TestRedisStoreExpiresIdleSessions(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s1", &State{Phase: PhaseAwaitingEntityType, Entity: "Infosys"}))

	mr.FastForward(2 * time.Minute)

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseInitial, state.Phase)
	assert.Empty(t, state.Entity)
}

func TestRedisStoreCorruptStateResets(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Hour)

	require.NoError(t, mr.Set(sessionKey("s1"), "not json"))

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseInitial, state.Phase)
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s1", &State{Phase: PhaseAwaitingEntityType, Entity: "x"}))
	require.NoError(t, store.Delete(ctx, "s1"))

	state, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, PhaseInitial, state.Phase)
}

func TestNewRedisStoreFailsWhenUnreachable(t *testing.T) {
	_, err := NewRedisStore("127.0.0.1", 1, "", 0, time.Hour)
	assert.Error(t, err)
}
