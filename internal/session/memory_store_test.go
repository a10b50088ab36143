package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(30 * time.Minute)
	ctx := context.Background()

	sess := &Session{Key: "k1", Stage: StageModule, Draft: Draft{ProductID: "p1"}}
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Draft.ProductID)
	assert.Equal(t, StageModule, got.Stage)

	// Mutating the returned copy must not affect the stored session.
	got.Draft.ProductID = "changed"
	again, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "p1", again.Draft.ProductID)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	store := NewMemoryStore(time.Minute)

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	base := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	current := base
	store.now = func() time.Time { return current }

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &Session{Key: "k1"}))

	current = base.Add(9 * time.Minute)
	_, err := store.Get(ctx, "k1")
	require.NoError(t, err)

	current = base.Add(11 * time.Minute)
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePutRefreshesTTL(t *testing.T) {
	store := NewMemoryStore(10 * time.Minute)
	base := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	current := base
	store.now = func() time.Time { return current }

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, &Session{Key: "k1"}))

	current = base.Add(8 * time.Minute)
	require.NoError(t, store.Put(ctx, &Session{Key: "k1", Stage: StageIssue}))

	current = base.Add(15 * time.Minute)
	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, StageIssue, got.Stage)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Session{Key: "k1"}))
	require.NoError(t, store.Delete(ctx, "k1"))

	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}
