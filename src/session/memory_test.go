package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingSuggestion(name string, createdAt time.Time) *Suggestion {
	return &Suggestion{
		SessionID: "s1",
		Kind:      KindCapability,
		Name:      name,
		Status:    StatusPending,
		CreatedAt: createdAt,
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	got, err := store.GetPending(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Put(ctx, "s1", pendingSuggestion("calculate_international_age", time.Now())))

	got, err = store.GetPending(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "calculate_international_age", got.Name)
	assert.Equal(t, StatusPending, got.Status)

	require.NoError(t, store.Clear(ctx, "s1"))
	got, err = store.GetPending(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStorePutReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	require.NoError(t, store.Put(ctx, "s1", pendingSuggestion("first", time.Now())))
	require.NoError(t, store.Put(ctx, "s1", pendingSuggestion("second", time.Now())))

	got, err := store.GetPending(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Name)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(30 * time.Minute)

	base := time.Now()
	store.now = func() time.Time { return base }
	require.NoError(t, store.Put(ctx, "s1", pendingSuggestion("stale", base)))

	store.now = func() time.Time { return base.Add(31 * time.Minute) }
	got, err := store.GetPending(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	require.NoError(t, store.Put(ctx, "s1", pendingSuggestion("orig", time.Now())))

	got, err := store.GetPending(ctx, "s1")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := store.GetPending(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "orig", again.Name)
}
