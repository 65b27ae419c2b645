package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySessionStore_RoundTrip(t *testing.T) {
	store := NewInMemorySessionStore()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "+250788123456")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "+250788123456", []byte(`{"screen":"menu"}`), time.Minute))

	val, found, err := store.Get(ctx, "+250788123456")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"screen":"menu"}`, string(val))

	require.NoError(t, store.Delete(ctx, "+250788123456"))
	_, found, err = store.Get(ctx, "+250788123456")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemorySessionStore_Expiry(t *testing.T) {
	store := NewInMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemorySessionStore_DeleteMissing(t *testing.T) {
	store := NewInMemorySessionStore()
	assert.NoError(t, store.Delete(context.Background(), "missing"))
}
