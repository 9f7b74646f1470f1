package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	resp, err := store.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, resp, "first caller owns the key")

	_, err = store.Begin(ctx, "k1")
	assert.ErrorIs(t, err, ErrInFlight)

	stored := Response{Status: 201, ContentType: "application/json", Body: []byte(`{"ok":true}`), Fingerprint: "abc"}
	require.NoError(t, store.Complete(ctx, "k1", stored, time.Hour))

	resp, err = store.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, stored, *resp)
}

func TestMemoryStore_Release(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "k1"))

	resp, err := store.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, err := store.Begin(ctx, "k1")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "k1", Response{Status: 200}, time.Hour))

	now = now.Add(2 * time.Hour)
	resp, err := store.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, resp, "expired responses are not replayed")

	// an abandoned claim stops blocking once pendingTTL passes
	now = now.Add(pendingTTL + time.Second)
	resp, err = store.Begin(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "quartz:checkout:abc", GenerateKey("quartz", "checkout", "abc"))
}
