package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/orders/internal/cache"
)

func TestOTPStorePutAndGet(t *testing.T) {
	client, _ := newTestClient(t)
	store := cache.NewOTPStore(client)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "+14155552671")
	require.NoError(t, err)
	assert.False(t, found)

	rec := cache.OTPRecord{Digits: "123456", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Put(ctx, "+14155552671", rec))

	got, found, err := store.Get(ctx, "+14155552671")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "123456", got.Digits)
	assert.False(t, got.Used)
}

func TestOTPStoreMarkUsedRetainsRecord(t *testing.T) {
	client, _ := newTestClient(t)
	store := cache.NewOTPStore(client)
	ctx := context.Background()

	rec := cache.OTPRecord{Digits: "654321", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Put(ctx, "+14155552671", rec))

	got, _, err := store.Get(ctx, "+14155552671")
	require.NoError(t, err)
	require.NoError(t, store.MarkUsed(ctx, "+14155552671", got))

	after, found, err := store.Get(ctx, "+14155552671")
	require.NoError(t, err)
	require.True(t, found, "used record must still be retrievable within the replay-grace window")
	assert.True(t, after.Used)
	assert.Equal(t, "654321", after.Digits)
}

func TestOTPStorePutOverwritesPriorRecord(t *testing.T) {
	client, _ := newTestClient(t)
	store := cache.NewOTPStore(client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "+14155552671", cache.OTPRecord{Digits: "111111"}))
	require.NoError(t, store.Put(ctx, "+14155552671", cache.OTPRecord{Digits: "222222"}))

	got, found, err := store.Get(ctx, "+14155552671")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "222222", got.Digits)
}
