package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/orders/internal/cache"
)

func TestLockAcquireAndRelease(t *testing.T) {
	client, _ := newTestClient(t)
	lock := cache.NewLock(client)
	ctx := context.Background()
	key := cache.InventoryLockKey("pharm_1", "med_1")

	token, ok, err := lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire on a held lock must fail")

	require.NoError(t, lock.Release(ctx, key, token))

	_, ok, err = lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be acquirable again after release")
}

func TestLockReleaseRequiresMatchingToken(t *testing.T) {
	client, _ := newTestClient(t)
	lock := cache.NewLock(client)
	ctx := context.Background()
	key := cache.InventoryLockKey("pharm_1", "med_2")

	_, ok, err := lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, key, "not-the-real-token"))

	_, ok, err = lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "a release with the wrong token must not clear someone else's lock")
}
