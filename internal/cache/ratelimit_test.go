package cache_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/orders/internal/cache"
)

func newTestClient(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := cache.NewClient(cache.Config{Addr: mr.Addr()})
	t.Cleanup(func() { require.NoError(t, client.Close()) })
	return client, mr
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	client, _ := newTestClient(t)
	rl := cache.NewRateLimiter(client, slog.Default())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(ctx, "user_1", "login", 3, time.Minute))
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	client, _ := newTestClient(t)
	rl := cache.NewRateLimiter(client, slog.Default())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow(ctx, "user_1", "login", 3, time.Minute))
	}
	assert.False(t, rl.Allow(ctx, "user_1", "login", 3, time.Minute))
}

func TestRateLimiterKeysAreIndependentPerSubjectAndEndpoint(t *testing.T) {
	client, _ := newTestClient(t)
	rl := cache.NewRateLimiter(client, slog.Default())
	ctx := context.Background()

	require.True(t, rl.Allow(ctx, "user_1", "login", 1, time.Minute))
	assert.False(t, rl.Allow(ctx, "user_1", "login", 1, time.Minute))
	assert.True(t, rl.Allow(ctx, "user_2", "login", 1, time.Minute))
	assert.True(t, rl.Allow(ctx, "user_1", "otp_request", 1, time.Minute))
}

func TestRateLimiterFailsOpenWhenStoreUnavailable(t *testing.T) {
	client, mr := newTestClient(t)
	rl := cache.NewRateLimiter(client, slog.Default())
	mr.Close()

	assert.True(t, rl.Allow(context.Background(), "user_1", "login", 1, time.Minute))
}
