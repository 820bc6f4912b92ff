package reliability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medplatform/orders/internal/reliability"
)

func TestIdempotencyCacheSetAndGet(t *testing.T) {
	c := reliability.NewIdempotencyCache()

	_, ok := c.Get("missing-key")
	assert.False(t, ok)

	resp := &reliability.CachedResponse{Payload: []byte(`{"order_id":"ord_1"}`)}
	c.Set("key-1", resp)

	got, ok := c.Get("key-1")
	assert.True(t, ok)
	assert.Equal(t, resp.Payload, got.Payload)
}

func TestIdempotencyCacheDistinguishesKeys(t *testing.T) {
	c := reliability.NewIdempotencyCache()
	c.Set("key-a", &reliability.CachedResponse{Payload: []byte("a")})
	c.Set("key-b", &reliability.CachedResponse{Payload: []byte("b")})

	a, ok := c.Get("key-a")
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), a.Payload)

	b, ok := c.Get("key-b")
	assert.True(t, ok)
	assert.Equal(t, []byte("b"), b.Payload)
}
