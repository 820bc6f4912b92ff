package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/orders/internal/auth"
)

func TestHashAndVerifyPassword(t *testing.T) {
	digest, err := auth.HashPassword("correct-horse-battery-staple", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery-staple", digest)

	assert.True(t, auth.VerifyPassword(digest, "correct-horse-battery-staple"))
	assert.False(t, auth.VerifyPassword(digest, "wrong-password"))
}

func TestHashPasswordDefaultsCost(t *testing.T) {
	digest, err := auth.HashPassword("some-password", 0)
	require.NoError(t, err)
	assert.True(t, auth.VerifyPassword(digest, "some-password"))
}
