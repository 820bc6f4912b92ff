package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/orders/internal/auth"
	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/domain/domaintest"
)

func newTestMinterAndValidator() (*auth.Minter, *auth.Validator, *domaintest.FakeClock) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := domaintest.NewFakeClock(start)
	secret := []byte("test-signing-secret")
	minter := auth.NewMinter(secret, "orders", "orders-api", clock, domain.AccessTokenLifetime, domain.RefreshTokenLifetime)
	validator := auth.NewValidator(secret, "orders", "orders-api", clock)
	return minter, validator, clock
}

func TestValidateAccessToken(t *testing.T) {
	minter, validator, clock := newTestMinterAndValidator()
	start := clock.Now()

	t.Run("valid token succeeds", func(t *testing.T) {
		clock.Set(start)
		result, err := minter.MintAccessToken("user_123", []string{"customer"})
		require.NoError(t, err)

		claims, err := validator.ValidateAccessToken(result.Token)
		require.NoError(t, err)
		assert.Equal(t, "user_123", claims.Subject)
		assert.Equal(t, []string{"customer"}, claims.Roles)
		assert.Equal(t, auth.TokenTypeAccess, claims.Type)
	})

	t.Run("expired token fails", func(t *testing.T) {
		clock.Set(start)
		result, err := minter.MintAccessToken("user_123", []string{"customer"})
		require.NoError(t, err)

		clock.Advance(domain.AccessTokenLifetime + time.Second)
		_, err = validator.ValidateAccessToken(result.Token)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrTokenExpired))
		clock.Set(start)
	})

	t.Run("refresh token rejected by ValidateAccessToken", func(t *testing.T) {
		clock.Set(start)
		result, err := minter.MintRefreshToken("user_123", []string{"customer"})
		require.NoError(t, err)

		_, err = validator.ValidateAccessToken(result.Token)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		clock.Set(start)
		result, err := minter.MintAccessToken("user_123", []string{"customer"})
		require.NoError(t, err)

		wrongValidator := auth.NewValidator([]byte("different-secret"), "orders", "orders-api", clock)
		_, err = wrongValidator.ValidateAccessToken(result.Token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer fails", func(t *testing.T) {
		clock.Set(start)
		result, err := minter.MintAccessToken("user_123", []string{"customer"})
		require.NoError(t, err)

		wrongIssuer := auth.NewValidator([]byte("test-signing-secret"), "other-issuer", "orders-api", clock)
		_, err = wrongIssuer.ValidateAccessToken(result.Token)
		assert.Error(t, err)
	})

	t.Run("tampered token fails", func(t *testing.T) {
		clock.Set(start)
		result, err := minter.MintAccessToken("user_123", []string{"customer"})
		require.NoError(t, err)

		tampered := result.Token[:len(result.Token)-5] + "AAAAA"
		_, err = validator.ValidateAccessToken(tampered)
		assert.Error(t, err)
	})
}

func TestValidateRefreshToken(t *testing.T) {
	minter, validator, clock := newTestMinterAndValidator()

	t.Run("valid refresh token succeeds", func(t *testing.T) {
		result, err := minter.MintRefreshToken("user_123", []string{"driver"})
		require.NoError(t, err)

		claims, err := validator.ValidateRefreshToken(result.Token)
		require.NoError(t, err)
		assert.Equal(t, result.JTI, claims.ID)
	})

	t.Run("access token rejected by ValidateRefreshToken", func(t *testing.T) {
		result, err := minter.MintAccessToken("user_123", []string{"driver"})
		require.NoError(t, err)

		_, err = validator.ValidateRefreshToken(result.Token)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})

	t.Run("each mint produces a distinct JTI", func(t *testing.T) {
		first, err := minter.MintRefreshToken("user_123", []string{"driver"})
		require.NoError(t, err)
		second, err := minter.MintRefreshToken("user_123", []string{"driver"})
		require.NoError(t, err)
		assert.NotEqual(t, first.JTI, second.JTI)
	})
}
