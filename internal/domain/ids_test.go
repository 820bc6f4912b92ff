package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/orders/internal/domain"
)

func TestUserID(t *testing.T) {
	t.Run("empty string fails", func(t *testing.T) {
		_, err := domain.NewUserID("")
		assert.ErrorIs(t, err, domain.ErrEmptyID)
	})

	t.Run("non-empty string succeeds", func(t *testing.T) {
		id, err := domain.NewUserID("usr_123")
		require.NoError(t, err)
		assert.Equal(t, "usr_123", id.String())
		assert.False(t, id.IsZero())
	})

	t.Run("generated IDs are distinct", func(t *testing.T) {
		a := domain.GenerateUserID()
		b := domain.GenerateUserID()
		assert.NotEqual(t, a.String(), b.String())
	})

	t.Run("zero value reports zero", func(t *testing.T) {
		var id domain.UserID
		assert.True(t, id.IsZero())
	})
}

func TestOrderIDAndDeliveryID(t *testing.T) {
	orderID := domain.GenerateOrderID()
	assert.False(t, orderID.IsZero())

	deliveryID := domain.GenerateDeliveryID()
	assert.False(t, deliveryID.IsZero())
	assert.NotEqual(t, orderID.String(), deliveryID.String())
}
