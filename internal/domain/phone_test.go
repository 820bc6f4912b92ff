package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medplatform/orders/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already E.164", "+14155552671", "+14155552671"},
		{"strips spaces and dashes", "415-555-2671", "+4155552671"},
		{"strips parens", "(415) 555-2671", "+4155552671"},
		{"bare short number left alone", "5551234", "5551234"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.NormalizePhone(tc.in))
		})
	}
}

func TestNewPhoneNumber(t *testing.T) {
	t.Run("valid E.164 succeeds", func(t *testing.T) {
		p, err := domain.NewPhoneNumber("+14155552671")
		require.NoError(t, err)
		assert.Equal(t, "+14155552671", p.String())
		assert.False(t, p.IsZero())
	})

	t.Run("invalid phone fails", func(t *testing.T) {
		_, err := domain.NewPhoneNumber("not-a-phone")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("zero value reports zero", func(t *testing.T) {
		var p domain.PhoneNumber
		assert.True(t, p.IsZero())
	})
}
