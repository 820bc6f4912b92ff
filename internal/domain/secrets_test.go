package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medplatform/orders/internal/domain"
)

func TestMask(t *testing.T) {
	assert.Equal(t, "***5678", domain.Mask("12345678"))
	assert.Equal(t, "****", domain.Mask("abcd"))
	assert.Equal(t, "****", domain.Mask(""))
}

func TestSecretStringLogValueIsMasked(t *testing.T) {
	s := domain.NewSecretString("super-secret-token")
	assert.Equal(t, "super-secret-token", s.Expose())
	assert.Equal(t, domain.Mask("super-secret-token"), s.LogValue().String())
	assert.NotContains(t, s.LogValue().String(), "super-secret")
}

func TestSecretStringIsEmpty(t *testing.T) {
	var s domain.SecretString
	assert.True(t, s.IsEmpty())
	assert.False(t, domain.NewSecretString("x").IsEmpty())
}
