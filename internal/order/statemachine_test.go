package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medplatform/orders/internal/domain"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusCreated, StatusAcceptedByPharmacy, true},
		{StatusCreated, StatusDriverAssigned, false},
		{StatusAcceptedByPharmacy, StatusPrepared, true},
		{StatusPrepared, StatusDriverAssigned, true},
		{StatusDriverAssigned, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusInTransit, StatusFailed, true},
		{StatusDelivered, StatusInTransit, false},
		{StatusCancelled, StatusCreated, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusDelivered))
	assert.True(t, IsTerminal(StatusCancelled))
	assert.True(t, IsTerminal(StatusFailed))
	assert.False(t, IsTerminal(StatusCreated))
	assert.False(t, IsTerminal(StatusInTransit))
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(StatusCreated, StatusAcceptedByPharmacy))
	assert.ErrorIs(t, ValidateTransition(StatusCreated, StatusDelivered), domain.ErrInvalidTransition)
}

func TestValidateCancel(t *testing.T) {
	for _, s := range []Status{StatusCreated, StatusAcceptedByPharmacy, StatusPrepared} {
		assert.NoError(t, ValidateCancel(s), "should be cancellable from %s", s)
	}
	for _, s := range []Status{StatusDriverAssigned, StatusInTransit, StatusDelivered} {
		assert.ErrorIs(t, ValidateCancel(s), domain.ErrOrderCannotCancel, "should not be cancellable from %s", s)
	}
}
