package errmap_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/errmap"
)

func TestToHTTPErrorKnownSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code string
		stat int
	}{
		{domain.ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized},
		{domain.ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
		{domain.ErrOrderCannotCancel, "ORDER_CANNOT_CANCEL", http.StatusConflict},
		{domain.ErrInsufficientStock, "INSUFFICIENT_STOCK", http.StatusConflict},
		{domain.ErrOrderNotFound, "ORDER_NOT_FOUND", http.StatusNotFound},
		{domain.ErrDatabaseError, "DATABASE_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		got := errmap.ToHTTPError(tc.err)
		assert.Equal(t, tc.code, got.Code)
		assert.Equal(t, tc.stat, got.StatusCode)
	}
}

func TestToHTTPErrorWrappedSentinel(t *testing.T) {
	wrapped := errors.New("lookup: " + domain.ErrUserNotFound.Error())
	got := errmap.ToHTTPError(wrapped)
	assert.Equal(t, "INTERNAL_ERROR", got.Code, "a non-wrapped lookalike error must not match errors.Is")

	properlyWrapped := errors.Join(domain.ErrUserNotFound)
	got = errmap.ToHTTPError(properlyWrapped)
	assert.Equal(t, "USER_NOT_FOUND", got.Code)
}

func TestToHTTPErrorUnknownDefaultsToInternal(t *testing.T) {
	got := errmap.ToHTTPError(errors.New("something unexpected"))
	assert.Equal(t, "INTERNAL_ERROR", got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
}
