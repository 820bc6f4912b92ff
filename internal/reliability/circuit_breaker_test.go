package reliability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/medplatform/orders/internal/reliability"
)

func TestCircuitBreakerExecuteSuccess(t *testing.T) {
	_, span := otel.Tracer("reliability_test").Start(context.Background(), "test")
	defer span.End()

	cb := reliability.NewCircuitBreaker("test.success")
	err := cb.Execute(span, func() error { return nil })
	require.NoError(t, err)
}

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	_, span := otel.Tracer("reliability_test").Start(context.Background(), "test")
	defer span.End()

	cb := reliability.NewCircuitBreaker("test.trip")
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		err := cb.Execute(span, func() error { return boom })
		assert.Error(t, err)
	}

	// the breaker should now be open and reject without invoking fn
	called := false
	err := cb.Execute(span, func() error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called, "fn must not run while the breaker is open")
}
