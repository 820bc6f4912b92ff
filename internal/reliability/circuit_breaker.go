package reliability

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CircuitBreaker wraps gobreaker to protect against cascading failures when
// an outbound call (payment webhook confirmation, external notification
// hook) is consistently failing.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewCircuitBreaker creates a circuit breaker with the same thresholds the
// teacher uses for its payment-service calls.
func NewCircuitBreaker(name string) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures >= 5 || (counts.Requests >= 10 && failureRatio >= 0.6)
		},
	}
	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the circuit breaker, recording state on span.
func (c *CircuitBreaker) Execute(span trace.Span, fn func() error) error {
	state := c.cb.State()
	span.SetAttributes(attribute.String("cb.state", state.String()))

	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			span.SetAttributes(attribute.Bool("cb.open", true))
			return fmt.Errorf("circuit breaker open: %w", err)
		}
		return err
	}
	return nil
}

func (c *CircuitBreaker) State() gobreaker.State { return c.cb.State() }
