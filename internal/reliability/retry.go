package reliability

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RetryConfig holds retry policy configuration for outbound HTTP calls.
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
	JitterFraction  float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialBackoff:  50 * time.Millisecond,
		MaxBackoff:      1 * time.Second,
		BackoffMultiple: 2.0,
		JitterFraction:  0.3,
	}
}

// RetryableHTTPCall executes an HTTP call with exponential backoff and
// jitter, retrying on 5xx/429/network errors only.
func RetryableHTTPCall(ctx context.Context, span trace.Span, cfg RetryConfig, fn func(context.Context) (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	var resp *http.Response

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		span.SetAttributes(attribute.Int("retry.attempt", attempt))

		resp, lastErr = fn(ctx)

		if lastErr == nil && resp != nil && resp.StatusCode < 500 && resp.StatusCode != 429 {
			if attempt > 0 {
				span.SetAttributes(attribute.Bool("retry.succeeded", true))
			}
			return resp, nil
		}

		if lastErr != nil {
			span.AddEvent("retry_due_to_error", trace.WithAttributes(
				attribute.String("error", lastErr.Error()),
			))
		} else if resp != nil {
			span.AddEvent("retry_due_to_status", trace.WithAttributes(
				attribute.Int("status_code", resp.StatusCode),
			))
			if resp.Body != nil {
				resp.Body.Close()
			}
		}

		if attempt < cfg.MaxAttempts-1 {
			backoff := calculateBackoff(cfg, attempt)
			span.SetAttributes(attribute.Int("retry.backoff_ms", int(backoff.Milliseconds())))

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				span.SetStatus(codes.Error, "context cancelled during retry backoff")
				return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
			}
		}
	}

	span.SetAttributes(attribute.Bool("retry.exhausted", true))
	span.SetStatus(codes.Error, "all retry attempts failed")

	if lastErr != nil {
		return nil, fmt.Errorf("retry exhausted after %d attempts: %w", cfg.MaxAttempts, lastErr)
	}
	return resp, nil
}

func calculateBackoff(cfg RetryConfig, attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiple, float64(attempt))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		jitterRange := backoff * cfg.JitterFraction
		jitter := (rand.Float64() * 2 * jitterRange) - jitterRange
		backoff += jitter
	}
	if backoff < 0 {
		backoff = 0
	}
	return time.Duration(backoff)
}
