package reliability_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/medplatform/orders/internal/reliability"
)

func fastRetryConfig() reliability.RetryConfig {
	return reliability.RetryConfig{
		MaxAttempts:     3,
		InitialBackoff:  1 * time.Millisecond,
		MaxBackoff:      5 * time.Millisecond,
		BackoffMultiple: 2,
		JitterFraction:  0,
	}
}

func TestRetryableHTTPCallSucceedsWithoutRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, span := otel.Tracer("reliability_test").Start(context.Background(), "test")
	defer span.End()

	resp, err := reliability.RetryableHTTPCall(context.Background(), span, fastRetryConfig(), func(ctx context.Context) (*http.Response, error) {
		return http.Get(srv.URL)
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRetryableHTTPCallRetriesOn5xxThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, span := otel.Tracer("reliability_test").Start(context.Background(), "test")
	defer span.End()

	resp, err := reliability.RetryableHTTPCall(context.Background(), span, fastRetryConfig(), func(ctx context.Context) (*http.Response, error) {
		return http.Get(srv.URL)
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, attempts)
}

func TestRetryableHTTPCallDoesNotRetry4xx(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, span := otel.Tracer("reliability_test").Start(context.Background(), "test")
	defer span.End()

	resp, err := reliability.RetryableHTTPCall(context.Background(), span, fastRetryConfig(), func(ctx context.Context) (*http.Response, error) {
		return http.Get(srv.URL)
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, attempts)
}

func TestRetryableHTTPCallExhaustsOnNetworkError(t *testing.T) {
	_, span := otel.Tracer("reliability_test").Start(context.Background(), "test")
	defer span.End()

	boom := errors.New("dial failed")
	_, err := reliability.RetryableHTTPCall(context.Background(), span, fastRetryConfig(), func(ctx context.Context) (*http.Response, error) {
		return nil, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
