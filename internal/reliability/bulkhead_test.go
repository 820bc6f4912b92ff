package reliability_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/medplatform/orders/internal/reliability"
)

func TestBulkheadLimitsConcurrency(t *testing.T) {
	_, span := otel.Tracer("reliability_test").Start(context.Background(), "test")
	defer span.End()

	b := reliability.NewBulkhead(2)
	var concurrent int32
	var maxConcurrent int32
	release := make(chan struct{})
	started := make(chan struct{}, 3)

	run := func() {
		_ = b.Execute(context.Background(), span, func(ctx context.Context) error {
			cur := atomic.AddInt32(&concurrent, 1)
			for {
				old := atomic.LoadInt32(&maxConcurrent)
				if cur <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, cur) {
					break
				}
			}
			started <- struct{}{}
			<-release
			atomic.AddInt32(&concurrent, -1)
			return nil
		})
	}

	for i := 0; i < 3; i++ {
		go run()
	}

	<-started
	<-started
	select {
	case <-started:
		t.Fatal("third goroutine should not have started while the bulkhead is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-started
	assert.LessOrEqual(t, atomic.LoadInt32(&maxConcurrent), int32(2))
}

func TestBulkheadRejectsOnContextCancel(t *testing.T) {
	_, span := otel.Tracer("reliability_test").Start(context.Background(), "test")
	defer span.End()

	b := reliability.NewBulkhead(1)
	hold := make(chan struct{})
	go func() {
		_ = b.Execute(context.Background(), span, func(ctx context.Context) error {
			<-hold
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond) // let the first goroutine acquire the only slot

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := b.Execute(ctx, span, func(ctx context.Context) error { return nil })
	require.Error(t, err)
	close(hold)
}
