package reliability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// Bulkhead limits concurrent operations to prevent one slow downstream
// (the document store under lock contention, an outbound webhook call)
// from exhausting every goroutine in the process.
type Bulkhead struct {
	sem *semaphore.Weighted
	max int64
}

func NewBulkhead(maxConcurrent int64) *Bulkhead {
	return &Bulkhead{sem: semaphore.NewWeighted(maxConcurrent), max: maxConcurrent}
}

// Execute runs fn within the bulkhead's concurrency limit, blocking until a
// slot frees up or ctx is done.
func (b *Bulkhead) Execute(ctx context.Context, span trace.Span, fn func(context.Context) error) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		span.SetStatus(codes.Error, "bulkhead acquire failed")
		span.SetAttributes(attribute.Bool("bulkhead.rejected", true))
		return fmt.Errorf("bulkhead limit reached: %w", err)
	}
	defer b.sem.Release(1)

	span.SetAttributes(attribute.Int64("bulkhead.max", b.max))
	return fn(ctx)
}
