package inventory

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/medplatform/orders/internal/cache"
	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/eventbus"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// ReservedLine is the line-item fact captured at reservation time: the
// batch and price the order line locks in, per §4.3/§4.4.
type ReservedLine struct {
	PharmacyID  string
	MedicineID  string
	BatchNumber string
	Qty         int
	UnitPrice   float64
}

// Coordinator implements §4.4: reservation, release and commit of stock
// against a (pharmacy, medicine, batch) key, guarded by a distributed lock
// plus a conditional atomic update as a TOCTOU safety net (§5).
type Coordinator struct {
	inventory *mongostore.InventoryRepository
	lock      *cache.Lock
	publisher *eventbus.Publisher
	tracer    trace.Tracer
	logger    *slog.Logger
}

func NewCoordinator(inv *mongostore.InventoryRepository, lock *cache.Lock, publisher *eventbus.Publisher, logger *slog.Logger) *Coordinator {
	return &Coordinator{inventory: inv, lock: lock, publisher: publisher, tracer: otel.Tracer("inventory"), logger: logger}
}

// Reserve executes §4.4 steps 1-5 for a single line. The lock is released
// on every exit path.
func (c *Coordinator) Reserve(ctx context.Context, pharmacyID, medicineID string, qty int) (ReservedLine, error) {
	ctx, span := c.tracer.Start(ctx, "inventory.reserve", trace.WithAttributes(
		attribute.String("pharmacy.id", pharmacyID),
		attribute.String("medicine.id", medicineID),
		attribute.Int("qty", qty),
	))
	defer span.End()

	key := cache.InventoryLockKey(pharmacyID, medicineID)
	token, ok, err := c.lock.Acquire(ctx, key, domain.InventoryLockTTL)
	if err != nil {
		span.SetStatus(codes.Error, "lock store unavailable")
		return ReservedLine{}, domain.ErrServiceUnavailable
	}
	if !ok {
		span.SetAttributes(attribute.Bool("lock.contended", true))
		return ReservedLine{}, domain.ErrInventoryLocked
	}
	defer c.lock.Release(ctx, key, token)

	batch, err := c.inventory.FindViableBatch(ctx, pharmacyID, medicineID, qty)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ReservedLine{}, err
	}

	committed, err := c.inventory.ReserveConditional(ctx, batch.ID, qty)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return ReservedLine{}, err
	}
	if !committed {
		// Another caller raced us between FindViableBatch and the
		// conditional update; the predicate caught it (§4.4 step 3).
		return ReservedLine{}, domain.ErrInsufficientStock
	}

	span.SetStatus(codes.Ok, "reserved")
	return ReservedLine{
		PharmacyID:  pharmacyID,
		MedicineID:  medicineID,
		BatchNumber: batch.BatchNumber,
		Qty:         qty,
		UnitPrice:   batch.SellingPrice,
	}, nil
}

// Release returns a single reserved line to available, keyed by the exact
// batch captured at reservation time (§4.4 "Release").
func (c *Coordinator) Release(ctx context.Context, line ReservedLine) error {
	return c.inventory.Release(ctx, line.PharmacyID, line.MedicineID, line.BatchNumber, line.Qty)
}

// ReleaseAll rolls back every successful reservation in order, so the
// caller sees atomic all-or-nothing semantics at order granularity
// (§4.3 "Reservation proceeds item-by-item").
func (c *Coordinator) ReleaseAll(ctx context.Context, lines []ReservedLine) {
	for _, line := range lines {
		if err := c.Release(ctx, line); err != nil {
			c.logger.Error("inventory: rollback release failed",
				slog.String("pharmacy_id", line.PharmacyID), slog.String("medicine_id", line.MedicineID), slog.Any("error", err))
		}
	}
}

// Commit removes committed stock from reserved on successful delivery and
// emits inventory.updated. A publish failure is logged, not surfaced to the
// caller, per §4.4 "Commit".
func (c *Coordinator) Commit(ctx context.Context, pharmacyID, medicineID, batchNumber string, qty int) error {
	ctx, span := c.tracer.Start(ctx, "inventory.commit")
	defer span.End()

	if err := c.inventory.Commit(ctx, pharmacyID, medicineID, batchNumber, qty); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := c.publisher.Publish(ctx, eventbus.TopicInventory, eventbus.KeyInventoryUpdated, "inventory.updated", map[string]string{
		"pharmacy_id": pharmacyID,
		"medicine_id": medicineID,
	}); err != nil {
		c.logger.Error("inventory: publish inventory.updated failed", slog.Any("error", err))
	}
	return nil
}
