package order

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/medplatform/orders/internal/auth"
	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/eventbus"
	"github.com/medplatform/orders/internal/inventory"
	"github.com/medplatform/orders/internal/observability"
	"github.com/medplatform/orders/internal/reliability"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// ItemRequest is one requested line, §4.3: medicine id, pharmacy id, qty
// 1..100.
type ItemRequest struct {
	MedicineID string `json:"medicine_id" binding:"required"`
	PharmacyID string `json:"pharmacy_id" binding:"required"`
	Qty        int    `json:"qty" binding:"required,min=1,max=100"`
}

// CreateOrderRequest is the §4.3 order-creation DTO.
type CreateOrderRequest struct {
	Items           []ItemRequest     `json:"items" binding:"required,min=1"`
	ShippingAddress mongostore.AddressDoc `json:"shipping_address"`
}

// Service implements §4.2/§4.3/§4.5/§8: the order state machine, idempotent
// creation, payment intake, cancellation and rating.
type Service struct {
	orders      *mongostore.OrderRepository
	pharmacies  *mongostore.PharmacyRepository
	deliveries  *mongostore.DeliveryRepository
	coordinator *inventory.Coordinator
	publisher   *eventbus.Publisher
	idemCache   *reliability.IdempotencyCache
	clock       domain.Clock
	tracer      trace.Tracer
	logger      *slog.Logger
	counters    *observability.Counters
}

func NewService(
	orders *mongostore.OrderRepository,
	pharmacies *mongostore.PharmacyRepository,
	deliveries *mongostore.DeliveryRepository,
	coordinator *inventory.Coordinator,
	publisher *eventbus.Publisher,
	idemCache *reliability.IdempotencyCache,
	clock domain.Clock,
	logger *slog.Logger,
	counters *observability.Counters,
) *Service {
	if counters == nil {
		counters = &observability.Counters{}
	}
	return &Service{
		orders: orders, pharmacies: pharmacies, deliveries: deliveries,
		coordinator: coordinator, publisher: publisher, idemCache: idemCache,
		clock: clock, tracer: otel.Tracer("order"), logger: logger, counters: counters,
	}
}

func (s *Service) incr(counter metric.Int64Counter, ctx context.Context) {
	if counter != nil {
		counter.Add(ctx, 1)
	}
}

// CreateOrder implements §4.3 in precondition order: idempotency replay,
// single-pharmacy enforcement, pharmacy resolution, then item-by-item
// reservation with all-or-nothing rollback.
func (s *Service) CreateOrder(ctx context.Context, customerID, idempotencyKey string, req CreateOrderRequest) (*mongostore.OrderDoc, error) {
	ctx, span := s.tracer.Start(ctx, "order.create", trace.WithAttributes(
		attribute.String("customer.id", customerID),
	))
	defer span.End()

	if idempotencyKey != "" {
		if cached, ok := s.idemCache.Get(idempotencyKey); ok {
			var doc mongostore.OrderDoc
			if err := json.Unmarshal(cached.Payload, &doc); err == nil {
				span.AddEvent("idempotent_request_cached_in_process")
				return &doc, nil
			}
		}
		if existing, err := s.orders.FindByIdempotencyKey(ctx, idempotencyKey); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, domain.ErrDatabaseError
		} else if existing != nil {
			span.AddEvent("idempotent_request_cached_in_store")
			return existing, nil
		}
	}

	pharmacyID, err := groupByPharmacy(req.Items)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	pharmacy, err := s.pharmacies.FindByID(ctx, pharmacyID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !pharmacy.Active {
		return nil, domain.ErrPharmacyInactive
	}

	reserved, lines, total, err := s.reserveAll(ctx, pharmacyID, req.Items)
	if err != nil {
		s.coordinator.ReleaseAll(ctx, reserved)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		s.coordinator.ReleaseAll(ctx, reserved)
		return nil, domain.ErrInternal
	}

	now := s.clock.Now()
	doc := &mongostore.OrderDoc{
		ID:              domain.GenerateOrderID().String(),
		CustomerID:      customerID,
		PharmacyID:      pharmacyID,
		Items:           lines,
		Total:           total,
		Status:          string(StatusCreated),
		PaymentStatus:   string(PaymentPending),
		ShippingAddress: req.ShippingAddress,
		IdempotencyKey:  idempotencyKey,
		DeliveryOTP:     otp,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Create(ctx, doc); err != nil {
		// Someone beat us to this idempotency key between our lookup and
		// insert; release our reservations and return the winner's order.
		s.coordinator.ReleaseAll(ctx, reserved)
		if existing, lookupErr := s.orders.FindByIdempotencyKey(ctx, idempotencyKey); lookupErr == nil && existing != nil {
			return existing, nil
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.ErrDatabaseError
	}

	if idempotencyKey != "" {
		if payload, err := json.Marshal(doc); err == nil {
			s.idemCache.Set(idempotencyKey, &reliability.CachedResponse{Payload: payload, CreatedAt: now})
		}
	}

	if err := s.publisher.Publish(ctx, eventbus.TopicOrders, eventbus.KeyOrderCreated, "order.created", map[string]interface{}{
		"order_id": doc.ID, "user_id": customerID, "pharmacy_id": pharmacyID, "items": lines, "total": total,
	}); err != nil {
		s.logger.Error("order: publish order.created failed", slog.Any("error", err))
	}

	s.incr(s.counters.OrdersCreatedTotal, ctx)
	span.SetStatus(codes.Ok, "order created")
	return doc, nil
}

func groupByPharmacy(items []ItemRequest) (string, error) {
	pharmacyID := ""
	for _, item := range items {
		if pharmacyID == "" {
			pharmacyID = item.PharmacyID
			continue
		}
		if item.PharmacyID != pharmacyID {
			return "", domain.ErrMultiPharmacyOrder
		}
	}
	if pharmacyID == "" {
		return "", domain.ErrInvalidInput
	}
	return pharmacyID, nil
}

func (s *Service) reserveAll(ctx context.Context, pharmacyID string, items []ItemRequest) ([]inventory.ReservedLine, []mongostore.OrderLineDoc, float64, error) {
	reserved := make([]inventory.ReservedLine, 0, len(items))
	lines := make([]mongostore.OrderLineDoc, 0, len(items))
	total := 0.0

	for _, item := range items {
		line, err := s.coordinator.Reserve(ctx, pharmacyID, item.MedicineID, item.Qty)
		if err != nil {
			s.incr(s.counters.ReservationFailures, ctx)
			return reserved, nil, 0, err
		}
		reserved = append(reserved, line)

		subtotal := line.UnitPrice * float64(item.Qty)
		tax := subtotal * domain.TaxRate
		lines = append(lines, mongostore.OrderLineDoc{
			MedicineID: item.MedicineID, BatchNumber: line.BatchNumber, Qty: item.Qty,
			UnitPrice: line.UnitPrice, TaxAmount: tax,
		})
		total += subtotal + tax
	}
	return reserved, lines, total, nil
}

// Cancel implements the customer-facing half of §4.2's cancellation rule.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) error {
	doc, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := ValidateCancel(Status(doc.Status)); err != nil {
		return err
	}
	ok, err := s.orders.CancelConditional(ctx, orderID, doc.Status, reason)
	if err != nil {
		return domain.ErrDatabaseError
	}
	if !ok {
		return domain.ErrInvalidTransition
	}

	s.releaseOrderInventory(ctx, doc)

	if err := s.publisher.Publish(ctx, eventbus.TopicOrders, eventbus.KeyOrderCancelled, "order.cancelled", map[string]string{
		"order_id": orderID, "user_id": doc.CustomerID, "pharmacy_id": doc.PharmacyID,
	}); err != nil {
		s.logger.Error("order: publish order.cancelled failed", slog.Any("error", err))
	}
	return nil
}

func (s *Service) releaseOrderInventory(ctx context.Context, doc *mongostore.OrderDoc) {
	for _, line := range doc.Items {
		err := s.coordinator.Release(ctx, inventory.ReservedLine{
			PharmacyID: doc.PharmacyID, MedicineID: line.MedicineID, BatchNumber: line.BatchNumber, Qty: line.Qty,
		})
		if err != nil {
			s.logger.Error("order: inventory release on cancel failed", slog.String("order_id", doc.ID), slog.Any("error", err))
		}
	}
}

// Rate records a 1..5 rating and optional review on a delivered order.
func (s *Service) Rate(ctx context.Context, orderID string, rating int, review string) error {
	if rating < 1 || rating > 5 {
		return domain.ErrValidation
	}
	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		return err
	}
	return s.orders.SetRating(ctx, orderID, rating, review)
}

// HandlePaymentWebhook implements §4.5: updates payment status, and on the
// pending->paid transition materializes a Delivery and emits order.paid.
func (s *Service) HandlePaymentWebhook(ctx context.Context, orderID, paymentStatus, transactionID string) error {
	ctx, span := s.tracer.Start(ctx, "order.payment_webhook", trace.WithAttributes(
		attribute.String("order.id", orderID), attribute.String("payment.status", paymentStatus),
	))
	defer span.End()

	doc, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	wasPending := doc.PaymentStatus == string(PaymentPending)
	if err := s.orders.UpdatePaymentStatus(ctx, orderID, paymentStatus); err != nil {
		return domain.ErrDatabaseError
	}

	if !(wasPending && paymentStatus == string(PaymentPaid)) {
		return nil
	}

	now := s.clock.Now()
	delivery := &mongostore.DeliveryDoc{
		ID:         domain.GenerateDeliveryID().String(),
		OrderID:    orderID,
		PharmacyID: doc.PharmacyID,
		Status:     "assigned",
		AssignedAt: now,
		UpdatedAt:  now,
	}
	if err := s.deliveries.Create(ctx, delivery); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.ErrDatabaseError
	}
	if err := s.orders.SetDeliveryID(ctx, orderID, delivery.ID); err != nil {
		s.logger.Error("order: stitching delivery id failed", slog.Any("error", err))
	}

	if err := s.publisher.Publish(ctx, eventbus.TopicOrders, eventbus.KeyOrderPaid, "order.paid", map[string]interface{}{
		"order_id": orderID, "delivery_id": delivery.ID, "pharmacy_id": doc.PharmacyID, "total": doc.Total,
	}); err != nil {
		s.logger.Error("order: publish order.paid failed", slog.Any("error", err))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*mongostore.OrderDoc, error) {
	return s.orders.FindByID(ctx, orderID)
}

func (s *Service) List(ctx context.Context, customerID, status string, page, size int) ([]mongostore.OrderDoc, error) {
	return s.orders.ListByCustomer(ctx, customerID, status, page, size)
}
