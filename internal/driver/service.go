package driver

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/eventbus"
	invcoord "github.com/medplatform/orders/internal/inventory"
	"github.com/medplatform/orders/internal/order"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// Service implements §4.7: the driver gateway. A driver claims an assigned
// delivery, reports status and location, and confirms handoff with the
// order's delivery OTP.
type Service struct {
	orders      *mongostore.OrderRepository
	deliveries  *mongostore.DeliveryRepository
	coordinator *invcoord.Coordinator
	publisher   *eventbus.Publisher
	clock       domain.Clock
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewService(
	orders *mongostore.OrderRepository,
	deliveries *mongostore.DeliveryRepository,
	coordinator *invcoord.Coordinator,
	publisher *eventbus.Publisher,
	clock domain.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		orders: orders, deliveries: deliveries, coordinator: coordinator,
		publisher: publisher, clock: clock, tracer: otel.Tracer("driver"), logger: logger,
	}
}

// ListAvailable returns deliveries in status "assigned" with no driver yet
// bound, per §4.7 "Accept".
func (s *Service) ListAvailable(ctx context.Context) ([]mongostore.DeliveryDoc, error) {
	return s.deliveries.ListAvailable(ctx)
}

// Accept binds driverID to deliveryID with a conditional write, then drives
// the order from prepared to driver_assigned and emits delivery.created.
func (s *Service) Accept(ctx context.Context, driverID, deliveryID string) error {
	ctx, span := s.tracer.Start(ctx, "driver.accept", trace.WithAttributes(
		attribute.String("driver.id", driverID), attribute.String("delivery.id", deliveryID),
	))
	defer span.End()

	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		return err
	}

	ok, err := s.deliveries.AcceptConditional(ctx, deliveryID, driverID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.ErrDatabaseError
	}
	if !ok {
		return domain.ErrDriverNotAvailable
	}

	doc, err := s.orders.FindByID(ctx, delivery.OrderID)
	if err != nil {
		return err
	}
	if err := order.ValidateTransition(order.Status(doc.Status), order.StatusDriverAssigned); err != nil {
		return err
	}
	if transitioned, err := s.orders.TransitionConditional(ctx, doc.ID, doc.Status, string(order.StatusDriverAssigned)); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.ErrDatabaseError
	} else if !transitioned {
		return domain.ErrInvalidTransition
	}

	if err := s.publisher.Publish(ctx, eventbus.TopicDeliveries, eventbus.KeyDeliveryCreated, "delivery.created", map[string]string{
		"delivery_id": deliveryID, "order_id": doc.ID, "pharmacy_id": doc.PharmacyID,
	}); err != nil {
		s.logger.Error("driver: publish delivery.created failed", slog.Any("error", err))
	}
	span.SetStatus(codes.Ok, "accepted")
	return nil
}

// UpdateStatus drives picked_up/in_transit/failed, mirroring the delivery
// status onto the order. "delivered" is rejected here — it can only be
// reached through ConfirmDelivery's OTP check (§4.7 "Status update").
func (s *Service) UpdateStatus(ctx context.Context, driverID, deliveryID, status string, point *mongostore.GeoPointDoc) error {
	if status == "delivered" {
		return domain.ErrInvalidTransition
	}

	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		return err
	}
	if delivery.DriverID != driverID {
		return domain.ErrForbidden
	}

	doc, err := s.orders.FindByID(ctx, delivery.OrderID)
	if err != nil {
		return err
	}

	var orderTarget order.Status
	switch status {
	case "picked_up":
		orderTarget = order.StatusInTransit
	case "in_transit":
		orderTarget = order.StatusInTransit
	case "failed":
		orderTarget = order.StatusFailed
	default:
		return domain.ErrInvalidInput
	}

	if order.Status(doc.Status) != orderTarget {
		if err := order.ValidateTransition(order.Status(doc.Status), orderTarget); err != nil {
			return err
		}
		if transitioned, err := s.orders.TransitionConditional(ctx, doc.ID, doc.Status, string(orderTarget)); err != nil {
			return domain.ErrDatabaseError
		} else if !transitioned {
			return domain.ErrInvalidTransition
		}
	}

	if err := s.deliveries.UpdateStatus(ctx, deliveryID, status, s.clock.Now(), point); err != nil {
		return domain.ErrDatabaseError
	}

	if err := s.publisher.Publish(ctx, eventbus.TopicDeliveries, eventbus.KeyDeliveryUpdated, "delivery.updated", map[string]string{
		"delivery_id": deliveryID, "order_id": doc.ID, "status": status, "user_id": doc.CustomerID,
	}); err != nil {
		s.logger.Error("driver: publish delivery.updated failed", slog.Any("error", err))
	}
	return nil
}

// UpdateLocation records a live position without touching status, per
// §4.7 "Location updates" — safe to retry and to call out of order.
func (s *Service) UpdateLocation(ctx context.Context, driverID, deliveryID string, point mongostore.GeoPointDoc) error {
	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		return err
	}
	if delivery.DriverID != driverID {
		return domain.ErrForbidden
	}
	return s.deliveries.UpdateLocation(ctx, deliveryID, point)
}

// ConfirmDelivery matches the presented code against the order's delivery
// OTP in constant time, then completes delivery, order and inventory commit
// in one handoff (§4.7 "Confirm delivery").
func (s *Service) ConfirmDelivery(ctx context.Context, driverID, deliveryID, otp string) error {
	ctx, span := s.tracer.Start(ctx, "driver.confirm_delivery", trace.WithAttributes(
		attribute.String("delivery.id", deliveryID),
	))
	defer span.End()

	delivery, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		return err
	}
	if delivery.DriverID != driverID {
		return domain.ErrForbidden
	}

	doc, err := s.orders.FindByID(ctx, delivery.OrderID)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(doc.DeliveryOTP), []byte(otp)) != 1 {
		return domain.ErrDeliveryOTPInvalid
	}

	if err := order.ValidateTransition(order.Status(doc.Status), order.StatusDelivered); err != nil {
		return err
	}
	transitioned, err := s.orders.TransitionConditional(ctx, doc.ID, doc.Status, string(order.StatusDelivered))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.ErrDatabaseError
	}
	if !transitioned {
		return domain.ErrInvalidTransition
	}

	if err := s.deliveries.UpdateStatus(ctx, deliveryID, "delivered", s.clock.Now(), nil); err != nil {
		s.logger.Error("driver: delivery status update failed", slog.Any("error", err))
	}

	for _, line := range doc.Items {
		if err := s.coordinator.Commit(ctx, doc.PharmacyID, line.MedicineID, line.BatchNumber, line.Qty); err != nil {
			s.logger.Error("driver: inventory commit on delivery failed",
				slog.String("order_id", doc.ID), slog.Any("error", err))
		}
	}

	if err := s.publisher.Publish(ctx, eventbus.TopicDeliveries, eventbus.KeyDeliveryUpdated, "delivery.updated", map[string]string{
		"delivery_id": deliveryID, "order_id": doc.ID, "status": "delivered", "user_id": doc.CustomerID,
	}); err != nil {
		s.logger.Error("driver: publish delivery.updated failed", slog.Any("error", err))
	}
	span.SetStatus(codes.Ok, "delivered")
	return nil
}
