package pharmacist

import (
	"context"
	"log/slog"

	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/eventbus"
	invcoord "github.com/medplatform/orders/internal/inventory"
	"github.com/medplatform/orders/internal/order"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// Service implements §4.6: transitions scoped to the signed-in pharmacist's
// owned pharmacy, plus inventory CRUD within it.
type Service struct {
	orders        *mongostore.OrderRepository
	pharmacies    *mongostore.PharmacyRepository
	inventoryRepo *mongostore.InventoryRepository
	coordinator   *invcoord.Coordinator
	publisher     *eventbus.Publisher
	logger        *slog.Logger
}

func NewService(
	orders *mongostore.OrderRepository,
	pharmacies *mongostore.PharmacyRepository,
	inv *mongostore.InventoryRepository,
	coordinator *invcoord.Coordinator,
	publisher *eventbus.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{orders: orders, pharmacies: pharmacies, inventoryRepo: inv, coordinator: coordinator, publisher: publisher, logger: logger}
}

// requireOwnership fails FORBIDDEN when the order's pharmacy does not match
// the signed-in pharmacist's owned pharmacy, per §4.6.
func (s *Service) requireOwnership(ctx context.Context, pharmacistUserID string, doc *mongostore.OrderDoc) error {
	owned, err := s.pharmacies.FindByOwner(ctx, pharmacistUserID)
	if err != nil {
		return err
	}
	if owned.ID != doc.PharmacyID {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) Accept(ctx context.Context, pharmacistUserID, orderID string) error {
	doc, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.requireOwnership(ctx, pharmacistUserID, doc); err != nil {
		return err
	}
	if err := order.ValidateTransition(order.Status(doc.Status), order.StatusAcceptedByPharmacy); err != nil {
		return err
	}
	ok, err := s.orders.TransitionConditional(ctx, orderID, doc.Status, string(order.StatusAcceptedByPharmacy))
	if err != nil {
		return domain.ErrDatabaseError
	}
	if !ok {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (s *Service) Decline(ctx context.Context, pharmacistUserID, orderID, reason string) error {
	doc, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.requireOwnership(ctx, pharmacistUserID, doc); err != nil {
		return err
	}
	if err := order.ValidateTransition(order.Status(doc.Status), order.StatusCancelled); err != nil {
		return err
	}
	ok, err := s.orders.CancelConditional(ctx, orderID, doc.Status, reason)
	if err != nil {
		return domain.ErrDatabaseError
	}
	if !ok {
		return domain.ErrInvalidTransition
	}

	for _, line := range doc.Items {
		if releaseErr := s.coordinator.Release(ctx, invcoord.ReservedLine{
			PharmacyID: doc.PharmacyID, MedicineID: line.MedicineID, BatchNumber: line.BatchNumber, Qty: line.Qty,
		}); releaseErr != nil {
			s.logger.Error("pharmacist: inventory release on decline failed", slog.Any("error", releaseErr))
		}
	}

	if err := s.publisher.Publish(ctx, eventbus.TopicOrders, eventbus.KeyOrderCancelled, "order.cancelled", map[string]string{
		"order_id": orderID, "user_id": doc.CustomerID, "pharmacy_id": doc.PharmacyID,
	}); err != nil {
		s.logger.Error("pharmacist: publish order.cancelled failed", slog.Any("error", err))
	}
	return nil
}

func (s *Service) Prepared(ctx context.Context, pharmacistUserID, orderID string) error {
	doc, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.requireOwnership(ctx, pharmacistUserID, doc); err != nil {
		return err
	}
	if err := order.ValidateTransition(order.Status(doc.Status), order.StatusPrepared); err != nil {
		return err
	}
	ok, err := s.orders.TransitionConditional(ctx, orderID, doc.Status, string(order.StatusPrepared))
	if err != nil {
		return domain.ErrDatabaseError
	}
	if !ok {
		return domain.ErrInvalidTransition
	}
	return nil
}

// CreateInventoryRow adds a new (pharmacy, medicine, batch) row scoped to
// the pharmacist's own pharmacy, preserving the compound-uniqueness
// invariant (§3 invariant 3, enforced by the store's unique index).
func (s *Service) CreateInventoryRow(ctx context.Context, pharmacistUserID string, doc *mongostore.InventoryDoc) error {
	owned, err := s.pharmacies.FindByOwner(ctx, pharmacistUserID)
	if err != nil {
		return err
	}
	if doc.PharmacyID != owned.ID {
		return domain.ErrForbidden
	}
	return s.inventoryRepo.Create(ctx, doc)
}

func (s *Service) ListInventory(ctx context.Context, pharmacistUserID string) ([]mongostore.InventoryDoc, error) {
	owned, err := s.pharmacies.FindByOwner(ctx, pharmacistUserID)
	if err != nil {
		return nil, err
	}
	return s.inventoryRepo.ListByPharmacy(ctx, owned.ID)
}
