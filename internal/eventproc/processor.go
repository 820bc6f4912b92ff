package eventproc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/eventbus"
	"github.com/medplatform/orders/internal/reliability"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// Notifier delivers a fan-out notice to a recipient. The pack ships no SMS/
// push provider for this domain (unlike the realtime-messaging-platform's
// auth.SMSProvider), so a log-backed implementation stands in; swapping in
// a real provider means satisfying this interface, not touching Processor.
type Notifier interface {
	Notify(ctx context.Context, recipientID, kind string, payload map[string]interface{}) error
}

// LogNotifier logs notifications instead of dispatching them, the
// simplest interpretation available with no provider named in the pack.
type LogNotifier struct{ logger *slog.Logger }

func NewLogNotifier(logger *slog.Logger) *LogNotifier { return &LogNotifier{logger: logger} }

func (n *LogNotifier) Notify(_ context.Context, recipientID, kind string, payload map[string]interface{}) error {
	n.logger.Info("eventproc: notification", slog.String("recipient_id", recipientID), slog.String("kind", kind), slog.Any("payload", payload))
	return nil
}

// Reindexer receives a signal that the medicine/pharmacy search index
// needs to reflect an inventory change. Grounded in §5's supplemented
// search-result cache: the simplest re-index action available is to
// invalidate the cached query results, which SearchCache already supports
// via TTL expiry, so the log-only stub documents the extension point for a
// real full-text engine.
type Reindexer interface {
	SignalReindex(ctx context.Context, pharmacyID, medicineID string) error
}

type LogReindexer struct{ logger *slog.Logger }

func NewLogReindexer(logger *slog.Logger) *LogReindexer { return &LogReindexer{logger: logger} }

func (r *LogReindexer) SignalReindex(_ context.Context, pharmacyID, medicineID string) error {
	r.logger.Info("eventproc: reindex signal", slog.String("pharmacy_id", pharmacyID), slog.String("medicine_id", medicineID))
	return nil
}

// HTTPReindexer posts the re-index signal to the external search engine
// named in §1 as a collaborator the control plane only notifies, not owns.
// Calls run through a circuit breaker and bulkhead so a slow or unreachable
// search engine can't back up the event-processing goroutine pool, and
// retry transient 5xx/network failures with backoff.
type HTTPReindexer struct {
	baseURL    string
	httpClient *http.Client
	cb         *reliability.CircuitBreaker
	bulkhead   *reliability.Bulkhead
	tracer     trace.Tracer
	logger     *slog.Logger
}

func NewHTTPReindexer(baseURL string, logger *slog.Logger) *HTTPReindexer {
	return &HTTPReindexer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cb:         reliability.NewCircuitBreaker("search.reindex"),
		bulkhead:   reliability.NewBulkhead(8),
		tracer:     otel.Tracer("eventproc"),
		logger:     logger,
	}
}

func (r *HTTPReindexer) SignalReindex(ctx context.Context, pharmacyID, medicineID string) error {
	ctx, span := r.tracer.Start(ctx, "eventproc.reindex")
	defer span.End()

	body, err := json.Marshal(map[string]string{"pharmacy_id": pharmacyID, "medicine_id": medicineID})
	if err != nil {
		return err
	}

	return r.bulkhead.Execute(ctx, span, func(ctx context.Context) error {
		return r.cb.Execute(span, func() error {
			resp, err := reliability.RetryableHTTPCall(ctx, span, reliability.DefaultRetryConfig(), func(ctx context.Context) (*http.Response, error) {
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/index/medicines", bytes.NewReader(body))
				if err != nil {
					return nil, err
				}
				req.Header.Set("Content-Type", "application/json")
				return r.httpClient.Do(req)
			})
			if err != nil {
				r.logger.Warn("eventproc: search reindex call failed", slog.Any("error", err))
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 300 {
				return fmt.Errorf("eventproc: search reindex returned status %d", resp.StatusCode)
			}
			return nil
		})
	})
}

// LowStockThreshold is the §4.8 "low-stock check" cutoff: at or below this
// available quantity a row is flagged.
const LowStockThreshold = 10

// NearExpiryWindow is the §4.8 "near-expiry check" horizon.
const NearExpiryWindow = 30 * 24 * time.Hour

// Processor implements §4.8: the six event handlers wired onto the event
// bus's Subscribe, grounded in Tim275-oms's orders-consumer.go dispatch
// shape and StitchMl-saga-demo's compensating-follow-up pattern for
// inventory.updated's threshold checks.
type Processor struct {
	users      *mongostore.UserRepository
	inventory  *mongostore.InventoryRepository
	notifier   Notifier
	reindexer  Reindexer
	clock      domain.Clock
	logger     *slog.Logger
}

func NewProcessor(
	users *mongostore.UserRepository,
	inventory *mongostore.InventoryRepository,
	notifier Notifier,
	reindexer Reindexer,
	clock domain.Clock,
	logger *slog.Logger,
) *Processor {
	return &Processor{users: users, inventory: inventory, notifier: notifier, reindexer: reindexer, clock: clock, logger: logger}
}

// Subscribe registers all six handlers against bus c, one durable queue
// per (topic, routing key) pair, per §6's event table.
func (p *Processor) Subscribe(ctx context.Context, c *eventbus.Consumer) error {
	subs := []struct {
		topic, key, queue string
		handler           eventbus.Handler
	}{
		{eventbus.TopicOrders, eventbus.KeyOrderCreated, "eventproc.order.created", p.handleOrderCreated},
		{eventbus.TopicOrders, eventbus.KeyOrderPaid, "eventproc.order.paid", p.handleOrderPaid},
		{eventbus.TopicOrders, eventbus.KeyOrderCancelled, "eventproc.order.cancelled", p.handleOrderCancelled},
		{eventbus.TopicDeliveries, eventbus.KeyDeliveryCreated, "eventproc.delivery.created", p.handleDeliveryCreated},
		{eventbus.TopicDeliveries, eventbus.KeyDeliveryUpdated, "eventproc.delivery.updated", p.handleDeliveryUpdated},
		{eventbus.TopicInventory, eventbus.KeyInventoryUpdated, "eventproc.inventory.updated", p.handleInventoryUpdated},
	}
	for _, sub := range subs {
		if err := c.Subscribe(ctx, sub.topic, sub.key, sub.queue, sub.handler); err != nil {
			return err
		}
	}
	return nil
}

func decodePayload(env eventbus.Envelope, v interface{}) error {
	return json.Unmarshal(env.Payload, v)
}

// handleOrderCreated sends a confirmation to the customer and a new-order
// notice to the pharmacy, per §4.8.
func (p *Processor) handleOrderCreated(ctx context.Context, env eventbus.Envelope) error {
	var payload struct {
		OrderID    string `json:"order_id"`
		UserID     string `json:"user_id"`
		PharmacyID string `json:"pharmacy_id"`
	}
	if err := decodePayload(env, &payload); err != nil {
		return err
	}
	if err := p.notifier.Notify(ctx, payload.UserID, "order.created.customer", map[string]interface{}{"order_id": payload.OrderID}); err != nil {
		return err
	}
	return p.notifier.Notify(ctx, payload.PharmacyID, "order.created.pharmacy", map[string]interface{}{"order_id": payload.OrderID})
}

// handleOrderPaid logs only: delivery creation is already done by the
// producer (order.Service.HandlePaymentWebhook), per §4.8.
func (p *Processor) handleOrderPaid(_ context.Context, env eventbus.Envelope) error {
	p.logger.Info("eventproc: order paid", slog.String("message_id", env.MessageID))
	return nil
}

func (p *Processor) handleOrderCancelled(ctx context.Context, env eventbus.Envelope) error {
	var payload struct {
		OrderID string `json:"order_id"`
		UserID  string `json:"user_id"`
	}
	if err := decodePayload(env, &payload); err != nil {
		return err
	}
	return p.notifier.Notify(ctx, payload.UserID, "order.cancelled", map[string]interface{}{"order_id": payload.OrderID})
}

// handleDeliveryCreated broadcasts to every verified driver, per §4.8
// "broadcast to drivers who are verified and in role".
func (p *Processor) handleDeliveryCreated(ctx context.Context, env eventbus.Envelope) error {
	var payload struct {
		DeliveryID string `json:"delivery_id"`
		OrderID    string `json:"order_id"`
	}
	if err := decodePayload(env, &payload); err != nil {
		return err
	}
	drivers, err := p.users.FindVerifiedByRole(ctx, string(domain.RoleDriver))
	if err != nil {
		return err
	}
	for _, driver := range drivers {
		if err := p.notifier.Notify(ctx, driver.ID, "delivery.created", map[string]interface{}{
			"delivery_id": payload.DeliveryID, "order_id": payload.OrderID,
		}); err != nil {
			p.logger.Warn("eventproc: driver broadcast failed", slog.String("driver_id", driver.ID), slog.Any("error", err))
		}
	}
	return nil
}

func (p *Processor) handleDeliveryUpdated(ctx context.Context, env eventbus.Envelope) error {
	var payload struct {
		DeliveryID string `json:"delivery_id"`
		OrderID    string `json:"order_id"`
		Status     string `json:"status"`
		UserID     string `json:"user_id"`
	}
	if err := decodePayload(env, &payload); err != nil {
		return err
	}
	return p.notifier.Notify(ctx, payload.UserID, "delivery.updated", map[string]interface{}{
		"delivery_id": payload.DeliveryID, "order_id": payload.OrderID, "status": payload.Status,
	})
}

// handleInventoryUpdated runs the low-stock and near-expiry checks and
// emits a re-index signal, per §4.8.
func (p *Processor) handleInventoryUpdated(ctx context.Context, env eventbus.Envelope) error {
	var payload struct {
		PharmacyID string `json:"pharmacy_id"`
		MedicineID string `json:"medicine_id"`
	}
	if err := decodePayload(env, &payload); err != nil {
		return err
	}

	rows, err := p.inventory.ListByPharmacy(ctx, payload.PharmacyID)
	if err != nil {
		return err
	}
	now := p.clock.Now()
	for _, row := range rows {
		if row.MedicineID != payload.MedicineID {
			continue
		}
		if row.Available <= LowStockThreshold {
			p.logger.Warn("eventproc: low stock", slog.String("pharmacy_id", payload.PharmacyID),
				slog.String("medicine_id", payload.MedicineID), slog.Int("available", row.Available))
		}
		if row.ExpiryDate.Sub(now) <= NearExpiryWindow {
			p.logger.Warn("eventproc: near expiry", slog.String("pharmacy_id", payload.PharmacyID),
				slog.String("batch_number", row.BatchNumber), slog.Time("expiry_date", row.ExpiryDate))
		}
	}

	return p.reindexer.SignalReindex(ctx, payload.PharmacyID, payload.MedicineID)
}
