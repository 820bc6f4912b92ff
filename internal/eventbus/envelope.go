package eventbus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps every event-bus payload per §6: message id (also the
// downstream dedup key), type, ISO-8601 timestamp, retry counter, payload,
// optional meta.
type Envelope struct {
	MessageID string          `json:"message_id"`
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Retries   int             `json:"retries"`
	Payload   json.RawMessage `json:"payload"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// NewEnvelope marshals payload and stamps a fresh message id and timestamp.
func NewEnvelope(eventType string, payload interface{}, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		MessageID: uuid.NewString(),
		Type:      eventType,
		Timestamp: now.Format(time.RFC3339),
		Retries:   0,
		Payload:   raw,
	}, nil
}

// Topics and routing keys, §6.
const (
	TopicOrders      = "orders"
	TopicDeliveries  = "deliveries"
	TopicInventory   = "inventory"

	KeyOrderCreated     = "created"
	KeyOrderPaid        = "paid"
	KeyOrderCancelled   = "cancelled"
	KeyDeliveryCreated  = "created"
	KeyDeliveryUpdated  = "updated"
	KeyInventoryUpdated = "updated"
)

// DLX is the dead-letter exchange every durable queue routes to after
// exhausting §4.8's retry budget.
const DLX = "dlx"
