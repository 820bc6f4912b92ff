package eventbus

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/reliability"
)

// Publisher publishes persistent, topic-routed messages wrapped in the §6
// envelope, propagating the active trace across the AMQP boundary the way
// Tim275-oms's broker package does for its consumers. Publishes run through
// a circuit breaker so a flapping broker connection fails fast for callers
// instead of blocking each request on the channel's own retry/backoff.
type Publisher struct {
	bus    *Bus
	tracer trace.Tracer
	clock  domain.Clock
	cb     *reliability.CircuitBreaker
}

func NewPublisher(bus *Bus, clock domain.Clock) *Publisher {
	return &Publisher{bus: bus, tracer: otel.Tracer("eventbus"), clock: clock, cb: reliability.NewCircuitBreaker("eventbus.publish")}
}

// Publish emits payload as eventType on (topic, routingKey). Publishes are
// `persistent` per §6.
func (p *Publisher) Publish(ctx context.Context, topic, routingKey, eventType string, payload interface{}) error {
	ctx, span := p.tracer.Start(ctx, "eventbus.publish")
	defer span.End()

	env, err := NewEnvelope(eventType, payload, p.clock.Now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, amqpHeaderCarrier(headers))

	return p.cb.Execute(span, func() error {
		return p.bus.Channel().PublishWithContext(ctx, topic, routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.MessageID,
			Timestamp:    p.clock.Now(),
			Body:         body,
			Headers:      headers,
		})
	})
}

// amqpHeaderCarrier adapts amqp.Table to propagation.TextMapCarrier so W3C
// trace context can be injected into and extracted from AMQP headers, the
// same technique Tim275-oms's broker package uses.
type amqpHeaderCarrier amqp.Table

func (c amqpHeaderCarrier) Get(key string) string {
	v, ok := c[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (c amqpHeaderCarrier) Set(key, value string) { c[key] = value }

func (c amqpHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

var _ propagation.TextMapCarrier = amqpHeaderCarrier{}
