package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"

	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/observability"
)

// Handler processes one event. Returning an error triggers the retry
// policy of §4.8.
type Handler func(ctx context.Context, env Envelope) error

// Consumer binds a durable queue to (topic, routingKey) and dispatches
// deliveries to a Handler with manual ack/nack, grounded in Tim275-oms's
// orders-consumer.go.
type Consumer struct {
	bus      *Bus
	logger   *slog.Logger
	counters *observability.Counters
}

func NewConsumer(bus *Bus, logger *slog.Logger, counters *observability.Counters) *Consumer {
	if counters == nil {
		counters = &observability.Counters{}
	}
	return &Consumer{bus: bus, logger: logger, counters: counters}
}

func (c *Consumer) incr(counter metric.Int64Counter, ctx context.Context) {
	if counter != nil {
		counter.Add(ctx, 1)
	}
}

// Subscribe declares queueName durable with a dead-letter-exchange arg,
// binds it to (topic, routingKey), and consumes until ctx is done.
func (c *Consumer) Subscribe(ctx context.Context, topic, routingKey, queueName string, handler Handler) error {
	ch := c.bus.Channel()

	q, err := ch.QueueDeclare(queueName, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": DLX,
	})
	if err != nil {
		return err
	}
	if err := ch.QueueBind(q.Name, routingKey, topic, false, nil); err != nil {
		return err
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				c.handleDelivery(ctx, q.Name, d, handler)
			}
		}
	}()
	return nil
}

func (c *Consumer) handleDelivery(ctx context.Context, queueName string, d amqp.Delivery, handler Handler) {
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, amqpHeaderCarrier(d.Headers))

	var env Envelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		c.logger.Error("eventbus: malformed envelope, dropping", slog.Any("error", err))
		d.Nack(false, false)
		return
	}

	if err := handler(msgCtx, env); err != nil {
		c.retryOrDrop(msgCtx, queueName, env, d, err)
		return
	}
	c.incr(c.counters.EventsProcessedTotal, msgCtx)
	d.Ack(false)
}

// retryOrDrop applies §4.8's retry policy: re-queue with an incremented
// retry counter and an attempt×1s backoff; after EventBusMaxAttempts the
// message is acknowledged away (routed to the dead-letter exchange) to
// guarantee forward progress.
func (c *Consumer) retryOrDrop(ctx context.Context, queueName string, env Envelope, d amqp.Delivery, handlerErr error) {
	env.Retries++
	if env.Retries >= domain.EventBusMaxAttempts {
		c.logger.Error("eventbus: handler failed after max attempts, dead-lettering",
			slog.String("message_id", env.MessageID), slog.String("type", env.Type), slog.Any("error", handlerErr))
		c.incr(c.counters.EventsDeadLetterTotal, ctx)
		d.Nack(false, false)
		return
	}

	c.logger.Warn("eventbus: handler failed, retrying",
		slog.String("message_id", env.MessageID), slog.Int("attempt", env.Retries), slog.Any("error", handlerErr))

	time.Sleep(time.Duration(env.Retries) * time.Second)

	body, err := json.Marshal(env)
	if err != nil {
		d.Nack(false, false)
		return
	}
	if err := c.bus.Channel().PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.MessageID,
		Body:         body,
	}); err != nil {
		c.logger.Error("eventbus: requeue publish failed", slog.Any("error", err))
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

var _ propagation.TextMapCarrier = amqpHeaderCarrier{}
