package eventbus

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Bus wraps a single AMQP connection/channel pair, the pattern Tim275-oms
// and StitchMl-saga-demo both use for their RabbitMQ-backed event fabric.
type Bus struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Connect(uri string) (*Bus, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(DLX, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare dlx: %w", err)
	}
	for _, topic := range []string{TopicOrders, TopicDeliveries, TopicInventory} {
		if err := ch.ExchangeDeclare(topic, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare exchange %s: %w", topic, err)
		}
	}
	return &Bus{conn: conn, ch: ch}, nil
}

func (b *Bus) Close() error {
	if err := b.ch.Close(); err != nil {
		return err
	}
	return b.conn.Close()
}

// Channel exposes the underlying channel for publisher/consumer helpers.
func (b *Bus) Channel() *amqp.Channel { return b.ch }
