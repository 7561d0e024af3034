package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// amqpChannel is the subset of *amqp.Channel used for publishing.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPWriter publishes messages to a RabbitMQ topic exchange, routed by event type.
type AMQPWriter struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
}

// NewAMQPWriter dials url and declares a durable topic exchange.
func NewAMQPWriter(url, exchange string) (*AMQPWriter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // args
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPWriter{conn: conn, channel: ch, exchange: exchange}, nil
}

func (w *AMQPWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		headers := amqp.Table{}
		routingKey := ""
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
			if h.Key == eventTypeHeader {
				routingKey = string(h.Value)
			}
		}
		err := w.channel.PublishWithContext(
			ctx,
			w.exchange,
			routingKey,
			false,
			false,
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				CorrelationId: string(msg.Key),
				Headers:       headers,
				Body:          msg.Value,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to publish message: %w", err)
		}
	}
	return nil
}

func (w *AMQPWriter) Close() error {
	if err := w.channel.Close(); err != nil {
		return err
	}
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}
