package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Reader is the subset of *kafka.Reader the consumer needs.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one decoded event. A returned error leaves the message uncommitted.
type Handler func(context.Context, Event) error

// Consumer reads marketplace events from Kafka and hands them to a Handler.
type Consumer struct {
	reader  Reader
	logger  *zap.Logger
	handler Handler
}

// NewConsumer subscribes groupID to topic.
func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger, handler Handler) *Consumer {
	return NewConsumerFromReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	}), logger, handler)
}

// NewConsumerFromReader wraps an existing reader.
func NewConsumerFromReader(reader Reader, logger *zap.Logger, handler Handler) *Consumer {
	return &Consumer{reader: reader, logger: logger.Named("event_consumer"), handler: handler}
}

// Run consumes until ctx is done. Malformed messages are logged and committed so they
// do not block the partition.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error("Failed to parse event",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
			)
			c.commit(ctx, msg, "")
			continue
		}

		if err := c.handler(ctx, event); err != nil {
			c.logger.Error("Failed to handle event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
			)
			continue
		}
		c.commit(ctx, msg, event.Type)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, eventType EventType) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}

// LogHandler writes every event to logger; used by the events tail command.
func LogHandler(logger *zap.Logger) Handler {
	return func(_ context.Context, event Event) error {
		logger.Info("Event",
			zap.String("event_type", string(event.Type)),
			zap.String("key", event.Key),
			zap.Time("occurred_at", event.OccurredAt),
			zap.Any("payload", event.Payload),
		)
		return nil
	}
}
