// Package events publishes domain events after successful mutations.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	JobCreated     EventType = "job_created"
	JobUpdated     EventType = "job_updated"
	JobHidden      EventType = "job_hidden"
	JobUnhidden    EventType = "job_unhidden"
	JobDeleted     EventType = "job_deleted"
	CompanyUpdated EventType = "company_updated"

	ApplicationCreated       EventType = "application_created"
	ApplicationStatusChanged EventType = "application_status_changed"
	ApplicationWithdrawn     EventType = "application_withdrawn"

	ResumeUploaded       EventType = "resume_uploaded"
	ResumeDeleted        EventType = "resume_deleted"
	ResumePrimaryChanged EventType = "resume_primary_changed"

	UserBanned EventType = "user_banned"
)

const eventTypeHeader = "event_type"

type Event struct {
	Type       EventType   `json:"type"`
	Key        string      `json:"key"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// Writer is the transport the producer hands messages to. *kafka.Writer satisfies it,
// and AMQPWriter adapts RabbitMQ.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
	MaxRetries   uint64
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 1000
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	return o
}

type Producer struct {
	writer    Writer
	events    chan Event
	logger    *zap.Logger
	opts      Options
	retry     func() backoff.BackOff
	closeChan chan struct{}
	done      chan struct{}
}

// NewProducer starts the delivery loop over writer.
func NewProducer(writer Writer, logger *zap.Logger, opts Options) *Producer {
	opts = opts.withDefaults()
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, opts.QueueSize),
		logger:    logger.Named("event_producer"),
		opts:      opts,
		retry:     func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}

	go p.eventLoop()
	return p
}

// NewKafkaProducer creates the topic if needed and returns a producer writing to it.
func NewKafkaProducer(brokers []string, topic string, logger *zap.Logger, opts Options) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}
	return NewProducer(writer, logger, opts), nil
}

// Produce enqueues an event without blocking. When the queue is full the event is
// dropped with a warning.
func (p *Producer) Produce(eventType EventType, key string, payload interface{}) {
	event := Event{Type: eventType, Key: key, Payload: payload, OccurredAt: time.Now().UTC()}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("event queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("key", key),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("key", event.Key),
		)
		return
	}
	msg := kafka.Message{
		Key:     []byte(event.Key),
		Value:   value,
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(event.Type)}},
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(p.retry(), p.opts.MaxRetries), ctx)
	err = backoff.Retry(func() error {
		writeCtx, cancel := context.WithTimeout(ctx, p.opts.WriteTimeout)
		defer cancel()
		return p.writer.WriteMessages(writeCtx, msg)
	}, policy)
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("key", event.Key),
		)
	}
}

// Close stops the delivery loop and closes the writer. Queued events that were
// not yet picked up are discarded.
func (p *Producer) Close() {
	close(p.closeChan)
	<-p.done
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close event writer", zap.Error(err))
	}
}

// NopProducer discards events.
type NopProducer struct{}

func (NopProducer) Produce(EventType, string, interface{}) {}

func (NopProducer) Close() {}
