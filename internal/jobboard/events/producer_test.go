package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockWriter implements Writer for testing
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testProducer(writer Writer, logger *zap.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		opts:   Options{}.withDefaults(),
		retry:  func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
}

func TestNewProducer(t *testing.T) {
	mockWriter := new(MockWriter)
	mockWriter.On("Close").Return(nil)
	producer := NewProducer(mockWriter, zaptest.NewLogger(t), Options{})
	defer producer.Close()

	assert.Equal(t, 1000, cap(producer.events))
	assert.Equal(t, "event_producer", producer.logger.Check(zap.InfoLevel, "").LoggerName)
}

func TestProducer_Produce(t *testing.T) {
	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := testProducer(new(MockWriter), zap.New(core))
		producer.events = make(chan Event, 1)

		producer.Produce(JobCreated, "job-1", nil)
		producer.Produce(JobCreated, "job-1", nil)

		assert.Equal(t, 1, len(producer.events))
		assert.Equal(t, 1, recorded.FilterMessage("event queue full, dropping event").Len())
	})

	t.Run("delivered by the event loop", func(t *testing.T) {
		mockWriter := new(MockWriter)
		delivered := make(chan []kafka.Message, 1)
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { delivered <- args.Get(1).([]kafka.Message) }).
			Return(nil)
		mockWriter.On("Close").Return(nil)

		producer := NewProducer(mockWriter, zaptest.NewLogger(t), Options{})
		producer.Produce(ApplicationCreated, "app-1", map[string]string{"status": "applied"})

		select {
		case msgs := <-delivered:
			require.Len(t, msgs, 1)
			assert.Equal(t, []byte("app-1"), msgs[0].Key)
			assert.Equal(t, []kafka.Header{{Key: eventTypeHeader, Value: []byte(ApplicationCreated)}}, msgs[0].Headers)

			var event Event
			require.NoError(t, json.Unmarshal(msgs[0].Value, &event))
			assert.Equal(t, ApplicationCreated, event.Type)
			assert.Equal(t, map[string]interface{}{"status": "applied"}, event.Payload)
		case <-time.After(2 * time.Second):
			t.Fatal("event not delivered")
		}
		producer.Close()
	})
}

func TestProducer_SendEvent(t *testing.T) {
	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer := testProducer(new(MockWriter), zap.New(core))

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(context.Background(), Event{Type: JobCreated, Key: "job-1"})

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("key", "job-1")).Len())
	})

	t.Run("write error is retried then logged", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		mockWriter := new(MockWriter)
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))
		producer := testProducer(mockWriter, zap.New(core))

		producer.sendEvent(context.Background(), Event{Type: JobCreated, Key: "job-1"})

		mockWriter.AssertNumberOfCalls(t, "WriteMessages", 4)
		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})

	t.Run("transient write error recovers", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		mockWriter := new(MockWriter)
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available")).Once()
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
		producer := testProducer(mockWriter, zap.New(core))

		producer.sendEvent(context.Background(), Event{Type: JobCreated, Key: "job-1"})

		mockWriter.AssertNumberOfCalls(t, "WriteMessages", 2)
		assert.Equal(t, 0, recorded.Len())
	})
}

func TestProducer_Close(t *testing.T) {
	mockWriter := new(MockWriter)
	mockWriter.On("Close").Return(nil)

	producer := NewProducer(mockWriter, zaptest.NewLogger(t), Options{})
	producer.Close()

	select {
	case <-producer.closeChan:
	default:
		t.Error("closeChan not closed")
	}
	mockWriter.AssertCalled(t, "Close")
}

// mockChannel implements amqpChannel for testing
type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

func TestAMQPWriter_RoutesByEventType(t *testing.T) {
	ch := new(mockChannel)
	ch.On("PublishWithContext", mock.Anything, "jobboard.events", string(ResumeUploaded), false, false,
		mock.MatchedBy(func(p amqp.Publishing) bool {
			return p.CorrelationId == "resume-1" && string(p.Body) == `{"x":1}` &&
				p.Headers[eventTypeHeader] == string(ResumeUploaded)
		})).Return(nil)
	ch.On("Close").Return(nil)

	writer := &AMQPWriter{channel: ch, exchange: "jobboard.events"}
	err := writer.WriteMessages(context.Background(), kafka.Message{
		Key:     []byte("resume-1"),
		Value:   []byte(`{"x":1}`),
		Headers: []kafka.Header{{Key: eventTypeHeader, Value: []byte(ResumeUploaded)}},
	})
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	ch.AssertExpectations(t)
}

func TestAMQPWriter_PublishError(t *testing.T) {
	ch := new(mockChannel)
	ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, false, false, mock.Anything).
		Return(amqp.ErrClosed)

	writer := &AMQPWriter{channel: ch, exchange: "jobboard.events"}
	err := writer.WriteMessages(context.Background(), kafka.Message{Key: []byte("k")})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}
