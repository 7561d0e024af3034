package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader replays msgs, then reports fetchErr or blocks until the context is done.
type fakeReader struct {
	msgs      []kafka.Message
	fetchErr  error
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		return msg, nil
	}
	if r.fetchErr != nil {
		return kafka.Message{}, r.fetchErr
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func encoded(t *testing.T, event Event) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.Key), Value: value}
}

func TestConsumer_Run(t *testing.T) {
	good := encoded(t, Event{Type: JobCreated, Key: "job-1", Payload: map[string]string{"title": "Go"}})
	failing := encoded(t, Event{Type: UserBanned, Key: "user-1"})
	malformed := kafka.Message{Value: []byte("{not json")}

	reader := &fakeReader{msgs: []kafka.Message{good, malformed, failing}, fetchErr: errors.New("broker gone")}
	core, recorded := observer.New(zap.ErrorLevel)

	var handled []EventType
	consumer := NewConsumerFromReader(reader, zap.New(core), func(_ context.Context, event Event) error {
		handled = append(handled, event.Type)
		if event.Type == UserBanned {
			return errors.New("downstream unavailable")
		}
		return nil
	})

	err := consumer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker gone")

	assert.Equal(t, []EventType{JobCreated, UserBanned}, handled)
	require.Len(t, reader.committed, 2, "handled and malformed messages are committed")
	assert.Equal(t, good.Value, reader.committed[0].Value)
	assert.Equal(t, malformed.Value, reader.committed[1].Value)

	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())

	consumer.Close()
	assert.True(t, reader.closed)
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	consumer := NewConsumerFromReader(&fakeReader{}, zaptest.NewLogger(t), func(context.Context, Event) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, consumer.Run(ctx))
}

func TestLogHandler(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	handler := LogHandler(zap.New(core))

	require.NoError(t, handler(context.Background(), Event{Type: ResumeDeleted, Key: "cand-1"}))
	entries := recorded.FilterField(zap.String("event_type", string(ResumeDeleted))).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Event", entries[0].Message)
}
