package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	newProducer := func(w KafkaWriter) *DLQProducer {
		return &DLQProducer{logger: newTestLogger(), writer: w, dlqTopic: "bus-dlq", now: func() time.Time { return fixed }}
	}

	t.Run("json value is embedded", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newProducer(mockWriter)
		value := []byte(`{"id":"m-1","status":"FAILED"}`)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != "m-1" {
				return false
			}
			var letter DeadLetter
			if err := json.Unmarshal(msgs[0].Value, &letter); err != nil {
				return false
			}
			return letter.Source == "dispatcher" &&
				string(letter.Value) == string(value) &&
				letter.RawValue == "" &&
				letter.Reason == "handler failed" &&
				letter.Timestamp == "2026-04-02T10:00:00Z" &&
				header(msgs[0], "dlq-reason") == "handler failed" &&
				header(msgs[0], "dlq-source") == "dispatcher"
		})).Return(nil).Once()

		require.NoError(t, producer.PublishToDLQ(ctx, "dispatcher", "m-1", value, "handler failed"))
		mockWriter.AssertExpectations(t)
	})

	t.Run("non json value is kept raw", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newProducer(mockWriter)

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			var letter DeadLetter
			if err := json.Unmarshal(msgs[0].Value, &letter); err != nil {
				return false
			}
			return letter.RawValue == "not json" && len(letter.Value) == 0
		})).Return(nil).Once()

		require.NoError(t, producer.PublishToDLQ(ctx, "ingress", "offset-7", []byte("not json"), "malformed"))
		mockWriter.AssertExpectations(t)
	})

	t.Run("writer error", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newProducer(mockWriter)
		writerError := errors.New("kafka DLQ write error")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		err := producer.PublishToDLQ(ctx, "dispatcher", "m-2", []byte("{}"), "boom")
		assert.ErrorIs(t, err, writerError)
		mockWriter.AssertExpectations(t)
	})

	t.Run("disabled producer", func(t *testing.T) {
		var producer *DLQProducer
		err := producer.PublishToDLQ(ctx, "dispatcher", "m-3", nil, "disabled")
		require.Error(t, err)
		assert.Equal(t, "DLQ producer not initialized", err.Error())
	})
}

func TestDLQProducer_Close(t *testing.T) {
	t.Run("closes writer", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{logger: newTestLogger(), writer: mockWriter, dlqTopic: "bus-dlq"}
		mockWriter.On("Close").Return(nil).Once()

		require.NoError(t, producer.Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("close error", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{logger: newTestLogger(), writer: mockWriter, dlqTopic: "bus-dlq"}
		closeError := errors.New("kafka DLQ close error")
		mockWriter.On("Close").Return(closeError).Once()

		assert.ErrorIs(t, producer.Close(), closeError)
		mockWriter.AssertExpectations(t)
	})

	t.Run("nil producer", func(t *testing.T) {
		var producer *DLQProducer
		assert.NoError(t, producer.Close())
	})
}
