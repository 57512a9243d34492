package producers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func completedMessage() *message.Message {
	return &message.Message{
		ID:              "m-1",
		Sender:          "orchestrator",
		Recipient:       "gl-agent",
		Action:          "CREATE_JOURNAL_ENTRY",
		Status:          message.StatusCompleted,
		OwnerUserID:     "user-1",
		ConversationID:  "c-1",
		ResponseMessage: "Journal #4 created",
		Payload:         map[string]any{message.ResponseKey: map[string]any{"journalId": 4}},
		LastUpdatedAt:   time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewBusEvent(t *testing.T) {
	ev := NewBusEvent(completedMessage())

	assert.Equal(t, "m-1", ev.MessageID)
	assert.Equal(t, message.StatusCompleted, ev.Status)
	assert.Equal(t, "Journal #4 created", ev.ResponseMessage)
	assert.Equal(t, map[string]any{"journalId": 4}, ev.Response)
	assert.Equal(t, time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC), ev.OccurredAt)
}

func TestBusEventProducer_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &BusEventProducer{logger: newTestLogger(), writer: mockWriter, topic: "bus-events"}

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(msgs) == 1 && string(msgs[0].Key) == "k" && string(msgs[0].Value) == `{"a":1}`
		})).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, "k", map[string]int{"a": 1}))
		mockWriter.AssertExpectations(t)
	})

	t.Run("marshal error", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &BusEventProducer{logger: newTestLogger(), writer: mockWriter, topic: "bus-events"}

		err := producer.Publish(ctx, "k", make(chan int))
		assert.ErrorContains(t, err, "failed to marshal bus event")
		mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})
}

func TestBusEventProducer_OnTerminal(t *testing.T) {
	t.Run("publishes keyed by message id", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &BusEventProducer{logger: newTestLogger(), writer: mockWriter, topic: "bus-events"}

		mockWriter.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			var ev BusEvent
			if err := json.Unmarshal(msgs[0].Value, &ev); err != nil {
				return false
			}
			return string(msgs[0].Key) == "m-1" && ev.Status == message.StatusCompleted && ev.Action == "CREATE_JOURNAL_ENTRY"
		})).Return(nil).Once()

		producer.OnTerminal(context.Background(), completedMessage())
		mockWriter.AssertExpectations(t)
	})

	t.Run("cancelled caller context still publishes", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &BusEventProducer{logger: newTestLogger(), writer: mockWriter, topic: "bus-events"}

		mockWriter.On("WriteMessages", mock.MatchedBy(func(ctx context.Context) bool {
			return ctx.Err() == nil
		}), mock.Anything).Return(nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		producer.OnTerminal(ctx, completedMessage())
		mockWriter.AssertExpectations(t)
	})

	t.Run("write failure is swallowed", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &BusEventProducer{logger: newTestLogger(), writer: mockWriter, topic: "bus-events"}
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		assert.NotPanics(t, func() { producer.OnTerminal(context.Background(), completedMessage()) })
		mockWriter.AssertExpectations(t)
	})
}
