package ingress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentbus-ledger/internal/data/memory"
	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, source, key string, value []byte, reason string) error {
	args := m.Called(ctx, source, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// failingStore fails every send
type failingStore struct {
	message.Store
}

func (failingStore) Send(ctx context.Context, req message.SendRequest) (*message.Message, error) {
	return nil, errors.New("store closed")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	valid := []byte(`{"requestId":"r-1","sender":"crm","recipient":"gl","action":"CREATE_GL_ACCOUNT","payload":{"name":"Petty Cash","accountType":"asset"},"ownerUserId":"user-1","priority":"HIGH"}`)

	t.Run("valid record becomes a pending message", func(t *testing.T) {
		store := memory.NewMessageStore(testLogger())
		h := NewHandler(testLogger(), store, nil)

		require.NoError(t, h.HandleMessage(ctx, []byte("k"), valid))

		pending, err := store.GetPendingForAgent(ctx, "gl")
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "CREATE_GL_ACCOUNT", pending[0].Action)
		assert.Equal(t, message.PriorityHigh, pending[0].Priority)
		assert.Equal(t, message.KindRequest, pending[0].Kind)
		assert.Equal(t, "Petty Cash", pending[0].Payload["name"])
	})

	t.Run("duplicate request id is skipped", func(t *testing.T) {
		store := memory.NewMessageStore(testLogger())
		h := NewHandler(testLogger(), store, nil)

		require.NoError(t, h.HandleMessage(ctx, []byte("k"), valid))
		require.NoError(t, h.HandleMessage(ctx, []byte("k"), valid))

		assert.Equal(t, 1, store.Len())
	})

	t.Run("malformed json goes to the DLQ", func(t *testing.T) {
		dlq := new(MockDeadLetterPublisher)
		h := NewHandler(testLogger(), memory.NewMessageStore(testLogger()), dlq)
		bad := []byte(`{"recipient":`)

		dlq.On("PublishToDLQ", ctx, "ingress", "k", bad, mock.MatchedBy(func(reason string) bool {
			return strings.HasPrefix(reason, "malformed send record")
		})).Return(nil).Once()

		assert.NoError(t, h.HandleMessage(ctx, []byte("k"), bad))
		dlq.AssertExpectations(t)
	})

	t.Run("invalid request goes to the DLQ", func(t *testing.T) {
		dlq := new(MockDeadLetterPublisher)
		store := memory.NewMessageStore(testLogger())
		h := NewHandler(testLogger(), store, dlq)
		noRecipient := []byte(`{"requestId":"r-2","action":"PING"}`)

		dlq.On("PublishToDLQ", ctx, "ingress", "k", noRecipient, mock.AnythingOfType("string")).Return(nil).Once()

		assert.NoError(t, h.HandleMessage(ctx, []byte("k"), noRecipient))
		assert.Zero(t, store.Len())
		dlq.AssertExpectations(t)
	})

	t.Run("dlq failure keeps the record uncommitted", func(t *testing.T) {
		dlq := new(MockDeadLetterPublisher)
		h := NewHandler(testLogger(), memory.NewMessageStore(testLogger()), dlq)
		dlq.On("PublishToDLQ", ctx, "ingress", "k", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		err := h.HandleMessage(ctx, []byte("k"), []byte("{"))
		assert.ErrorContains(t, err, "dead-letter ingress record")
		dlq.AssertExpectations(t)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		h := NewHandler(testLogger(), failingStore{}, nil)

		err := h.HandleMessage(ctx, []byte("k"), valid)
		assert.ErrorContains(t, err, "store closed")

		_, dup := h.reserve("r-1")
		assert.False(t, dup, "a failed send is not remembered")
	})

	t.Run("concurrent deliveries of one request id send once", func(t *testing.T) {
		store := memory.NewMessageStore(testLogger())
		h := NewHandler(testLogger(), store, nil)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, h.HandleMessage(ctx, []byte("k"), valid))
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, store.Len())
		msgID, dup := h.reserve("r-1")
		assert.True(t, dup)
		assert.NotEmpty(t, msgID)
	})
}

func TestHandler_SeenCapacity(t *testing.T) {
	h := NewHandler(testLogger(), memory.NewMessageStore(testLogger()), nil)
	h.capacity = 2

	for _, id := range []string{"a", "b", "c"} {
		_, dup := h.reserve(id)
		require.False(t, dup)
		h.settle(id, "m-"+id)
	}

	assert.NotContains(t, h.seen, "a")
	assert.Equal(t, "m-c", h.seen["c"])
	assert.Equal(t, []string{"b", "c"}, h.seenFIFO)

	h.release("b")
	assert.NotContains(t, h.seen, "b")
	assert.Equal(t, []string{"c"}, h.seenFIFO)
}

func TestHandleMessage_FeedsWaitingConsumers(t *testing.T) {
	store := memory.NewMessageStore(testLogger())
	h := NewHandler(testLogger(), store, nil)

	require.NoError(t, h.HandleMessage(context.Background(), nil, []byte(`{"recipient":"gl","action":"PING"}`)))

	select {
	case <-store.WorkAvailable():
	case <-time.After(time.Second):
		t.Fatal("send did not signal dispatch")
	}
}
