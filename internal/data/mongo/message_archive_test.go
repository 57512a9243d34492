package mongo

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MockCollection struct {
	mock.Mock
}

func (m *MockCollection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	args := m.Called(ctx, documents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mongo.InsertManyResult), args.Error(1)
}

func (m *MockCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mongo.Cursor), args.Error(1)
}

func sweptMessages() []*message.Message {
	now := time.Now().UTC()
	return []*message.Message{
		{ID: "m-1", Recipient: "gl", Action: "CREATE_GL_ACCOUNT", Status: message.StatusCompleted, OwnerUserID: "user-1", ConversationID: "c-1", CreatedAt: now},
		{ID: "m-2", Recipient: "gl", Action: "CREATE_JOURNAL_ENTRY", Status: message.StatusFailed, OwnerUserID: "user-1", ConversationID: "c-1", CreatedAt: now},
	}
}

func TestNewMessageArchive(t *testing.T) {
	client, err := mongo.NewClient()
	require.NoError(t, err)

	archive := NewMessageArchive(slog.Default(), client.Database("agent_ledger"), "")
	require.NotNil(t, archive)
	coll, ok := archive.coll.(*mongo.Collection)
	require.True(t, ok)
	assert.Equal(t, ArchiveCollectionName, coll.Name())
}

func TestMessageArchive_Archive(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts all messages", func(t *testing.T) {
		coll := new(MockCollection)
		archive := &MessageArchive{coll: coll, logger: slog.Default()}
		msgs := sweptMessages()

		coll.On("InsertMany", ctx, mock.MatchedBy(func(docs []interface{}) bool {
			return len(docs) == 2 && docs[0].(*message.Message).ID == "m-1"
		})).Return(&mongo.InsertManyResult{InsertedIDs: []interface{}{"m-1", "m-2"}}, nil).Once()

		assert.NoError(t, archive.Archive(ctx, msgs))
		coll.AssertExpectations(t)
	})

	t.Run("empty batch skips the round trip", func(t *testing.T) {
		coll := new(MockCollection)
		archive := &MessageArchive{coll: coll, logger: slog.Default()}

		assert.NoError(t, archive.Archive(ctx, nil))
		coll.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything)
	})

	t.Run("duplicate ids are tolerated", func(t *testing.T) {
		coll := new(MockCollection)
		archive := &MessageArchive{coll: coll, logger: slog.Default()}

		dupErr := mongo.BulkWriteException{
			WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000, Message: "E11000 duplicate key"}}},
		}
		coll.On("InsertMany", ctx, mock.Anything).Return(nil, dupErr).Once()

		assert.NoError(t, archive.Archive(ctx, sweptMessages()))
		coll.AssertExpectations(t)
	})

	t.Run("other errors are returned", func(t *testing.T) {
		coll := new(MockCollection)
		archive := &MessageArchive{coll: coll, logger: slog.Default()}

		coll.On("InsertMany", ctx, mock.Anything).Return(nil, errors.New("no primary")).Once()

		err := archive.Archive(ctx, sweptMessages())
		assert.ErrorContains(t, err, "failed to archive messages")
		coll.AssertExpectations(t)
	})
}

func TestMessageArchive_FindByConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes documents", func(t *testing.T) {
		coll := new(MockCollection)
		archive := &MessageArchive{coll: coll, logger: slog.Default()}

		cursor, err := mongo.NewCursorFromDocuments([]interface{}{
			bson.M{"_id": "m-1", "recipient": "gl", "status": "COMPLETED", "owner_user_id": "user-1", "conversation_id": "c-1"},
			bson.M{"_id": "m-2", "recipient": "gl", "status": "FAILED", "owner_user_id": "user-1", "conversation_id": "c-1"},
		}, nil, nil)
		require.NoError(t, err)

		coll.On("Find", ctx, bson.M{"owner_user_id": "user-1", "conversation_id": "c-1"}).Return(cursor, nil).Once()

		msgs, err := archive.FindByConversation(ctx, "user-1", "c-1")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "m-1", msgs[0].ID)
		assert.Equal(t, message.StatusFailed, msgs[1].Status)
		coll.AssertExpectations(t)
	})

	t.Run("find error", func(t *testing.T) {
		coll := new(MockCollection)
		archive := &MessageArchive{coll: coll, logger: slog.Default()}

		coll.On("Find", ctx, mock.Anything).Return(nil, errors.New("timeout")).Once()

		msgs, err := archive.FindByConversation(ctx, "user-1", "c-1")
		assert.Nil(t, msgs)
		assert.ErrorContains(t, err, "failed to find archived messages")
		coll.AssertExpectations(t)
	})
}
