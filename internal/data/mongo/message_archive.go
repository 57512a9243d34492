// Package mongo keeps swept bus messages in MongoDB after they leave the in-memory store.
package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentbus-ledger/internal/domain/message"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ArchiveCollectionName is the default archive collection
const ArchiveCollectionName = "bus_message_archive"

// collection is the subset of *mongo.Collection the archive uses
type collection interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

var _ collection = (*mongo.Collection)(nil)

// MessageArchive stores terminal messages removed by the sweeper
type MessageArchive struct {
	coll   collection
	logger *slog.Logger
}

// NewMessageArchive creates an archive on the named collection of db
func NewMessageArchive(logger *slog.Logger, db *mongo.Database, collectionName string) *MessageArchive {
	if collectionName == "" {
		collectionName = ArchiveCollectionName
	}
	return &MessageArchive{
		coll:   db.Collection(collectionName),
		logger: logger,
	}
}

// EnsureIndexes creates the conversation lookup index
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_user_id", Value: 1}, {Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "last_updated_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create archive indexes: %w", err)
	}
	return nil
}

// Archive inserts msgs. Messages already archived under the same id are skipped.
func (a *MessageArchive) Archive(ctx context.Context, msgs []*message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	docs := make([]interface{}, len(msgs))
	for i, m := range msgs {
		docs[i] = m
	}

	res, err := a.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			a.logger.Warn("Some messages were already archived", "count", len(msgs))
			return nil
		}
		a.logger.Error("Failed to archive messages", "count", len(msgs), "error", err)
		return fmt.Errorf("failed to archive messages: %w", err)
	}

	a.logger.Debug("Archived messages", "count", len(res.InsertedIDs))
	return nil
}

// FindByConversation returns one owner's archived messages of a conversation, oldest first
func (a *MessageArchive) FindByConversation(ctx context.Context, ownerUserID, conversationID string) ([]*message.Message, error) {
	filter := bson.M{"owner_user_id": ownerUserID, "conversation_id": conversationID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := a.coll.Find(ctx, filter, opts)
	if err != nil {
		a.logger.Error("Failed to find archived messages",
			"conversation_id", conversationID,
			"error", err)
		return nil, fmt.Errorf("failed to find archived messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []*message.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		a.logger.Error("Failed to decode archived messages",
			"conversation_id", conversationID,
			"error", err)
		return nil, fmt.Errorf("failed to decode archived messages: %w", err)
	}
	return msgs, nil
}
