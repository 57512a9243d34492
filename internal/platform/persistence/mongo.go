package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agentbus-ledger/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoTimeout = 10 * time.Second

// MongoDB holds the client backing the swept-message archive
type MongoDB struct {
	logger            *slog.Logger
	client            *mongo.Client
	database          *mongo.Database
	archiveCollection string
}

// NewMongoDB connects and pings; callers only build it when the archive is enabled
func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongo archive is not configured: MONGO_URI is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}

	client, err := mongo.Connect(ctx, mongoClientOptions(cfg, timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database, "archive_collection", cfg.ArchiveCollection)
	return newMongoDB(logger, client, cfg), nil
}

func newMongoDB(logger *slog.Logger, client *mongo.Client, cfg *config.MongoDBConfig) *MongoDB {
	return &MongoDB{
		logger:            logger,
		client:            client,
		database:          client.Database(cfg.Database),
		archiveCollection: cfg.ArchiveCollection,
	}
}

func mongoClientOptions(cfg *config.MongoDBConfig, timeout time.Duration) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetTimeout(timeout)
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	}
	return opts
}

func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// ArchiveCollection names the collection swept messages are written to
func (m *MongoDB) ArchiveCollection() string {
	return m.archiveCollection
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
