package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentbus-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// DeadLetter is the JSON value written to the DLQ topic
type DeadLetter struct {
	Source    string          `json:"source"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value,omitempty"`
	RawValue  string          `json:"rawValue,omitempty"` // set when Value is not valid JSON
	Reason    string          `json:"reason"`
	Timestamp string          `json:"timestamp"`
}

type DLQProducer struct {
	logger   *slog.Logger
	writer   KafkaWriter
	dlqTopic string
	now      func() time.Time
}

var _ DeadLetterPublisher = (*DLQProducer)(nil)

// Returns nil producer if cfg.DLQTopic is empty (DLQ disabled)
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("DLQ topic is not configured, failed messages will only be logged")
		return nil, nil
	}

	if err := ensureTopic(cfg, cfg.DLQTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure DLQ topic %s exists: %w", cfg.DLQTopic, err)
	}

	return &DLQProducer{
		logger:   logger,
		writer:   newWriter(cfg, cfg.DLQTopic, false, logger),
		dlqTopic: cfg.DLQTopic,
		now:      time.Now,
	}, nil
}

// PublishToDLQ writes value with its failure reason, keyed by key
func (p *DLQProducer) PublishToDLQ(ctx context.Context, source, key string, value []byte, reason string) error {
	if p == nil || p.writer == nil {
		return fmt.Errorf("DLQ producer not initialized")
	}

	letter := DeadLetter{
		Source:    source,
		Key:       key,
		Reason:    reason,
		Timestamp: p.now().UTC().Format(time.RFC3339Nano),
	}
	if json.Valid(value) {
		letter.Value = value
	} else {
		letter.RawValue = string(value)
	}

	encoded, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: encoded,
		Headers: []kafka.Header{
			{Key: "dlq-reason", Value: []byte(reason)},
			{Key: "dlq-source", Value: []byte(source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish dead letter",
			"topic", p.dlqTopic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish dead letter to %s: %w", p.dlqTopic, err)
	}

	p.logger.Info("Published dead letter",
		"topic", p.dlqTopic,
		"source", source,
		"key", key,
		"reason", reason,
	)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing DLQ producer", "topic", p.dlqTopic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dlq kafka writer for topic %s: %w", p.dlqTopic, err)
	}
	return nil
}
