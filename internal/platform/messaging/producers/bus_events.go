package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentbus-ledger/internal/config"
	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/segmentio/kafka-go"
)

// BusEvent is the audit record published for each terminal transition
type BusEvent struct {
	MessageID       string         `json:"messageId"`
	Sender          string         `json:"sender"`
	Recipient       string         `json:"recipient"`
	Action          string         `json:"action"`
	Status          message.Status `json:"status"`
	OwnerUserID     string         `json:"ownerUserId"`
	ConversationID  string         `json:"conversationId,omitempty"`
	ResponseMessage string         `json:"responseMessage,omitempty"`
	Response        map[string]any `json:"response,omitempty"`
	OccurredAt      time.Time      `json:"occurredAt"`
}

// NewBusEvent builds the event for msg
func NewBusEvent(msg *message.Message) BusEvent {
	return BusEvent{
		MessageID:       msg.ID,
		Sender:          msg.Sender,
		Recipient:       msg.Recipient,
		Action:          msg.Action,
		Status:          msg.Status,
		OwnerUserID:     msg.OwnerUserID,
		ConversationID:  msg.ConversationID,
		ResponseMessage: msg.ResponseMessage,
		Response:        msg.Response(),
		OccurredAt:      msg.LastUpdatedAt,
	}
}

// BusEventProducer mirrors terminal bus transitions onto the events topic
type BusEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

var _ EventPublisher = (*BusEventProducer)(nil)
var _ message.TransitionObserver = (*BusEventProducer)(nil)

// NewBusEventProducer ensures the events topic exists and opens an async writer
func NewBusEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*BusEventProducer, error) {
	if cfg.EventsTopic == "" {
		return nil, fmt.Errorf("kafka events topic is not configured")
	}

	if err := ensureTopic(cfg, cfg.EventsTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure events topic %s exists: %w", cfg.EventsTopic, err)
	}

	return &BusEventProducer{
		logger: logger,
		writer: newWriter(cfg, cfg.EventsTopic, true, logger),
		topic:  cfg.EventsTopic,
	}, nil
}

// Publish marshals value as JSON and writes it under key
func (p *BusEventProducer) Publish(ctx context.Context, key string, value any) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal bus event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish bus event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish bus event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published bus event", "topic", p.topic, "key", key)
	return nil
}

// OnTerminal publishes msg's terminal transition. Failures are logged, never returned to the store.
func (p *BusEventProducer) OnTerminal(ctx context.Context, msg *message.Message) {
	if err := p.Publish(context.WithoutCancel(ctx), msg.ID, NewBusEvent(msg)); err != nil {
		p.logger.Warn("Bus event dropped", "message_id", msg.ID, "status", msg.Status, "error", err)
	}
}

func (p *BusEventProducer) Close() error {
	p.logger.Info("Closing bus event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close bus event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
