package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the part of kafka.Writer the producers use; tests swap in a mock
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ KafkaWriter = (*kafka.Writer)(nil)

// EventPublisher writes JSON-encoded values to its topic under a key
type EventPublisher interface {
	Publish(ctx context.Context, key string, value any) error
	Close() error
}

// DeadLetterPublisher parks records nobody could process, tagged with the
// component that gave up (source) and why
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, source, key string, value []byte, reason string) error
	Close() error
}
