// Package ingress turns records consumed from Kafka into bus sends.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/agentbus-ledger/internal/platform/messaging/producers"
)

const (
	dlqSource = "ingress"

	// defaultSeenCapacity bounds the request ids remembered for duplicate detection
	defaultSeenCapacity = 10000
)

// SendRecord is the JSON value of one ingress record
type SendRecord struct {
	RequestID      string           `json:"requestId"`
	Sender         string           `json:"sender"`
	Recipient      string           `json:"recipient"`
	Action         string           `json:"action"`
	Payload        map[string]any   `json:"payload"`
	OwnerUserID    string           `json:"ownerUserId"`
	Kind           message.Kind     `json:"kind,omitempty"`
	Priority       message.Priority `json:"priority,omitempty"`
	ConversationID string           `json:"conversationId,omitempty"`
}

func (r SendRecord) toRequest() message.SendRequest {
	return message.SendRequest{
		Sender:         r.Sender,
		Recipient:      r.Recipient,
		Action:         r.Action,
		Payload:        r.Payload,
		OwnerUserID:    r.OwnerUserID,
		Kind:           r.Kind,
		Priority:       r.Priority,
		ConversationID: r.ConversationID,
	}
}

// Handler sends each valid record into the bus
type Handler struct {
	store  message.Store
	dlq    producers.DeadLetterPublisher
	logger *slog.Logger

	mu       sync.Mutex
	seen     map[string]string // request id -> message id
	seenFIFO []string
	capacity int
}

// NewHandler creates an ingress handler. dlq may be nil.
func NewHandler(logger *slog.Logger, store message.Store, dlq producers.DeadLetterPublisher) *Handler {
	return &Handler{
		store:    store,
		dlq:      dlq,
		logger:   logger,
		seen:     make(map[string]string),
		capacity: defaultSeenCapacity,
	}
}

// HandleMessage matches consumers.MessageHandler. Unusable records are dead-lettered
// and acknowledged; only store failures are returned so the record is not committed.
func (h *Handler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var record SendRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return h.reject(ctx, key, value, fmt.Sprintf("malformed send record: %s", err))
	}

	log := h.logger.With("request_id", record.RequestID, "recipient", record.Recipient, "action", record.Action)

	if record.RequestID != "" {
		if msgID, dup := h.reserve(record.RequestID); dup {
			log.Info("Skipping already ingested request", "message_id", msgID)
			return nil
		}
	}

	msg, err := h.store.Send(ctx, record.toRequest())
	if err != nil {
		if record.RequestID != "" {
			h.release(record.RequestID)
		}
		if errors.Is(err, message.ErrInvalidSendRequest{}) {
			return h.reject(ctx, key, value, err.Error())
		}
		log.Error("Failed to send ingested request", "error", err)
		return fmt.Errorf("send ingested request: %w", err)
	}

	if record.RequestID != "" {
		h.settle(record.RequestID, msg.ID)
	}
	log.Info("Ingested send request", "message_id", msg.ID)
	return nil
}

func (h *Handler) reject(ctx context.Context, key, value []byte, reason string) error {
	h.logger.Warn("Rejecting ingress record", "message_key", string(key), "reason", reason)
	if h.dlq == nil {
		return nil
	}
	if err := h.dlq.PublishToDLQ(ctx, dlqSource, string(key), value, reason); err != nil {
		// keep the record uncommitted so it is not lost
		return fmt.Errorf("dead-letter ingress record: %w", err)
	}
	return nil
}

// reserve claims requestID before its send. dup is true when another delivery
// already holds it; msgID is empty while that send is still in flight.
func (h *Handler) reserve(requestID string) (msgID string, dup bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if id, ok := h.seen[requestID]; ok {
		return id, true
	}
	h.seen[requestID] = ""
	h.seenFIFO = append(h.seenFIFO, requestID)
	if len(h.seenFIFO) > h.capacity {
		oldest := h.seenFIFO[0]
		h.seenFIFO = h.seenFIFO[1:]
		delete(h.seen, oldest)
	}
	return "", false
}

// settle records the message a reserved request became
func (h *Handler) settle(requestID, messageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.seen[requestID]; ok {
		h.seen[requestID] = messageID
	}
}

// release drops a reservation whose send failed so a redelivery is not skipped
func (h *Handler) release(requestID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.seen[requestID]; !ok {
		return
	}
	delete(h.seen, requestID)
	for i, id := range h.seenFIFO {
		if id == requestID {
			h.seenFIFO = append(h.seenFIFO[:i], h.seenFIFO[i+1:]...)
			break
		}
	}
}
