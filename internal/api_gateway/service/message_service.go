package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentbus-ledger/internal/domain/message"
)

// MessageServiceImpl implements the MessageService interface over the bus store
type MessageServiceImpl struct {
	store   message.Store
	waiter  ResponseWaiter
	maxWait time.Duration // upper bound for caller supplied waits, 0 is unbounded
	logger  *slog.Logger
}

// NewMessageService creates a new message service
func NewMessageService(logger *slog.Logger, store message.Store, waiter ResponseWaiter, maxWait time.Duration) MessageService {
	return &MessageServiceImpl{
		store:   store,
		waiter:  waiter,
		maxWait: maxWait,
		logger:  logger,
	}
}

func (s *MessageServiceImpl) Send(ctx context.Context, req message.SendRequest, wait time.Duration) (*message.Message, error) {
	msg, err := s.store.Send(ctx, req)
	if err != nil {
		s.logger.Error("Failed to send message",
			"recipient", req.Recipient,
			"action", req.Action,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Message sent",
		"message_id", msg.ID,
		"recipient", msg.Recipient,
		"action", msg.Action,
		"owner_user_id", msg.OwnerUserID,
	)

	if s.maxWait > 0 && wait > s.maxWait {
		wait = s.maxWait
	}
	if wait <= 0 {
		return msg, nil
	}

	done, err := s.waiter.WaitForResponse(ctx, msg.ID, wait)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for message %s: %w", msg.ID, err)
	}
	if done != nil {
		return done, nil
	}

	// timed out, report the state it has reached
	current, err := s.store.GetByID(ctx, msg.ID)
	if err != nil || current == nil {
		return msg, nil
	}
	return current, nil
}

// GetMessage retrieves a message by its ID. Returns nil if not found or owned by another user
func (s *MessageServiceImpl) GetMessage(ctx context.Context, ownerUserID, id string) (*message.Message, error) {
	msg, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get message by ID", "message_id", id, "error", err)
		return nil, err
	}
	if msg == nil || msg.OwnerUserID != ownerUserID {
		return nil, nil
	}
	return msg, nil
}
