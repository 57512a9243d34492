// Package memory provides the in-process implementation of the bus message store.
// State lives in one process; two service instances never see each other's messages.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/agentbus-ledger/internal/platform/metrics"
	"github.com/google/uuid"
)

// MessageStore is a mutex-guarded message table that pushes work and terminal signals
type MessageStore struct {
	mu        sync.Mutex
	messages  map[string]*message.Message
	order     []string // insertion order, compacted by Sweep
	watchers  map[string]map[uint64]chan struct{}
	nextWatch uint64
	work      chan struct{}

	now       func() time.Time
	newID     func() string
	observers []message.TransitionObserver
	logger    *slog.Logger
}

// Option customizes a MessageStore
type Option func(*MessageStore)

// WithClock replaces time.Now, mainly for sweep tests
func WithClock(now func() time.Time) Option {
	return func(s *MessageStore) { s.now = now }
}

// WithIDGenerator replaces the uuid generator
func WithIDGenerator(gen func() string) Option {
	return func(s *MessageStore) { s.newID = gen }
}

// WithObserver registers an observer for terminal transitions
func WithObserver(o message.TransitionObserver) Option {
	return func(s *MessageStore) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

var _ message.Store = (*MessageStore)(nil)
var _ message.Notifier = (*MessageStore)(nil)

// NewMessageStore creates an empty store
func NewMessageStore(logger *slog.Logger, opts ...Option) *MessageStore {
	s := &MessageStore{
		messages: make(map[string]*message.Message),
		watchers: make(map[string]map[uint64]chan struct{}),
		work:     make(chan struct{}, 1),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send stores a new PENDING message and signals dispatch
func (s *MessageStore) Send(ctx context.Context, req message.SendRequest) (*message.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := make(map[string]any, len(req.Payload))
	for k, v := range req.Payload {
		payload[k] = v
	}

	s.mu.Lock()
	now := s.now()
	msg := (&message.Message{
		ID:             s.newID(),
		Kind:           req.Kind,
		Sender:         req.Sender,
		Recipient:      req.Recipient,
		Action:         req.Action,
		Payload:        payload,
		Priority:       req.Priority,
		Status:         message.StatusPending,
		OwnerUserID:    req.OwnerUserID,
		ConversationID: req.ConversationID,
		CreatedAt:      now,
		LastUpdatedAt:  now,
	}).Clone()
	s.messages[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	out := msg.Clone()
	s.mu.Unlock()

	select {
	case s.work <- struct{}{}:
	default:
	}
	metrics.MessagesSent.WithLabelValues(out.Action).Inc()

	s.logger.Debug("Message sent",
		"message_id", out.ID,
		"sender", out.Sender,
		"recipient", out.Recipient,
		"action", out.Action,
	)
	return out, nil
}

// Respond merges responsePayload under the response key and applies status
func (s *MessageStore) Respond(ctx context.Context, id string, status message.Status, responsePayload map[string]any, responseMessage string) (*message.Message, error) {
	return s.transition(ctx, id, status, func(m *message.Message) {
		m.Payload = message.MergeResponse(m.Payload, responsePayload)
		m.ResponseMessage = responseMessage
	})
}

// UpdateStatus applies a status-only transition
func (s *MessageStore) UpdateStatus(ctx context.Context, id string, status message.Status) (*message.Message, error) {
	return s.transition(ctx, id, status, nil)
}

func (s *MessageStore) transition(ctx context.Context, id string, status message.Status, mutate func(*message.Message)) (*message.Message, error) {
	s.mu.Lock()
	msg, ok := s.messages[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	if !message.CanTransition(msg.Status, status) {
		from := msg.Status
		s.mu.Unlock()
		return nil, message.ErrInvalidTransition{MessageID: id, From: from, To: status}
	}

	if mutate != nil {
		mutate(msg)
	}
	msg.Status = status
	msg.LastUpdatedAt = s.now()
	out := msg.Clone()

	if status.IsTerminal() {
		for _, ch := range s.watchers[id] {
			close(ch)
		}
		delete(s.watchers, id)
	}
	s.mu.Unlock()

	if status.IsTerminal() {
		for _, o := range s.observers {
			o.OnTerminal(ctx, out.Clone())
		}
	}
	return out, nil
}

// GetPendingForAgent returns the agent's PENDING messages in insertion order
func (s *MessageStore) GetPendingForAgent(ctx context.Context, agentID string) ([]*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*message.Message
	for _, id := range s.order {
		m, ok := s.messages[id]
		if !ok {
			continue
		}
		if m.Recipient == agentID && m.Status == message.StatusPending {
			pending = append(pending, m.Clone())
		}
	}
	return pending, nil
}

// GetByID returns a copy of the message or nil
func (s *MessageStore) GetByID(ctx context.Context, id string) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	return m.Clone(), nil
}

// ListByConversation returns one owner's messages of a conversation in insertion order
func (s *MessageStore) ListByConversation(ctx context.Context, ownerUserID, conversationID string) ([]*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*message.Message
	for _, id := range s.order {
		m, ok := s.messages[id]
		if !ok {
			continue
		}
		if m.OwnerUserID == ownerUserID && m.ConversationID == conversationID {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

// Sweep removes terminal messages whose last update is older than maxAge.
// PENDING and PROCESSING messages are kept regardless of age.
func (s *MessageStore) Sweep(ctx context.Context, maxAge time.Duration) ([]*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed []*message.Message
	kept := s.order[:0]
	for _, id := range s.order {
		m, ok := s.messages[id]
		if !ok {
			continue
		}
		if m.Status.IsTerminal() && now.Sub(m.LastUpdatedAt) > maxAge {
			removed = append(removed, m)
			delete(s.messages, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept

	if len(removed) > 0 {
		s.logger.Info("Swept terminal messages", "count", len(removed), "max_age", maxAge.String())
	}
	return removed, nil
}

// WorkAvailable is signalled after each Send
func (s *MessageStore) WorkAvailable() <-chan struct{} {
	return s.work
}

// WatchTerminal returns a channel closed when id turns terminal. The channel is
// already closed when id is unknown or terminal, so callers re-read the message.
func (s *MessageStore) WatchTerminal(id string) (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	m, ok := s.messages[id]
	if !ok || m.Status.IsTerminal() {
		close(ch)
		return ch, func() {}
	}

	s.nextWatch++
	key := s.nextWatch
	if s.watchers[id] == nil {
		s.watchers[id] = make(map[uint64]chan struct{})
	}
	s.watchers[id][key] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			delete(w, key)
			if len(w) == 0 {
				delete(s.watchers, id)
			}
		}
	}
}

// Len reports the number of stored messages
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
