package message

import (
	"context"
	"time"
)

// Store keeps bus messages. Lookups of unknown ids return (nil, nil).
type Store interface {
	Send(ctx context.Context, req SendRequest) (*Message, error)
	Respond(ctx context.Context, id string, status Status, responsePayload map[string]any, responseMessage string) (*Message, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Message, error)
	GetPendingForAgent(ctx context.Context, agentID string) ([]*Message, error)
	GetByID(ctx context.Context, id string) (*Message, error)
	ListByConversation(ctx context.Context, ownerUserID, conversationID string) ([]*Message, error)

	// Sweep removes terminal messages last updated more than maxAge ago and returns them
	Sweep(ctx context.Context, maxAge time.Duration) ([]*Message, error)
}

// Notifier is implemented by stores that can push state changes instead of being polled
type Notifier interface {
	// WorkAvailable receives a value after a send; bursts coalesce into one signal
	WorkAvailable() <-chan struct{}

	// WatchTerminal returns a channel closed once id reaches a terminal status,
	// and a cancel func that must be called when the caller stops waiting
	WatchTerminal(id string) (<-chan struct{}, func())
}

// TransitionObserver receives every applied terminal transition
type TransitionObserver interface {
	OnTerminal(ctx context.Context, msg *Message)
}
