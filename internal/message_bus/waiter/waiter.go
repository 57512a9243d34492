// Package waiter lets a producer block until a sent message reaches a terminal status.
package waiter

import (
	"context"
	"log/slog"
	"time"

	"github.com/agentbus-ledger/internal/domain/message"
)

// Waiter blocks on message completion
type Waiter struct {
	store        message.Store
	notifier     message.Notifier // nil falls back to polling only
	pollInterval time.Duration
	logger       *slog.Logger
}

func New(store message.Store, pollInterval time.Duration, logger *slog.Logger) *Waiter {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	w := &Waiter{store: store, pollInterval: pollInterval, logger: logger}
	if n, ok := store.(message.Notifier); ok {
		w.notifier = n
	}
	return w
}

// WaitForResponse returns the message once it is terminal. It returns (nil, nil)
// when id is unknown or timeout elapses first; the handler keeps running and a
// late response still lands on the message.
func (w *Waiter) WaitForResponse(ctx context.Context, id string, timeout time.Duration) (*message.Message, error) {
	msg, err := w.store.GetByID(ctx, id)
	if err != nil || msg == nil || msg.Status.IsTerminal() {
		return msg, err
	}
	if timeout <= 0 {
		return nil, nil
	}

	var watch <-chan struct{}
	if w.notifier != nil {
		ch, cancel := w.notifier.WatchTerminal(id)
		defer cancel()
		watch = ch
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			w.logger.Debug("Timed out waiting for response", "message_id", id, "timeout", timeout.String())
			return nil, nil
		case <-watch:
			watch = nil // closed, stop selecting it
		case <-poll.C:
		}

		msg, err := w.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			// swept while waiting
			return nil, nil
		}
		if msg.Status.IsTerminal() {
			return msg, nil
		}
	}
}
