// Package workflows binds bus actions to the ledger engine. An ActionRouter is
// registered with the dispatcher as one agent's handler and fans messages out by
// action.
package workflows

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/agentbus-ledger/internal/domain/message"
)

const (
	// LedgerAgentID is the recipient the ledger workflows are registered under
	LedgerAgentID = "gl_agent"

	ActionCreateGLAccount    = "CREATE_GL_ACCOUNT"
	ActionCreateJournalEntry = "CREATE_JOURNAL_ENTRY"
)

// ActionHandler handles one action. Like dispatcher handlers, returning nil
// means the handler responded itself.
type ActionHandler func(ctx context.Context, msg *message.Message) error

// ActionRouter routes an agent's messages by action
type ActionRouter struct {
	store  message.Store
	logger *slog.Logger

	mu      sync.RWMutex
	actions map[string]ActionHandler
}

func NewActionRouter(store message.Store, logger *slog.Logger) *ActionRouter {
	return &ActionRouter{
		store:   store,
		logger:  logger,
		actions: make(map[string]ActionHandler),
	}
}

// Register binds action to h, replacing any previous handler
func (r *ActionRouter) Register(action string, h ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[action] = h
}

// Actions lists the registered actions
func (r *ActionRouter) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.actions))
	for a := range r.actions {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Handle implements dispatcher.Handler. Unknown actions are rejected.
func (r *ActionRouter) Handle(ctx context.Context, msg *message.Message) error {
	r.mu.RLock()
	h, ok := r.actions[msg.Action]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("Rejecting message with unknown action", "message_id", msg.ID, "action", msg.Action, "recipient", msg.Recipient)
		_, err := r.store.Respond(ctx, msg.ID, message.StatusRejected,
			map[string]any{"error": "Unknown action"},
			fmt.Sprintf("Unknown action %q for %s", msg.Action, msg.Recipient))
		return err
	}
	return h(ctx, msg)
}
