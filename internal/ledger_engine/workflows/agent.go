package workflows

import (
	"log/slog"

	"github.com/agentbus-ledger/internal/domain/message"
)

// NewLedgerAgent returns the router serving both ledger actions
func NewLedgerAgent(store message.Store, accounts AccountCreator, journals JournalWriter, openingAccount string, logger *slog.Logger) *ActionRouter {
	router := NewActionRouter(store, logger.With("agent_id", LedgerAgentID))
	router.Register(ActionCreateGLAccount, NewGLAccountWorkflow(store, accounts, journals, openingAccount, logger.With("action", ActionCreateGLAccount)).Handle)
	router.Register(ActionCreateJournalEntry, NewJournalEntryWorkflow(store, journals, logger.With("action", ActionCreateJournalEntry)).Handle)
	return router
}
