package components

import (
	"log/slog"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/ledger_engine/service"
)

// Engine groups the ledger services built over one database
type Engine struct {
	Journals *service.JournalService
	Accounts *service.AccountService
	Boundary *service.Boundary
}

// CreateLedgerEngine wires the ledger services with all their dependencies.
func CreateLedgerEngine(
	db service.TxRunner,
	journalRepo journal.Repository,
	accountRepo account.Repository,
	logger *slog.Logger,
) *Engine {
	resolver := NewAccountResolver(accountRepo, logger.With("component", "account_resolver"))
	editor := NewLineEditor()

	journals := service.NewJournalService(db, journalRepo, resolver, editor, logger.With("component", "journal_service"))
	accounts := service.NewAccountService(db, accountRepo, logger.With("component", "account_service"))

	logger.Info("Created ledger engine")
	return &Engine{
		Journals: journals,
		Accounts: accounts,
		Boundary: service.NewBoundary(journals),
	}
}
