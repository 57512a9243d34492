package workflows

import (
	"context"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/ledger_engine/service"
)

// AccountCreator is the slice of service.AccountService the workflows use
type AccountCreator interface {
	CreateAccount(ctx context.Context, ownerUserID, name string, t account.Type, notes string) (*account.Account, bool, error)
}

// JournalWriter is the slice of service.JournalService the workflows use
type JournalWriter interface {
	CreateJournal(ctx context.Context, ownerUserID string, header journal.Header, lines []service.LineInput) (*journal.Journal, error)
	PostJournal(ctx context.Context, id int64) error
	FindBySourceAndAccount(ctx context.Context, ownerUserID, source string, accountID int64) (int64, bool, error)
}

var _ AccountCreator = (*service.AccountService)(nil)
var _ JournalWriter = (*service.JournalService)(nil)
