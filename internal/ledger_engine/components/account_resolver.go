package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/ledger_engine/service"
	"github.com/jackc/pgx/v5"
)

// AccountResolverImpl implements the AccountResolver interface against the chart of accounts
type AccountResolverImpl struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewAccountResolver creates a new AccountResolverImpl
func NewAccountResolver(accountRepo account.Repository, logger *slog.Logger) service.AccountResolver {
	return &AccountResolverImpl{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// ResolveAccounts looks numeric references up by code and anything else by
// case-insensitive name. Inactive accounts do not resolve.
func (r *AccountResolverImpl) ResolveAccounts(ctx context.Context, tx pgx.Tx, ownerUserID string, refs []string) (map[string]int64, error) {
	repo := r.accountRepo.WithTx(tx)

	ids := make(map[string]int64, len(refs))
	var missing []string
	seen := make(map[string]bool, len(refs))

	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if seen[ref] {
			continue
		}
		seen[ref] = true

		if ref == "" {
			missing = append(missing, "(empty account reference)")
			continue
		}

		var (
			acc *account.Account
			err error
		)
		if isNumeric(ref) {
			acc, err = repo.FindByCode(ctx, ownerUserID, ref)
		} else {
			acc, err = repo.FindByName(ctx, ownerUserID, ref)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve account %q: %w", ref, err)
		}
		if acc == nil {
			missing = append(missing, ref)
			continue
		}
		ids[ref] = acc.ID
	}

	if len(missing) > 0 {
		r.logger.Info("Unresolved account references", "owner_user_id", ownerUserID, "missing", missing)
		return nil, journal.ValidationError{Message: "unresolved account references", MissingAccounts: missing}
	}
	return ids, nil
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
