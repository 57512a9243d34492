package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/agentbus-ledger/internal/platform/metrics"
	"github.com/jackc/pgx/v5"
)

// maxCodeAttempts bounds retries when a concurrent creator takes the allocated code
const maxCodeAttempts = 3

type AccountService struct {
	db       TxRunner
	accounts account.Repository
	logger   *slog.Logger
}

func NewAccountService(db TxRunner, accounts account.Repository, logger *slog.Logger) *AccountService {
	return &AccountService{db: db, accounts: accounts, logger: logger}
}

// CreateAccount allocates the lowest free code in the type's range and inserts an
// active account. An active account with the same name is returned as is, with
// existing set.
func (s *AccountService) CreateAccount(ctx context.Context, ownerUserID, name string, t account.Type, notes string) (acc *account.Account, existing bool, err error) {
	defer func() { metrics.ObserveLedger("create_account", err) }()
	logger := s.logger.With("owner_user_id", ownerUserID, "account_name", name, "account_type", t)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, account.ErrEmptyName
	}
	r, err := account.RangeFor(t)
	if err != nil {
		return nil, false, err
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		acc, existing = nil, false
		err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			repo := s.accounts.WithTx(tx)

			found, err := repo.FindByName(ctx, ownerUserID, name)
			if err != nil {
				return err
			}
			if found != nil {
				acc, existing = found, true
				return nil
			}

			codes, err := repo.ListCodesInRange(ctx, ownerUserID, r.Start, r.End)
			if err != nil {
				return err
			}
			code, err := account.AllocateCode(t, codes)
			if err != nil {
				return err
			}

			created, err := account.NewAccount(ownerUserID, name, t, code, notes)
			if err != nil {
				return err
			}
			if err := repo.Create(ctx, created); err != nil {
				return err
			}
			acc = created
			return nil
		})

		if errors.Is(err, account.ErrDuplicateCode{}) {
			logger.Warn("Allocated account code was taken concurrently, retrying", "attempt", attempt, "error", err)
			continue
		}
		break
	}
	if err != nil {
		logger.Error("Failed to create account", "error", err)
		return nil, false, err
	}

	if existing {
		logger.Info("Account with this name already exists, reusing it", "account_id", acc.ID, "code", acc.Code)
		return acc, true, nil
	}
	logger.Info("Account created", "account_id", acc.ID, "code", acc.Code)
	return acc, false, nil
}

// NextCode reports the code CreateAccount would allocate for t right now
func (s *AccountService) NextCode(ctx context.Context, ownerUserID string, t account.Type) (int, error) {
	r, err := account.RangeFor(t)
	if err != nil {
		return 0, err
	}
	codes, err := s.accounts.ListCodesInRange(ctx, ownerUserID, r.Start, r.End)
	if err != nil {
		return 0, err
	}
	return account.AllocateCode(t, codes)
}
