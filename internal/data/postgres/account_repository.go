// Package postgres provides PostgreSQL implementations of the ledger repositories.
// Every repository runs on a persistence.Querier so the same code serves the pool
// and an open transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/agentbus-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const accountCodeConstraint = "accounts_owner_code_key"

const (
	insertAccountQuery = `
		INSERT INTO accounts (owner_user_id, code, name, account_type, notes, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	getAccountByIDQuery = `
		SELECT id, owner_user_id, code, name, account_type, notes, is_active, created_at
		FROM accounts
		WHERE id = $1`

	findAccountByCodeQuery = `
		SELECT id, owner_user_id, code, name, account_type, notes, is_active, created_at
		FROM accounts
		WHERE owner_user_id = $1 AND code = $2 AND is_active = TRUE`

	findAccountByNameQuery = `
		SELECT id, owner_user_id, code, name, account_type, notes, is_active, created_at
		FROM accounts
		WHERE owner_user_id = $1 AND LOWER(name) = LOWER($2) AND is_active = TRUE
		ORDER BY id
		LIMIT 1`

	// non-numeric codes map to NULL and fall out of the range filter
	listAccountCodesInRangeQuery = `
		SELECT numeric_code FROM (
			SELECT CASE WHEN code ~ '^[0-9]{1,9}$' THEN code::int END AS numeric_code
			FROM accounts
			WHERE owner_user_id = $1
		) codes
		WHERE numeric_code BETWEEN $2 AND $3
		ORDER BY numeric_code`
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account and fills its id. A code already used by the
// owner yields account.ErrDuplicateCode.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	err := r.querier.QueryRow(ctx, insertAccountQuery,
		acc.OwnerUserID,
		acc.Code,
		acc.Name,
		acc.Type,
		acc.Notes,
		acc.IsActive,
		acc.CreatedAt,
	).Scan(&acc.ID)
	if err != nil {
		if persistence.IsUniqueViolation(err, accountCodeConstraint) {
			return account.ErrDuplicateCode{Code: acc.Code}
		}
		r.logger.Error("Failed to create account", "code", acc.Code, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	acc, err := r.scanOne(r.querier.QueryRow(ctx, getAccountByIDQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// FindByCode returns the owner's active account with code, or nil
func (r *AccountRepository) FindByCode(ctx context.Context, ownerUserID, code string) (*account.Account, error) {
	acc, err := r.scanOne(r.querier.QueryRow(ctx, findAccountByCodeQuery, ownerUserID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find account by code", "code", code, "error", err)
		return nil, fmt.Errorf("failed to find account by code: %w", err)
	}
	return acc, nil
}

// FindByName returns the owner's active account whose name matches case-insensitively, or nil
func (r *AccountRepository) FindByName(ctx context.Context, ownerUserID, name string) (*account.Account, error) {
	acc, err := r.scanOne(r.querier.QueryRow(ctx, findAccountByNameQuery, ownerUserID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find account by name", "name", name, "error", err)
		return nil, fmt.Errorf("failed to find account by name: %w", err)
	}
	return acc, nil
}

// ListCodesInRange returns the owner's numeric codes within [start, end] in ascending order
func (r *AccountRepository) ListCodesInRange(ctx context.Context, ownerUserID string, start, end int) ([]int, error) {
	rows, err := r.querier.Query(ctx, listAccountCodesInRangeQuery, ownerUserID, start, end)
	if err != nil {
		r.logger.Error("Failed to list account codes", "start", start, "end", end, "error", err)
		return nil, fmt.Errorf("failed to list account codes: %w", err)
	}
	defer rows.Close()

	var codes []int
	for rows.Next() {
		var code int
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan account code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account codes: %w", err)
	}
	return codes, nil
}

func (r *AccountRepository) scanOne(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.OwnerUserID,
		&acc.Code,
		&acc.Name,
		&acc.Type,
		&acc.Notes,
		&acc.IsActive,
		&acc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
