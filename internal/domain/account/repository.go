package account

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Repository defines chart-of-accounts persistence operations
type Repository interface {
	Create(ctx context.Context, acc *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)

	// FindByCode and FindByName return (nil, nil) when no active account matches.
	// FindByName compares case-insensitively.
	FindByCode(ctx context.Context, ownerUserID, code string) (*Account, error)
	FindByName(ctx context.Context, ownerUserID, name string) (*Account, error)

	// ListCodesInRange returns every numeric code the owner uses within [start, end]
	ListCodesInRange(ctx context.Context, ownerUserID string, start, end int) ([]int, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID int64
}

func (e ErrAccountNotFound) Error() string {
	return fmt.Sprintf("account not found: %d", e.AccountID)
}

// ErrDuplicateCode indicates the owner already uses the code
type ErrDuplicateCode struct {
	Code string
}

func (e ErrDuplicateCode) Error() string {
	return "account with code already exists: " + e.Code
}

func (e ErrDuplicateCode) Is(target error) bool {
	_, ok := target.(ErrDuplicateCode)
	return ok
}
