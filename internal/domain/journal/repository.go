package journal

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines journal persistence operations
type Repository interface {
	// Create inserts the header and all lines, filling the generated ids
	Create(ctx context.Context, j *Journal) error
	GetByID(ctx context.Context, id int64) (*Journal, error)

	// LockForUpdate loads the journal and its lines holding a row lock for the transaction
	LockForUpdate(ctx context.Context, id int64) (*Journal, error)

	// UpdateHeader writes memo and date and bumps the version, failing unless
	// the stored version still equals expectedVersion
	UpdateHeader(ctx context.Context, j *Journal, expectedVersion int) error
	UpdateLineAmounts(ctx context.Context, journalID, lineID int64, debit, credit decimal.Decimal) error
	MarkPosted(ctx context.Context, id int64, expectedVersion int) error
	MarkDeleted(ctx context.Context, id int64, expectedVersion int) error

	// SetReversedBy links a posted journal to its reversal; only an unlinked journal is updated
	SetReversedBy(ctx context.Context, id, reversalID int64) error

	// FindBySourceAndAccount reports the oldest non-deleted journal from source
	// with a line on accountID
	FindBySourceAndAccount(ctx context.Context, ownerUserID, source string, accountID int64) (int64, bool, error)
	WithTx(tx pgx.Tx) Repository
}
