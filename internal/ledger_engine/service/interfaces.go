package service

import (
	"context"
	"time"

	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TxRunner runs fn inside one database transaction; satisfied by *persistence.PostgresDB
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// AccountResolver maps line account references to account ids within tx
type AccountResolver interface {
	// ResolveAccounts returns ref -> account id, or a journal.ValidationError
	// listing every reference that did not resolve
	ResolveAccounts(ctx context.Context, tx pgx.Tx, ownerUserID string, refs []string) (map[string]int64, error)
}

// LineEditor computes new line amounts for an edit without touching storage
type LineEditor interface {
	ApplyAmounts(j *journal.Journal, req EditRequest) (*LineEdit, error)
}

// LineInput is one line as supplied by a caller, referring to its account by code or name
type LineInput struct {
	Account     string          `json:"account" validate:"required"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// StructuredEntry is a fully formed journal description
type StructuredEntry struct {
	Memo            string      `json:"memo"`
	TransactionDate time.Time   `json:"transactionDate"`
	JournalType     string      `json:"journalType"`
	Source          string      `json:"source"`
	Lines           []LineInput `json:"lines" validate:"required,min=2,dive"`
}

// LineAmount replaces the amounts of one line
type LineAmount struct {
	LineID int64           `json:"lineId"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// EditRequest describes a draft edit. Nil fields are left unchanged.
type EditRequest struct {
	ExpectedVersion int              `json:"expectedVersion"`
	Memo            *string          `json:"memo,omitempty"`
	TransactionDate *time.Time       `json:"transactionDate,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"` // both sides of a two-line journal
	DebitAmount     *decimal.Decimal `json:"debitAmount,omitempty"`
	CreditAmount    *decimal.Decimal `json:"creditAmount,omitempty"`
	LineAmounts     []LineAmount     `json:"lineAmounts,omitempty"`
}

// TouchesAmounts reports whether the edit changes any line
func (r EditRequest) TouchesAmounts() bool {
	return r.Amount != nil || r.DebitAmount != nil || r.CreditAmount != nil || len(r.LineAmounts) > 0
}

// LineEdit is the outcome of applying an edit to a journal's lines
type LineEdit struct {
	Lines   []journal.Line // full set after the edit
	Changed []journal.Line // lines whose amounts differ

	// SkipBalanceCheck is set for the ratio-preserving edit of an already imbalanced draft
	SkipBalanceCheck bool
}
