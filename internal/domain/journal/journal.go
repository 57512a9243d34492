// Package journal models double-entry journals and the invariants every
// accepted journal must satisfy.
package journal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceTolerance absorbs rounding when comparing debit and credit totals
var BalanceTolerance = decimal.NewFromFloat(0.01)

// ReversalSource marks journals created by ReverseJournal
const ReversalSource = "reversal"

// Journal is a ledger transaction header with its lines
type Journal struct {
	ID                  int64     `json:"id"`
	OwnerUserID         string    `json:"ownerUserId"`
	Memo                string    `json:"memo"`
	TransactionDate     time.Time `json:"transactionDate"`
	JournalType         string    `json:"journalType"`
	Source              string    `json:"source"`
	IsPosted            bool      `json:"isPosted"`
	IsDeleted           bool      `json:"isDeleted"`
	ReversalOfJournalID *int64    `json:"reversalOfJournalId,omitempty"`
	ReversedByJournalID *int64    `json:"reversedByJournalId,omitempty"`
	Version             int       `json:"version"` // For optimistic locking
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
	Lines               []Line    `json:"lines"`
}

// Line is one debit-or-credit leg of a journal
type Line struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journalId"`
	AccountID   int64           `json:"accountId"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// IsDebit reports whether the line sits on the debit side
func (l Line) IsDebit() bool {
	return l.Debit.IsPositive()
}

// Header carries the header fields a caller supplies on create
type Header struct {
	Memo            string
	TransactionDate time.Time
	JournalType     string
	Source          string
}

// Totals returns the debit and credit sums
func Totals(lines []Line) (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits
}

// IsBalanced reports whether debits equal credits within BalanceTolerance
func IsBalanced(lines []Line) bool {
	debits, credits := Totals(lines)
	return debits.Sub(credits).Abs().LessThanOrEqual(BalanceTolerance)
}

// AmountPlaces is the scale of stored line amounts, NUMERIC(18,2)
const AmountPlaces = 2

// ValidateLine checks that exactly one side is strictly positive and the other is zero.
// Amounts finer than a cent are rejected.
func ValidateLine(index int, l Line) error {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return ValidationError{Message: fmt.Sprintf("line %d: amounts cannot be negative", index+1)}
	}
	if !l.Debit.Equal(l.Debit.Round(AmountPlaces)) || !l.Credit.Equal(l.Credit.Round(AmountPlaces)) {
		return ValidationError{Message: fmt.Sprintf("line %d: amounts cannot have more than %d decimal places", index+1, AmountPlaces)}
	}
	debit, credit := l.Debit.IsPositive(), l.Credit.IsPositive()
	if debit && credit {
		return ValidationError{Message: fmt.Sprintf("line %d: a line cannot be both a debit and a credit", index+1)}
	}
	if !debit && !credit {
		return ValidationError{Message: fmt.Sprintf("line %d: a line must have a debit or a credit amount", index+1)}
	}
	return nil
}

// ValidateLines enforces line exclusivity and the balance invariant
func ValidateLines(lines []Line) error {
	if len(lines) < 2 {
		return ValidationError{Message: "a journal needs at least one debit line and one credit line"}
	}
	for i, l := range lines {
		if err := ValidateLine(i, l); err != nil {
			return err
		}
	}
	if !IsBalanced(lines) {
		debits, credits := Totals(lines)
		return ValidationError{Message: fmt.Sprintf("journal is unbalanced: debits %s, credits %s", debits.StringFixed(2), credits.StringFixed(2))}
	}
	return nil
}

// CheckEditable returns a StateError unless j is a live draft
func (j *Journal) CheckEditable() error {
	if j.IsDeleted {
		return StateError{JournalID: j.ID, Reason: "journal is deleted"}
	}
	if j.IsPosted {
		return StateError{JournalID: j.ID, Reason: "posted journals cannot be edited"}
	}
	return nil
}

// CheckPostable returns a StateError unless j can be posted
func (j *Journal) CheckPostable() error {
	if j.IsDeleted {
		return StateError{JournalID: j.ID, Reason: "journal is deleted"}
	}
	if j.IsPosted {
		return StateError{JournalID: j.ID, Reason: "journal is already posted"}
	}
	return nil
}

// CheckReversible returns a StateError unless j can spawn a reversal
func (j *Journal) CheckReversible() error {
	if j.IsDeleted {
		return StateError{JournalID: j.ID, Reason: "journal is deleted"}
	}
	if !j.IsPosted {
		return StateError{JournalID: j.ID, Reason: "only posted journals can be reversed"}
	}
	if j.ReversedByJournalID != nil {
		return StateError{JournalID: j.ID, Reason: fmt.Sprintf("journal is already reversed by journal #%d", *j.ReversedByJournalID)}
	}
	if len(j.Lines) == 0 {
		return StateError{JournalID: j.ID, Reason: "journal has no lines to reverse"}
	}
	return nil
}

// NewReversal builds the draft journal that offsets j, with every line's sides swapped
func (j *Journal) NewReversal(now time.Time) *Journal {
	sourceID := j.ID
	lines := make([]Line, len(j.Lines))
	for i, l := range j.Lines {
		lines[i] = Line{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Credit,
			Credit:      l.Debit,
		}
	}
	return &Journal{
		OwnerUserID:         j.OwnerUserID,
		Memo:                fmt.Sprintf("Reversal of Journal #%d: %s", j.ID, j.Memo),
		TransactionDate:     now,
		JournalType:         j.JournalType,
		Source:              ReversalSource,
		ReversalOfJournalID: &sourceID,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
		Lines:               lines,
	}
}

// SideCounts returns how many lines sit on each side
func SideCounts(lines []Line) (debitLines, creditLines int) {
	for _, l := range lines {
		if l.Debit.IsPositive() {
			debitLines++
		}
		if l.Credit.IsPositive() {
			creditLines++
		}
	}
	return debitLines, creditLines
}
