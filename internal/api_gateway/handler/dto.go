package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentbus-ledger/internal/domain/journal"
	ledger "github.com/agentbus-ledger/internal/ledger_engine/service"
	"github.com/shopspring/decimal"
)

// JournalLineRequest is one line of a journal create request. Account is a
// numeric account code or an account name.
type JournalLineRequest struct {
	Account     string          `json:"account" binding:"required"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// CreateJournalRequest represents a request to create a draft journal
type CreateJournalRequest struct {
	Memo            string               `json:"memo" binding:"max=500"`
	TransactionDate string               `json:"transactionDate"`
	JournalType     string               `json:"journalType"`
	Source          string               `json:"source"`
	Lines           []JournalLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// LineAmountRequest replaces the amounts of one existing line
type LineAmountRequest struct {
	LineID int64           `json:"lineId" binding:"required"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// EditJournalRequest represents a partial update of a draft journal
type EditJournalRequest struct {
	ExpectedVersion int                 `json:"expectedVersion" binding:"required,min=1"`
	Memo            *string             `json:"memo"`
	TransactionDate *string             `json:"transactionDate"`
	Amount          *decimal.Decimal    `json:"amount"`
	DebitAmount     *decimal.Decimal    `json:"debitAmount"`
	CreditAmount    *decimal.Decimal    `json:"creditAmount"`
	LineAmounts     []LineAmountRequest `json:"lineAmounts" binding:"omitempty,dive"`
}

// JournalLineResponse represents a journal line in API responses
type JournalLineResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"accountId"`
	Description string `json:"description,omitempty"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
}

// JournalResponse represents a journal in API responses
type JournalResponse struct {
	ID                  int64                 `json:"id"`
	Memo                string                `json:"memo"`
	TransactionDate     string                `json:"transactionDate"`
	JournalType         string                `json:"journalType"`
	Source              string                `json:"source"`
	Status              string                `json:"status"`
	Version             int                   `json:"version"`
	ReversalOfJournalID *int64                `json:"reversalOfJournalId,omitempty"`
	ReversedByJournalID *int64                `json:"reversedByJournalId,omitempty"`
	TotalDebit          string                `json:"totalDebit"`
	TotalCredit         string                `json:"totalCredit"`
	Lines               []JournalLineResponse `json:"lines"`
	CreatedAt           string                `json:"createdAt"`
	UpdatedAt           string                `json:"updatedAt"`
}

// SendMessageRequest represents a request to put a message on the bus
type SendMessageRequest struct {
	Sender         string         `json:"sender"`
	Recipient      string         `json:"recipient" binding:"required"`
	Action         string         `json:"action" binding:"required"`
	Payload        map[string]any `json:"payload"`
	Kind           string         `json:"kind" binding:"omitempty,oneof=REQUEST RESPONSE NOTIFICATION"`
	Priority       string         `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	ConversationID string         `json:"conversationId"`
}

// SendMessageParams are the query parameters of a send
type SendMessageParams struct {
	WaitMs int `form:"waitMs" binding:"min=0"`
}

// parseTransactionDate accepts YYYY-MM-DD or RFC 3339. Empty yields the zero
// time, which the ledger replaces with today.
func parseTransactionDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid transactionDate %q, want YYYY-MM-DD", s)
}

func (r CreateJournalRequest) toEntry() (ledger.StructuredEntry, error) {
	date, err := parseTransactionDate(r.TransactionDate)
	if err != nil {
		return ledger.StructuredEntry{}, err
	}

	lines := make([]ledger.LineInput, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, ledger.LineInput{
			Account:     l.Account,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}

	return ledger.StructuredEntry{
		Memo:            r.Memo,
		TransactionDate: date,
		JournalType:     r.JournalType,
		Source:          r.Source,
		Lines:           lines,
	}, nil
}

func (r EditJournalRequest) toEditRequest() (ledger.EditRequest, error) {
	req := ledger.EditRequest{
		ExpectedVersion: r.ExpectedVersion,
		Memo:            r.Memo,
		Amount:          r.Amount,
		DebitAmount:     r.DebitAmount,
		CreditAmount:    r.CreditAmount,
	}

	if r.TransactionDate != nil {
		date, err := parseTransactionDate(*r.TransactionDate)
		if err != nil {
			return ledger.EditRequest{}, err
		}
		if !date.IsZero() {
			req.TransactionDate = &date
		}
	}

	for _, la := range r.LineAmounts {
		req.LineAmounts = append(req.LineAmounts, ledger.LineAmount{
			LineID: la.LineID,
			Debit:  la.Debit,
			Credit: la.Credit,
		})
	}
	return req, nil
}

// journalStatus is the single lifecycle label shown to clients
func journalStatus(j *journal.Journal) string {
	switch {
	case j.IsDeleted:
		return "deleted"
	case j.IsPosted:
		return "posted"
	default:
		return "draft"
	}
}

// mapJournalToResponse maps a journal to a response DTO
func mapJournalToResponse(j *journal.Journal) JournalResponse {
	debits, credits := journal.Totals(j.Lines)

	lines := make([]JournalLineResponse, 0, len(j.Lines))
	for _, l := range j.Lines {
		lines = append(lines, JournalLineResponse{
			ID:          l.ID,
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit.StringFixed(2),
			Credit:      l.Credit.StringFixed(2),
		})
	}

	return JournalResponse{
		ID:                  j.ID,
		Memo:                j.Memo,
		TransactionDate:     j.TransactionDate.Format(time.DateOnly),
		JournalType:         j.JournalType,
		Source:              j.Source,
		Status:              journalStatus(j),
		Version:             j.Version,
		ReversalOfJournalID: j.ReversalOfJournalID,
		ReversedByJournalID: j.ReversedByJournalID,
		TotalDebit:          debits.StringFixed(2),
		TotalCredit:         credits.StringFixed(2),
		Lines:               lines,
		CreatedAt:           j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           j.UpdatedAt.Format(time.RFC3339),
	}
}
