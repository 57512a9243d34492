package service

import (
	"context"
	"fmt"

	"github.com/agentbus-ledger/internal/domain/journal"
)

// OperationResult is the never-failing shape returned to callers outside the engine
type OperationResult struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	JournalID       *int64   `json:"journalId,omitempty"`
	NewJournalID    *int64   `json:"newJournalId,omitempty"`
	Version         int      `json:"version,omitempty"`
	MissingAccounts []string `json:"missingAccounts,omitempty"`
	ErrorKind       string   `json:"errorKind,omitempty"`
}

// Boundary wraps JournalService so failures become values instead of errors
type Boundary struct {
	journals *JournalService
}

func NewBoundary(journals *JournalService) *Boundary {
	return &Boundary{journals: journals}
}

func failure(err error) OperationResult {
	return OperationResult{
		Success:         false,
		Message:         err.Error(),
		MissingAccounts: MissingAccounts(err),
		ErrorKind:       string(Classify(err)),
	}
}

// CreateJournalFromStructuredEntry creates a draft journal from entry
func (b *Boundary) CreateJournalFromStructuredEntry(ctx context.Context, entry StructuredEntry, ownerUserID string) OperationResult {
	j, err := b.journals.CreateJournal(ctx, ownerUserID, journal.Header{
		Memo:            entry.Memo,
		TransactionDate: entry.TransactionDate,
		JournalType:     entry.JournalType,
		Source:          entry.Source,
	}, entry.Lines)
	if err != nil {
		return failure(err)
	}
	id := j.ID
	return OperationResult{
		Success:   true,
		Message:   fmt.Sprintf("Journal #%d created as draft", j.ID),
		JournalID: &id,
		Version:   j.Version,
	}
}

func (b *Boundary) PostJournal(ctx context.Context, id int64) OperationResult {
	if err := b.journals.PostJournal(ctx, id); err != nil {
		return failure(err)
	}
	return OperationResult{Success: true, Message: fmt.Sprintf("Journal #%d posted", id), JournalID: &id}
}

func (b *Boundary) ReverseJournal(ctx context.Context, id int64) OperationResult {
	rev, err := b.journals.ReverseJournal(ctx, id)
	if err != nil {
		return failure(err)
	}
	newID := rev.ID
	return OperationResult{
		Success:      true,
		Message:      fmt.Sprintf("Journal #%d reversed by draft journal #%d", id, rev.ID),
		JournalID:    &id,
		NewJournalID: &newID,
	}
}

func (b *Boundary) EditJournal(ctx context.Context, id int64, updates EditRequest) OperationResult {
	j, err := b.journals.EditJournal(ctx, id, updates)
	if err != nil {
		return failure(err)
	}
	return OperationResult{
		Success:   true,
		Message:   fmt.Sprintf("Journal #%d updated", id),
		JournalID: &id,
		Version:   j.Version,
	}
}
