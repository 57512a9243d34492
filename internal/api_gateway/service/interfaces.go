package service

import (
	"context"
	"time"

	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/domain/message"
	ledger "github.com/agentbus-ledger/internal/ledger_engine/service"
)

// JournalService defines the journal operations exposed over HTTP. Every
// operation is scoped to ownerUserID; a journal owned by someone else is reported
// as not found.
type JournalService interface {
	CreateJournal(ctx context.Context, ownerUserID string, entry ledger.StructuredEntry) ledger.OperationResult
	// GetJournal returns nil when the journal does not exist for ownerUserID
	GetJournal(ctx context.Context, ownerUserID string, id int64) (*journal.Journal, error)
	EditJournal(ctx context.Context, ownerUserID string, id int64, req ledger.EditRequest) ledger.OperationResult
	PostJournal(ctx context.Context, ownerUserID string, id int64) ledger.OperationResult
	ReverseJournal(ctx context.Context, ownerUserID string, id int64) ledger.OperationResult
}

// MessageService defines the bus operations exposed over HTTP
type MessageService interface {
	// Send puts req on the bus and waits up to wait for a terminal status.
	// The returned message is whatever state it reached when the wait ended.
	Send(ctx context.Context, req message.SendRequest, wait time.Duration) (*message.Message, error)

	// GetMessage returns nil when the message does not exist for ownerUserID
	GetMessage(ctx context.Context, ownerUserID, id string) (*message.Message, error)
}

// LedgerBoundary is the subset of the ledger boundary the gateway calls
type LedgerBoundary interface {
	CreateJournalFromStructuredEntry(ctx context.Context, entry ledger.StructuredEntry, ownerUserID string) ledger.OperationResult
	PostJournal(ctx context.Context, id int64) ledger.OperationResult
	ReverseJournal(ctx context.Context, id int64) ledger.OperationResult
	EditJournal(ctx context.Context, id int64, updates ledger.EditRequest) ledger.OperationResult
}

// JournalReader loads journals for ownership checks and reads
type JournalReader interface {
	GetJournal(ctx context.Context, id int64) (*journal.Journal, error)
}

// ResponseWaiter blocks until a message is terminal or the timeout elapses
type ResponseWaiter interface {
	WaitForResponse(ctx context.Context, id string, timeout time.Duration) (*message.Message, error)
}

var (
	_ LedgerBoundary = (*ledger.Boundary)(nil)
	_ JournalReader  = (*ledger.JournalService)(nil)
)
