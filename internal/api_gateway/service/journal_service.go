package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/domain/message"
	ledger "github.com/agentbus-ledger/internal/ledger_engine/service"
)

// JournalServiceImpl implements the JournalService interface on top of the ledger boundary
type JournalServiceImpl struct {
	boundary LedgerBoundary
	reader   JournalReader
	logger   *slog.Logger
}

// NewJournalService creates a new journal service
func NewJournalService(logger *slog.Logger, boundary LedgerBoundary, reader JournalReader) JournalService {
	return &JournalServiceImpl{
		boundary: boundary,
		reader:   reader,
		logger:   logger,
	}
}

func (s *JournalServiceImpl) CreateJournal(ctx context.Context, ownerUserID string, entry ledger.StructuredEntry) ledger.OperationResult {
	result := s.boundary.CreateJournalFromStructuredEntry(ctx, entry, ownerUserID)
	if !result.Success {
		s.logger.Warn("Journal creation rejected",
			"owner_user_id", ownerUserID,
			"error_kind", result.ErrorKind,
			"message", result.Message,
		)
	}
	return result
}

// GetJournal retrieves a journal by its ID. Returns nil if not found or owned by another user
func (s *JournalServiceImpl) GetJournal(ctx context.Context, ownerUserID string, id int64) (*journal.Journal, error) {
	j, err := s.reader.GetJournal(ctx, id)
	if err != nil {
		if errors.Is(err, journal.NotFoundError{}) {
			s.logger.Info("Journal not found", "journal_id", id)
			return nil, nil
		}
		s.logger.Error("Failed to get journal by ID", "journal_id", id, "error", err)
		return nil, err
	}
	if j.OwnerUserID != ownerUserID {
		s.logger.Warn("Journal requested by a different owner", "journal_id", id, "owner_user_id", ownerUserID)
		return nil, nil
	}
	return j, nil
}

func (s *JournalServiceImpl) EditJournal(ctx context.Context, ownerUserID string, id int64, req ledger.EditRequest) ledger.OperationResult {
	if denied := s.authorize(ctx, ownerUserID, id); denied != nil {
		return *denied
	}
	return s.boundary.EditJournal(ctx, id, req)
}

func (s *JournalServiceImpl) PostJournal(ctx context.Context, ownerUserID string, id int64) ledger.OperationResult {
	if denied := s.authorize(ctx, ownerUserID, id); denied != nil {
		return *denied
	}
	return s.boundary.PostJournal(ctx, id)
}

func (s *JournalServiceImpl) ReverseJournal(ctx context.Context, ownerUserID string, id int64) ledger.OperationResult {
	if denied := s.authorize(ctx, ownerUserID, id); denied != nil {
		return *denied
	}
	return s.boundary.ReverseJournal(ctx, id)
}

// authorize returns a failed result unless ownerUserID owns journal id
func (s *JournalServiceImpl) authorize(ctx context.Context, ownerUserID string, id int64) *ledger.OperationResult {
	j, err := s.GetJournal(ctx, ownerUserID, id)
	if err != nil {
		return &ledger.OperationResult{
			Message:   fmt.Sprintf("failed to load journal #%d: %v", id, err),
			ErrorKind: string(message.ErrorKindStore),
		}
	}
	if j == nil {
		return &ledger.OperationResult{
			Message:   journal.NotFoundError{JournalID: id}.Error(),
			ErrorKind: string(message.ErrorKindNotFound),
		}
	}
	return nil
}
