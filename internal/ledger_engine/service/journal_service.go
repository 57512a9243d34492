// Package service implements the ledger engine: journal creation, posting,
// editing and reversal, plus account creation with code allocation. Every write
// runs inside one database transaction.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/platform/metrics"
	"github.com/jackc/pgx/v5"
)

const (
	defaultJournalType = "GJ"
	defaultSource      = "manual"
)

type JournalService struct {
	db       TxRunner
	journals journal.Repository
	resolver AccountResolver
	editor   LineEditor
	logger   *slog.Logger
	now      func() time.Time
}

func NewJournalService(
	db TxRunner,
	journals journal.Repository,
	resolver AccountResolver,
	editor LineEditor,
	logger *slog.Logger,
) *JournalService {
	return &JournalService{
		db:       db,
		journals: journals,
		resolver: resolver,
		editor:   editor,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateJournal resolves every line's account, checks the journal balances, and
// inserts header and lines as one draft. Nothing is written on failure.
func (s *JournalService) CreateJournal(ctx context.Context, ownerUserID string, header journal.Header, lines []LineInput) (j *journal.Journal, err error) {
	defer func() { metrics.ObserveLedger("create_journal", err) }()

	if len(lines) == 0 {
		return nil, journal.ValidationError{Message: "a journal needs at least one debit line and one credit line"}
	}

	refs := make([]string, len(lines))
	for i, l := range lines {
		refs[i] = strings.TrimSpace(l.Account)
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ids, err := s.resolver.ResolveAccounts(ctx, tx, ownerUserID, refs)
		if err != nil {
			return err
		}

		built := make([]journal.Line, len(lines))
		for i, l := range lines {
			built[i] = journal.Line{
				AccountID:   ids[refs[i]],
				Description: l.Description,
				Debit:       l.Debit,
				Credit:      l.Credit,
			}
		}
		if err := journal.ValidateLines(built); err != nil {
			return err
		}

		now := s.now()
		j = &journal.Journal{
			OwnerUserID:     ownerUserID,
			Memo:            header.Memo,
			TransactionDate: header.TransactionDate,
			JournalType:     header.JournalType,
			Source:          header.Source,
			Version:         1,
			CreatedAt:       now,
			UpdatedAt:       now,
			Lines:           built,
		}
		if j.TransactionDate.IsZero() {
			j.TransactionDate = now
		}
		if j.JournalType == "" {
			j.JournalType = defaultJournalType
		}
		if j.Source == "" {
			j.Source = defaultSource
		}
		return s.journals.WithTx(tx).Create(ctx, j)
	})
	if err != nil {
		s.logger.Warn("Journal creation failed", "owner_user_id", ownerUserID, "error", err)
		return nil, err
	}

	s.logger.Info("Journal created", "journal_id", j.ID, "owner_user_id", ownerUserID, "lines", len(j.Lines))
	return j, nil
}

// GetJournal loads a journal with its lines
func (s *JournalService) GetJournal(ctx context.Context, id int64) (*journal.Journal, error) {
	return s.journals.GetByID(ctx, id)
}

// FindBySourceAndAccount returns the id of the oldest live journal from source touching accountID
func (s *JournalService) FindBySourceAndAccount(ctx context.Context, ownerUserID, source string, accountID int64) (int64, bool, error) {
	return s.journals.FindBySourceAndAccount(ctx, ownerUserID, source, accountID)
}

// PostJournal moves a balanced draft to posted. Posting twice fails with the same StateError.
func (s *JournalService) PostJournal(ctx context.Context, id int64) (err error) {
	defer func() { metrics.ObserveLedger("post_journal", err) }()
	logger := s.logger.With("journal_id", id)

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.journals.WithTx(tx)
		j, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := j.CheckPostable(); err != nil {
			return err
		}
		// an imbalanced draft left by a compat edit must not reach the books
		if err := journal.ValidateLines(j.Lines); err != nil {
			return err
		}
		return repo.MarkPosted(ctx, id, j.Version)
	})
	if err != nil {
		logger.Warn("Journal post failed", "error", err)
		return err
	}

	logger.Info("Journal posted")
	return nil
}

// EditJournal applies req to a draft whose stored version equals req.ExpectedVersion
func (s *JournalService) EditJournal(ctx context.Context, id int64, req EditRequest) (j *journal.Journal, err error) {
	defer func() { metrics.ObserveLedger("edit_journal", err) }()
	logger := s.logger.With("journal_id", id)

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.journals.WithTx(tx)
		current, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// posted journals reject every edit, whatever version the caller holds
		if err := current.CheckEditable(); err != nil {
			return err
		}
		if req.ExpectedVersion <= 0 {
			return journal.ValidationError{Message: "expectedVersion is required"}
		}
		if current.Version != req.ExpectedVersion {
			return journal.ErrConcurrentModification{JournalID: id, ExpectedVersion: req.ExpectedVersion, ActualVersion: current.Version}
		}

		if req.Memo != nil {
			current.Memo = *req.Memo
		}
		if req.TransactionDate != nil {
			current.TransactionDate = *req.TransactionDate
		}

		if req.TouchesAmounts() {
			edit, err := s.editor.ApplyAmounts(current, req)
			if err != nil {
				return err
			}
			if edit.SkipBalanceCheck {
				logger.Warn("Preserving debit/credit ratio of an imbalanced draft")
			}
			for _, l := range edit.Changed {
				if err := repo.UpdateLineAmounts(ctx, id, l.ID, l.Debit, l.Credit); err != nil {
					return err
				}
			}
			current.Lines = edit.Lines
		}

		if err := repo.UpdateHeader(ctx, current, req.ExpectedVersion); err != nil {
			return err
		}
		j = current
		return nil
	})
	if err != nil {
		logger.Warn("Journal edit failed", "error", err)
		return nil, err
	}

	logger.Info("Journal edited", "version", j.Version)
	return j, nil
}

// ReverseJournal creates the draft that offsets a posted journal and links the
// source to it in the same transaction
func (s *JournalService) ReverseJournal(ctx context.Context, id int64) (rev *journal.Journal, err error) {
	defer func() { metrics.ObserveLedger("reverse_journal", err) }()
	logger := s.logger.With("journal_id", id)

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.journals.WithTx(tx)
		source, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := source.CheckReversible(); err != nil {
			return err
		}

		rev = source.NewReversal(s.now())
		if err := repo.Create(ctx, rev); err != nil {
			return err
		}
		return repo.SetReversedBy(ctx, source.ID, rev.ID)
	})
	if err != nil {
		logger.Warn("Journal reversal failed", "error", err)
		return nil, err
	}

	logger.Info("Journal reversed", "reversal_journal_id", rev.ID)
	return rev, nil
}

// DeleteJournal logically deletes a draft
func (s *JournalService) DeleteJournal(ctx context.Context, id int64, expectedVersion int) (err error) {
	defer func() { metrics.ObserveLedger("delete_journal", err) }()

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.journals.WithTx(tx)
		j, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if j.IsDeleted {
			return journal.StateError{JournalID: id, Reason: "journal is deleted"}
		}
		if j.IsPosted {
			return journal.StateError{JournalID: id, Reason: "posted journals cannot be deleted, reverse them instead"}
		}
		if j.Version != expectedVersion {
			return journal.ErrConcurrentModification{JournalID: id, ExpectedVersion: expectedVersion, ActualVersion: j.Version}
		}
		return repo.MarkDeleted(ctx, id, expectedVersion)
	})
	if err != nil {
		s.logger.Warn("Journal delete failed", "journal_id", id, "error", err)
		return err
	}

	s.logger.Info("Journal deleted", "journal_id", id)
	return nil
}
