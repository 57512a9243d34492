package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	insertJournalQuery = `
		INSERT INTO journals (owner_user_id, memo, transaction_date, journal_type, source, is_posted,
			is_deleted, reversal_of_journal_id, reversed_by_journal_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	insertJournalLineQuery = `
		INSERT INTO journal_lines (journal_id, account_id, description, debit, credit)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	selectJournalQuery = `
		SELECT id, owner_user_id, memo, transaction_date, journal_type, source, is_posted, is_deleted,
			reversal_of_journal_id, reversed_by_journal_id, version, created_at, updated_at
		FROM journals
		WHERE id = $1`

	lockJournalQuery = selectJournalQuery + `
		FOR UPDATE`

	selectJournalLinesQuery = `
		SELECT id, journal_id, account_id, description, debit::text, credit::text
		FROM journal_lines
		WHERE journal_id = $1
		ORDER BY id`

	updateJournalHeaderQuery = `
		UPDATE journals
		SET memo = $1, transaction_date = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5 AND is_posted = FALSE AND is_deleted = FALSE`

	updateJournalLineQuery = `
		UPDATE journal_lines
		SET debit = $1, credit = $2
		WHERE id = $3 AND journal_id = $4`

	markJournalPostedQuery = `
		UPDATE journals
		SET is_posted = TRUE, version = version + 1, updated_at = $1
		WHERE id = $2 AND version = $3 AND is_posted = FALSE AND is_deleted = FALSE`

	markJournalDeletedQuery = `
		UPDATE journals
		SET is_deleted = TRUE, version = version + 1, updated_at = $1
		WHERE id = $2 AND version = $3 AND is_posted = FALSE AND is_deleted = FALSE`

	setReversedByQuery = `
		UPDATE journals
		SET reversed_by_journal_id = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND is_posted = TRUE AND reversed_by_journal_id IS NULL`

	findJournalBySourceAccountQuery = `
		SELECT j.id
		FROM journals j
		JOIN journal_lines l ON l.journal_id = j.id
		WHERE j.owner_user_id = $1 AND j.source = $2 AND l.account_id = $3 AND j.is_deleted = FALSE
		ORDER BY j.id
		LIMIT 1`
)

// JournalRepository implements the journal.Repository interface for PostgreSQL
type JournalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
	now     func() time.Time
}

// NewJournalRepository creates a new PostgreSQL journal repository.
func NewJournalRepository(logger *slog.Logger, db *persistence.PostgresDB) journal.Repository {
	return &JournalRepository{
		querier: db.Pool(),
		logger:  logger,
		now:     time.Now,
	}
}

// WithTx returns a repository bound to tx
func (r *JournalRepository) WithTx(tx pgx.Tx) journal.Repository {
	return &JournalRepository{
		querier: tx,
		logger:  r.logger,
		now:     r.now,
	}
}

// Create inserts the header then each line, filling generated ids.
// Callers run it inside a transaction so a failed line discards the header.
func (r *JournalRepository) Create(ctx context.Context, j *journal.Journal) error {
	err := r.querier.QueryRow(ctx, insertJournalQuery,
		j.OwnerUserID,
		j.Memo,
		j.TransactionDate,
		j.JournalType,
		j.Source,
		j.IsPosted,
		j.IsDeleted,
		j.ReversalOfJournalID,
		j.ReversedByJournalID,
		j.Version,
		j.CreatedAt,
		j.UpdatedAt,
	).Scan(&j.ID)
	if err != nil {
		r.logger.Error("Failed to create journal", "memo", j.Memo, "error", err)
		return fmt.Errorf("failed to create journal: %w", err)
	}

	for i := range j.Lines {
		line := &j.Lines[i]
		line.JournalID = j.ID
		err := r.querier.QueryRow(ctx, insertJournalLineQuery,
			line.JournalID,
			line.AccountID,
			line.Description,
			line.Debit,
			line.Credit,
		).Scan(&line.ID)
		if err != nil {
			r.logger.Error("Failed to create journal line", "journal_id", j.ID, "line", i+1, "error", err)
			return fmt.Errorf("failed to create journal line %d: %w", i+1, err)
		}
	}
	return nil
}

// GetByID loads a journal with its lines
func (r *JournalRepository) GetByID(ctx context.Context, id int64) (*journal.Journal, error) {
	return r.load(ctx, selectJournalQuery, id)
}

// LockForUpdate loads a journal holding its row lock until the transaction ends
func (r *JournalRepository) LockForUpdate(ctx context.Context, id int64) (*journal.Journal, error) {
	return r.load(ctx, lockJournalQuery, id)
}

func (r *JournalRepository) load(ctx context.Context, query string, id int64) (*journal.Journal, error) {
	var j journal.Journal
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&j.ID,
		&j.OwnerUserID,
		&j.Memo,
		&j.TransactionDate,
		&j.JournalType,
		&j.Source,
		&j.IsPosted,
		&j.IsDeleted,
		&j.ReversalOfJournalID,
		&j.ReversedByJournalID,
		&j.Version,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, journal.NotFoundError{JournalID: id}
		}
		r.logger.Error("Failed to get journal", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get journal: %w", err)
	}

	lines, err := r.lines(ctx, id)
	if err != nil {
		return nil, err
	}
	j.Lines = lines
	return &j, nil
}

func (r *JournalRepository) lines(ctx context.Context, journalID int64) ([]journal.Line, error) {
	rows, err := r.querier.Query(ctx, selectJournalLinesQuery, journalID)
	if err != nil {
		r.logger.Error("Failed to get journal lines", "journal_id", journalID, "error", err)
		return nil, fmt.Errorf("failed to get journal lines: %w", err)
	}
	defer rows.Close()

	var lines []journal.Line
	for rows.Next() {
		var (
			l             journal.Line
			debit, credit string
		)
		if err := rows.Scan(&l.ID, &l.JournalID, &l.AccountID, &l.Description, &debit, &credit); err != nil {
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		if l.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("invalid debit on line %d: %w", l.ID, err)
		}
		if l.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("invalid credit on line %d: %w", l.ID, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal lines: %w", err)
	}
	return lines, nil
}

// UpdateHeader writes memo and transaction date when the version still matches
func (r *JournalRepository) UpdateHeader(ctx context.Context, j *journal.Journal, expectedVersion int) error {
	now := r.now()
	tag, err := r.querier.Exec(ctx, updateJournalHeaderQuery, j.Memo, j.TransactionDate, now, j.ID, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to update journal", "id", j.ID, "error", err)
		return fmt.Errorf("failed to update journal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return journal.ErrConcurrentModification{JournalID: j.ID, ExpectedVersion: expectedVersion}
	}
	j.Version = expectedVersion + 1
	j.UpdatedAt = now
	return nil
}

// UpdateLineAmounts rewrites one line's debit and credit
func (r *JournalRepository) UpdateLineAmounts(ctx context.Context, journalID, lineID int64, debit, credit decimal.Decimal) error {
	tag, err := r.querier.Exec(ctx, updateJournalLineQuery, debit, credit, lineID, journalID)
	if err != nil {
		r.logger.Error("Failed to update journal line", "journal_id", journalID, "line_id", lineID, "error", err)
		return fmt.Errorf("failed to update journal line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return journal.ValidationError{Message: fmt.Sprintf("line %d does not belong to journal #%d", lineID, journalID)}
	}
	return nil
}

// MarkPosted flags a draft as posted
func (r *JournalRepository) MarkPosted(ctx context.Context, id int64, expectedVersion int) error {
	return r.guardedUpdate(ctx, markJournalPostedQuery, "post", id, expectedVersion)
}

// MarkDeleted soft-deletes a draft
func (r *JournalRepository) MarkDeleted(ctx context.Context, id int64, expectedVersion int) error {
	return r.guardedUpdate(ctx, markJournalDeletedQuery, "delete", id, expectedVersion)
}

func (r *JournalRepository) guardedUpdate(ctx context.Context, query, op string, id int64, expectedVersion int) error {
	tag, err := r.querier.Exec(ctx, query, r.now(), id, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to "+op+" journal", "id", id, "error", err)
		return fmt.Errorf("failed to %s journal: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return journal.ErrConcurrentModification{JournalID: id, ExpectedVersion: expectedVersion}
	}
	return nil
}

// SetReversedBy links a posted journal to its reversal
func (r *JournalRepository) SetReversedBy(ctx context.Context, id, reversalID int64) error {
	tag, err := r.querier.Exec(ctx, setReversedByQuery, reversalID, r.now(), id)
	if err != nil {
		r.logger.Error("Failed to link reversal", "id", id, "reversal_id", reversalID, "error", err)
		return fmt.Errorf("failed to link reversal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return journal.StateError{JournalID: id, Reason: "journal is not posted or is already reversed"}
	}
	return nil
}

// FindBySourceAndAccount returns the oldest live journal of ownerUserID from source with a line on accountID
func (r *JournalRepository) FindBySourceAndAccount(ctx context.Context, ownerUserID, source string, accountID int64) (int64, bool, error) {
	var id int64
	err := r.querier.QueryRow(ctx, findJournalBySourceAccountQuery, ownerUserID, source, accountID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		r.logger.Error("Failed to find journal by source", "source", source, "account_id", accountID, "error", err)
		return 0, false, fmt.Errorf("failed to find journal by source: %w", err)
	}
	return id, true, nil
}
