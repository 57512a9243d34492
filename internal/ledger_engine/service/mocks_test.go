package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// fakeTxRunner runs fn without a database and counts the outcome
type fakeTxRunner struct {
	commits   int
	rollbacks int
}

func (f *fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := fn(nil); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type MockJournalRepo struct {
	mock.Mock
}

func (m *MockJournalRepo) Create(ctx context.Context, j *journal.Journal) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockJournalRepo) GetByID(ctx context.Context, id int64) (*journal.Journal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Journal), args.Error(1)
}

func (m *MockJournalRepo) LockForUpdate(ctx context.Context, id int64) (*journal.Journal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Journal), args.Error(1)
}

func (m *MockJournalRepo) UpdateHeader(ctx context.Context, j *journal.Journal, expectedVersion int) error {
	args := m.Called(ctx, j, expectedVersion)
	return args.Error(0)
}

func (m *MockJournalRepo) UpdateLineAmounts(ctx context.Context, journalID, lineID int64, debit, credit decimal.Decimal) error {
	args := m.Called(ctx, journalID, lineID, debit, credit)
	return args.Error(0)
}

func (m *MockJournalRepo) MarkPosted(ctx context.Context, id int64, expectedVersion int) error {
	args := m.Called(ctx, id, expectedVersion)
	return args.Error(0)
}

func (m *MockJournalRepo) MarkDeleted(ctx context.Context, id int64, expectedVersion int) error {
	args := m.Called(ctx, id, expectedVersion)
	return args.Error(0)
}

func (m *MockJournalRepo) SetReversedBy(ctx context.Context, id, reversalID int64) error {
	args := m.Called(ctx, id, reversalID)
	return args.Error(0)
}

func (m *MockJournalRepo) FindBySourceAndAccount(ctx context.Context, ownerUserID, source string, accountID int64) (int64, bool, error) {
	args := m.Called(ctx, ownerUserID, source, accountID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockJournalRepo) WithTx(tx pgx.Tx) journal.Repository {
	args := m.Called(tx)
	return args.Get(0).(journal.Repository)
}

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) FindByCode(ctx context.Context, ownerUserID, code string) (*account.Account, error) {
	args := m.Called(ctx, ownerUserID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) FindByName(ctx context.Context, ownerUserID, name string) (*account.Account, error) {
	args := m.Called(ctx, ownerUserID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepo) ListCodesInRange(ctx context.Context, ownerUserID string, start, end int) ([]int, error) {
	args := m.Called(ctx, ownerUserID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockAccountRepo) WithTx(tx pgx.Tx) account.Repository {
	args := m.Called(tx)
	return args.Get(0).(account.Repository)
}

type MockAccountResolver struct {
	mock.Mock
}

func (m *MockAccountResolver) ResolveAccounts(ctx context.Context, tx pgx.Tx, ownerUserID string, refs []string) (map[string]int64, error) {
	args := m.Called(ctx, tx, ownerUserID, refs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

type MockLineEditor struct {
	mock.Mock
}

func (m *MockLineEditor) ApplyAmounts(j *journal.Journal, req EditRequest) (*LineEdit, error) {
	args := m.Called(j, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LineEdit), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
