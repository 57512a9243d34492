package components

import (
	"context"
	"errors"
	"testing"

	"log/slog"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

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

func TestAccountResolver_ResolveAccounts(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	cash := &account.Account{ID: 1, Code: "10000", Name: "Cash", Type: account.TypeAsset, IsActive: true}
	rent := &account.Account{ID: 2, Code: "50010", Name: "Rent Expense", Type: account.TypeExpense, IsActive: true}

	t.Run("resolves codes and names", func(t *testing.T) {
		repo := &MockAccountRepo{}
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("FindByCode", ctx, "user-1", "10000").Return(cash, nil).Once()
		repo.On("FindByName", ctx, "user-1", "rent expense").Return(rent, nil).Once()

		resolver := NewAccountResolver(repo, logger)
		ids, err := resolver.ResolveAccounts(ctx, nil, "user-1", []string{"10000", " rent expense ", "10000"})

		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"10000": 1, "rent expense": 2}, ids)
		repo.AssertExpectations(t)
	})

	t.Run("collects every missing reference", func(t *testing.T) {
		repo := &MockAccountRepo{}
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("FindByCode", ctx, "user-1", "10000").Return(cash, nil)
		repo.On("FindByCode", ctx, "user-1", "99999").Return(nil, nil)
		repo.On("FindByName", ctx, "user-1", "Petty Cash").Return(nil, nil)

		resolver := NewAccountResolver(repo, logger)
		_, err := resolver.ResolveAccounts(ctx, nil, "user-1", []string{"10000", "Petty Cash", "99999"})

		require.Error(t, err)
		assert.ErrorIs(t, err, journal.ValidationError{})
		var ve journal.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, []string{"Petty Cash", "99999"}, ve.MissingAccounts)
	})

	t.Run("empty reference is missing", func(t *testing.T) {
		repo := &MockAccountRepo{}
		repo.On("WithTx", mock.Anything).Return(repo)

		_, err := NewAccountResolver(repo, logger).ResolveAccounts(ctx, nil, "user-1", []string{"  "})
		assert.ErrorIs(t, err, journal.ValidationError{})
	})

	t.Run("repository failure is wrapped", func(t *testing.T) {
		repo := &MockAccountRepo{}
		repo.On("WithTx", mock.Anything).Return(repo)
		repo.On("FindByName", ctx, "user-1", "Cash").Return(nil, errors.New("connection reset"))

		_, err := NewAccountResolver(repo, logger).ResolveAccounts(ctx, nil, "user-1", []string{"Cash"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, journal.ValidationError{})
		assert.Contains(t, err.Error(), `failed to resolve account "Cash"`)
	})
}
