package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var accountColumns = []string{"id", "owner_user_id", "code", "name", "account_type", "notes", "is_active", "created_at"}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()

	newAcc := func() *account.Account {
		return &account.Account{
			OwnerUserID: "user-1",
			Code:        "10001",
			Name:        "Petty Cash",
			Type:        account.TypeAsset,
			Notes:       "cash on hand",
			IsActive:    true,
			CreatedAt:   now,
		}
	}

	t.Run("success", func(t *testing.T) {
		acc := newAcc()
		mock.ExpectQuery(regexp.QuoteMeta(insertAccountQuery)).
			WithArgs(acc.OwnerUserID, acc.Code, acc.Name, acc.Type, acc.Notes, acc.IsActive, acc.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		err := repo.Create(ctx, acc)
		require.NoError(t, err)
		assert.Equal(t, int64(42), acc.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate code", func(t *testing.T) {
		acc := newAcc()
		mock.ExpectQuery(regexp.QuoteMeta(insertAccountQuery)).
			WithArgs(acc.OwnerUserID, acc.Code, acc.Name, acc.Type, acc.Notes, acc.IsActive, acc.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: accountCodeConstraint})

		err := repo.Create(ctx, acc)
		assert.ErrorIs(t, err, account.ErrDuplicateCode{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		acc := newAcc()
		expectedErr := errors.New("db error")
		mock.ExpectQuery(regexp.QuoteMeta(insertAccountQuery)).
			WithArgs(acc.OwnerUserID, acc.Code, acc.Name, acc.Type, acc.Notes, acc.IsActive, acc.CreatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(getAccountByIDQuery)).
			WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows(accountColumns).
				AddRow(int64(7), "user-1", "40000", "Sales", account.TypeRevenue, "", true, now))

		acc, err := repo.GetByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "Sales", acc.Name)
		assert.Equal(t, account.TypeRevenue, acc.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(getAccountByIDQuery)).
			WithArgs(int64(8)).
			WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, 8)
		assert.Nil(t, acc)
		assert.Equal(t, account.ErrAccountNotFound{AccountID: 8}, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_FindByCodeAndName(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()

	t.Run("code found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(findAccountByCodeQuery)).
			WithArgs("user-1", "10000").
			WillReturnRows(pgxmock.NewRows(accountColumns).
				AddRow(int64(1), "user-1", "10000", "Bank", account.TypeAsset, "", true, now))

		acc, err := repo.FindByCode(ctx, "user-1", "10000")
		require.NoError(t, err)
		require.NotNil(t, acc)
		assert.Equal(t, int64(1), acc.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("code missing", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(findAccountByCodeQuery)).
			WithArgs("user-1", "99999").
			WillReturnError(pgx.ErrNoRows)

		acc, err := repo.FindByCode(ctx, "user-1", "99999")
		assert.NoError(t, err)
		assert.Nil(t, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("name found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(findAccountByNameQuery)).
			WithArgs("user-1", "petty cash").
			WillReturnRows(pgxmock.NewRows(accountColumns).
				AddRow(int64(3), "user-1", "10001", "Petty Cash", account.TypeAsset, "", true, now))

		acc, err := repo.FindByName(ctx, "user-1", "petty cash")
		require.NoError(t, err)
		require.NotNil(t, acc)
		assert.Equal(t, "Petty Cash", acc.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("name lookup error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(findAccountByNameQuery)).
			WithArgs("user-1", "Rent").
			WillReturnError(errors.New("connection reset"))

		acc, err := repo.FindByName(ctx, "user-1", "Rent")
		assert.Nil(t, acc)
		assert.ErrorContains(t, err, "failed to find account by name")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ListCodesInRange(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	mock.ExpectQuery(regexp.QuoteMeta(listAccountCodesInRangeQuery)).
		WithArgs("user-1", 50000, 59999).
		WillReturnRows(pgxmock.NewRows([]string{"numeric_code"}).
			AddRow(50000).
			AddRow(50001).
			AddRow(50003))

	codes, err := repo.ListCodesInRange(ctx, "user-1", 50000, 59999)
	require.NoError(t, err)
	assert.Equal(t, []int{50000, 50001, 50003}, codes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_WithTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	txRepo, ok := repo.WithTx(tx).(*AccountRepository)
	require.True(t, ok)
	assert.Equal(t, tx, txRepo.querier)
}
