package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentbus-ledger/internal/config"
	"github.com/agentbus-ledger/internal/domain/journal"
	ledger "github.com/agentbus-ledger/internal/ledger_engine/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
	client LedgerClient
	closed bool
}

func (m *MockBackend) MigrateUp(cfg *config.PostgresConfig) error {
	args := m.Called(cfg)
	return args.Error(0)
}

func (m *MockBackend) MigrateDown(cfg *config.PostgresConfig, steps int) error {
	args := m.Called(cfg, steps)
	return args.Error(0)
}

func (m *MockBackend) MigrationVersion(cfg *config.PostgresConfig) (uint, bool, error) {
	args := m.Called(cfg)
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *MockBackend) OpenLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (LedgerClient, func(), error) {
	args := m.Called(ctx, cfg, logger)
	if err := args.Error(0); err != nil {
		return nil, nil, err
	}
	return m.client, func() { m.closed = true }, nil
}

type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) GetJournal(ctx context.Context, id int64) (*journal.Journal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Journal), args.Error(1)
}

func (m *MockLedgerClient) PostJournal(ctx context.Context, id int64) ledger.OperationResult {
	args := m.Called(ctx, id)
	return args.Get(0).(ledger.OperationResult)
}

func (m *MockLedgerClient) ReverseJournal(ctx context.Context, id int64) ledger.OperationResult {
	args := m.Called(ctx, id)
	return args.Get(0).(ledger.OperationResult)
}

func newLedgerBackend() (*MockBackend, *MockLedgerClient) {
	client := new(MockLedgerClient)
	backend := &MockBackend{client: client}
	backend.On("OpenLedger", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return backend, client
}

func TestJournalPost(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		backend, client := newLedgerBackend()
		id := int64(7)
		client.On("PostJournal", mock.Anything, int64(7)).
			Return(ledger.OperationResult{Success: true, Message: "Journal #7 posted", JournalID: &id}).Once()

		out, err := runCLI(t, backend, "journal", "post", "7")

		require.NoError(t, err)
		assert.Equal(t, "Journal #7 posted\n", out)
		assert.True(t, backend.closed, "ledger connection is released")
		client.AssertExpectations(t)
	})

	t.Run("RefusedByLedger", func(t *testing.T) {
		backend, client := newLedgerBackend()
		client.On("PostJournal", mock.Anything, int64(7)).
			Return(ledger.OperationResult{Message: "journal #7: already posted", ErrorKind: "state"}).Once()

		out, err := runCLI(t, backend, "--format", "json", "journal", "post", "7")

		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "state", resp.Error.Kind)
		assert.Nil(t, resp.Error.Details)
	})

	t.Run("InvalidID", func(t *testing.T) {
		backend, _ := newLedgerBackend()

		_, err := runCLI(t, backend, "journal", "post", "seven")

		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		backend.AssertNotCalled(t, "OpenLedger", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("DatabaseUnavailable", func(t *testing.T) {
		backend := &MockBackend{}
		backend.On("OpenLedger", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		_, err := runCLI(t, backend, "journal", "post", "7")

		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestJournalReverse(t *testing.T) {
	backend, client := newLedgerBackend()
	id, newID := int64(7), int64(8)
	client.On("ReverseJournal", mock.Anything, int64(7)).Return(ledger.OperationResult{
		Success:      true,
		Message:      "Journal #7 reversed by draft journal #8",
		JournalID:    &id,
		NewJournalID: &newID,
	}).Once()

	out, err := runCLI(t, backend, "--format", "json", "journal", "reverse", "7")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(8), resp.Data["newJournalId"])
}

func TestJournalShow(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		backend, client := newLedgerBackend()
		reverses := int64(3)
		client.On("GetJournal", mock.Anything, int64(4)).Return(&journal.Journal{
			ID:                  4,
			Memo:                "Reversal of journal #3",
			TransactionDate:     time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
			JournalType:         "GJ",
			Source:              journal.ReversalSource,
			Version:             1,
			ReversalOfJournalID: &reverses,
			Lines: []journal.Line{
				{ID: 11, AccountID: 2, Debit: decimal.NewFromInt(100)},
				{ID: 12, AccountID: 1, Credit: decimal.NewFromInt(100)},
			},
		}, nil).Once()

		out, err := runCLI(t, backend, "journal", "show", "4")

		require.NoError(t, err)
		assert.Contains(t, out, "Journal #4  2026-05-04  draft  v1")
		assert.Contains(t, out, "Memo: Reversal of journal #3")
		assert.Contains(t, out, "Reverses: #3")
		assert.Contains(t, out, "TOTAL")
		assert.Contains(t, out, "100.00")
	})

	t.Run("NotFound", func(t *testing.T) {
		backend, client := newLedgerBackend()
		client.On("GetJournal", mock.Anything, int64(4)).Return(nil, journal.NotFoundError{JournalID: 4}).Once()

		out, err := runCLI(t, backend, "journal", "show", "4")

		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Equal(t, "Error [not_found]: journal not found: 4\n", out)
	})
}

func TestMigrate(t *testing.T) {
	t.Run("UpUsesEnvFile", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), "ledger.env")
		require.NoError(t, os.WriteFile(envFile, []byte("POSTGRES_MIGRATIONS_PATH=/srv/ledger/migrations\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("POSTGRES_MIGRATIONS_PATH") })

		backend := &MockBackend{}
		backend.On("MigrateUp", mock.MatchedBy(func(cfg *config.PostgresConfig) bool {
			return cfg.MigrationsPath == "/srv/ledger/migrations"
		})).Return(nil).Once()

		out, err := runCLI(t, backend, "--env-file", envFile, "migrate", "up")

		require.NoError(t, err)
		assert.Equal(t, "Migrations applied from /srv/ledger/migrations\n", out)
		backend.AssertExpectations(t)
	})

	t.Run("Down", func(t *testing.T) {
		backend := &MockBackend{}
		backend.On("MigrateDown", mock.Anything, 2).Return(nil).Once()

		out, err := runCLI(t, backend, "migrate", "down", "--steps", "2")

		require.NoError(t, err)
		assert.Equal(t, "Rolled back 2 migration(s)\n", out)
	})

	t.Run("DownRejectsZeroSteps", func(t *testing.T) {
		backend := &MockBackend{}

		_, err := runCLI(t, backend, "migrate", "down", "--steps", "0")

		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		backend.AssertNotCalled(t, "MigrateDown", mock.Anything, mock.Anything)
	})

	t.Run("Version", func(t *testing.T) {
		backend := &MockBackend{}
		backend.On("MigrationVersion", mock.Anything).Return(uint(2), false, nil).Once()

		out, err := runCLI(t, backend, "migrate", "version")

		require.NoError(t, err)
		assert.Equal(t, "Schema version 2 (dirty: false)\n", out)
	})

	t.Run("Failure", func(t *testing.T) {
		backend := &MockBackend{}
		backend.On("MigrateUp", mock.Anything).Return(errors.New("dirty database version 2")).Once()

		_, err := runCLI(t, backend, "migrate", "up")

		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "dirty database version 2")
	})
}
