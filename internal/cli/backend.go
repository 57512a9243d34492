package cli

import (
	"context"
	"log/slog"

	"github.com/agentbus-ledger/internal/config"
	"github.com/agentbus-ledger/internal/data/postgres"
	"github.com/agentbus-ledger/internal/domain/journal"
	"github.com/agentbus-ledger/internal/ledger_engine/components"
	ledger "github.com/agentbus-ledger/internal/ledger_engine/service"
	"github.com/agentbus-ledger/internal/platform/persistence"
)

// LedgerClient is what the journal commands need from the ledger engine
type LedgerClient interface {
	GetJournal(ctx context.Context, id int64) (*journal.Journal, error)
	PostJournal(ctx context.Context, id int64) ledger.OperationResult
	ReverseJournal(ctx context.Context, id int64) ledger.OperationResult
}

// Backend reaches the database for commands that need it
type Backend interface {
	MigrateUp(cfg *config.PostgresConfig) error
	MigrateDown(cfg *config.PostgresConfig, steps int) error
	MigrationVersion(cfg *config.PostgresConfig) (version uint, dirty bool, err error)

	// OpenLedger connects to Postgres; the returned func releases the pool
	OpenLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (LedgerClient, func(), error)
}

type postgresBackend struct{}

type engineClient struct {
	*ledger.Boundary
	journals *ledger.JournalService
}

func (c engineClient) GetJournal(ctx context.Context, id int64) (*journal.Journal, error) {
	return c.journals.GetJournal(ctx, id)
}

func (postgresBackend) MigrateUp(cfg *config.PostgresConfig) error {
	return persistence.RunMigrations(cfg.URL, cfg.MigrationsPath)
}

func (postgresBackend) MigrateDown(cfg *config.PostgresConfig, steps int) error {
	return persistence.RollbackMigrations(cfg.URL, cfg.MigrationsPath, steps)
}

func (postgresBackend) MigrationVersion(cfg *config.PostgresConfig) (uint, bool, error) {
	return persistence.MigrationVersion(cfg.URL, cfg.MigrationsPath)
}

func (postgresBackend) OpenLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (LedgerClient, func(), error) {
	db, err := persistence.NewPostgresDB(ctx, logger, &cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}

	engine := components.CreateLedgerEngine(
		db,
		postgres.NewJournalRepository(logger, db),
		postgres.NewAccountRepository(logger, db),
		logger,
	)
	return engineClient{Boundary: engine.Boundary, journals: engine.Journals}, db.Close, nil
}
