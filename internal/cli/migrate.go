package cli

import (
	"github.com/spf13/cobra"
)

// NewMigrateCommand groups the schema migration subcommands
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if err := rootOpts.backend.MigrateUp(&cfg.Postgres); err != nil {
				return WrapExitError(ExitCommandError, "migrate up failed", err)
			}
			return rootOpts.formatter(cmd).Success(map[string]string{"migrations": "applied"},
				printLine("Migrations applied from %s", cfg.Postgres.MigrationsPath))
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return NewExitError(ExitCommandError, "--steps must be greater than 0")
			}
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if err := rootOpts.backend.MigrateDown(&cfg.Postgres, steps); err != nil {
				return WrapExitError(ExitCommandError, "migrate down failed", err)
			}
			return rootOpts.formatter(cmd).Success(map[string]int{"rolledBack": steps},
				printLine("Rolled back %d migration(s)", steps))
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			version, dirty, err := rootOpts.backend.MigrationVersion(&cfg.Postgres)
			if err != nil {
				return WrapExitError(ExitCommandError, "migrate version failed", err)
			}
			return rootOpts.formatter(cmd).Success(map[string]any{"version": version, "dirty": dirty},
				printLine("Schema version %d (dirty: %t)", version, dirty))
		},
	})

	return cmd
}
