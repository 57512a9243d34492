// Package cli implements ledgerctl, the operator command line for the ledger:
// schema migrations, journal post/reverse/show, and offline account code allocation.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/agentbus-ledger/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	EnvFile    string // loaded into the environment before config is read
	ConfigName string // base name of the <name>.env file viper looks for

	backend Backend
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for ledgerctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(postgresBackend{})
}

func newRootCommand(backend Backend) *cobra.Command {
	opts := &RootOptions{backend: backend}

	cmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the agent ledger",
		Long:          "Run schema migrations and inspect, post or reverse double-entry journals.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.EnvFile != "" {
				if err := godotenv.Load(opts.EnvFile); err != nil {
					return WrapExitError(ExitCommandError, "failed to load env file "+opts.EnvFile, err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file to load before reading config")
	cmd.PersistentFlags().StringVar(&opts.ConfigName, "config", "ledger_service", "config file base name")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))
	cmd.AddCommand(NewAccountCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// logger writes diagnostics to stderr so JSON output stays parseable
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.ConfigName)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	return cfg, nil
}

// printLine renders a one-line text result
func printLine(format string, args ...any) func(w io.Writer) {
	return func(w io.Writer) {
		fmt.Fprintf(w, format+"\n", args...)
	}
}
