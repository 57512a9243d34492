package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/agentbus-ledger/internal/domain/journal"
	ledger "github.com/agentbus-ledger/internal/ledger_engine/service"
	"github.com/spf13/cobra"
)

// NewJournalCommand groups the journal subcommands
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect, post and reverse journals",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a journal with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, rootOpts, args[0], func(ctx context.Context, client LedgerClient, id int64) error {
				return runShow(ctx, rootOpts.formatter(cmd), client, id)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "post <id>",
		Short: "Post a balanced draft journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, rootOpts, args[0], func(ctx context.Context, client LedgerClient, id int64) error {
				return reportResult(rootOpts.formatter(cmd), client.PostJournal(ctx, id))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reverse <id>",
		Short: "Create the reversing draft of a posted journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd, rootOpts, args[0], func(ctx context.Context, client LedgerClient, id int64) error {
				return reportResult(rootOpts.formatter(cmd), client.ReverseJournal(ctx, id))
			})
		},
	})

	return cmd
}

// withLedger parses the journal id, opens the ledger and hands both to fn
func withLedger(cmd *cobra.Command, opts *RootOptions, rawID string, fn func(ctx context.Context, client LedgerClient, id int64) error) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid journal id %q", rawID))
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, closeFn, err := opts.backend.OpenLedger(ctx, cfg, opts.logger(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	defer closeFn()

	return fn(ctx, client, id)
}

func reportResult(f *OutputFormatter, result ledger.OperationResult) error {
	if !result.Success {
		var details interface{}
		if len(result.MissingAccounts) > 0 {
			details = result.MissingAccounts
		}
		if err := f.Error(result.ErrorKind, result.Message, details); err != nil {
			return err
		}
		return NewExitError(ExitFailure, result.Message)
	}
	return f.Success(result, printLine("%s", result.Message))
}

func runShow(ctx context.Context, f *OutputFormatter, client LedgerClient, id int64) error {
	j, err := client.GetJournal(ctx, id)
	if err != nil {
		if errors.Is(err, journal.NotFoundError{}) {
			if ferr := f.Error("not_found", err.Error(), nil); ferr != nil {
				return ferr
			}
			return NewExitError(ExitFailure, err.Error())
		}
		return WrapExitError(ExitCommandError, "failed to load journal", err)
	}
	return f.Success(j, func(w io.Writer) { renderJournal(w, j) })
}

func renderJournal(w io.Writer, j *journal.Journal) {
	state := "draft"
	switch {
	case j.IsDeleted:
		state = "deleted"
	case j.IsPosted:
		state = "posted"
	}

	fmt.Fprintf(w, "Journal #%d  %s  %s  v%d\n", j.ID, j.TransactionDate.Format(time.DateOnly), state, j.Version)
	if j.Memo != "" {
		fmt.Fprintf(w, "Memo: %s\n", j.Memo)
	}
	fmt.Fprintf(w, "Type: %s  Source: %s\n", j.JournalType, j.Source)
	if j.ReversalOfJournalID != nil {
		fmt.Fprintf(w, "Reverses: #%d\n", *j.ReversalOfJournalID)
	}
	if j.ReversedByJournalID != nil {
		fmt.Fprintf(w, "Reversed by: #%d\n", *j.ReversedByJournalID)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "LINE\tACCOUNT\tDEBIT\tCREDIT\t")
	for _, l := range j.Lines {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t\n", l.ID, l.AccountID, l.Debit.StringFixed(2), l.Credit.StringFixed(2))
	}
	debits, credits := journal.Totals(j.Lines)
	fmt.Fprintf(tw, "\tTOTAL\t%s\t%s\t\n", debits.StringFixed(2), credits.StringFixed(2))
	_ = tw.Flush()
}
