package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentbus-ledger/internal/domain/account"
	"github.com/spf13/cobra"
)

// NewAccountCommand groups the account subcommands
func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Chart of accounts helpers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "next-code <type> [codes...]",
		Short: "Print the code the allocator would assign next",
		Long: "Print the lowest free code in the type's range given the codes already in use.\n" +
			"Runs offline; pass the existing codes as arguments.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNextCode(rootOpts.formatter(cmd), args[0], args[1:])
		},
	})

	return cmd
}

func runNextCode(f *OutputFormatter, rawType string, rawCodes []string) error {
	t, err := account.ParseType(rawType)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid account type", err)
	}

	codes := make([]int, 0, len(rawCodes))
	for _, raw := range rawCodes {
		// accept "50000,50001" as well as separate arguments
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			code, err := strconv.Atoi(part)
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid account code %q", part))
			}
			codes = append(codes, code)
		}
	}

	code, err := account.AllocateCode(t, codes)
	if err != nil {
		if ferr := f.Error("state", err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "no code available", err)
	}

	return f.Success(map[string]any{"accountType": t, "code": code}, printLine("%d", code))
}
