package main

import (
	"fmt"
	"os"

	"github.com/agentbus-ledger/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
