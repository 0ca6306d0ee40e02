// Command papertrade is a paper trading ledger with pre-trade risk checks.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"papertrade/internal/cli"
)

func main() {
	// Configuration and logging are set up from --config when the command runs.
	if err := cli.NewRootCmd(nil, zerolog.Nop()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
