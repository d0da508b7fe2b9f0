package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/userFRM/rpg-bench/internal/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// The CI gate prints its own verdict before failing, so only the
		// exit code is needed for it.
		if !errors.Is(err, cmd.ErrCIFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
