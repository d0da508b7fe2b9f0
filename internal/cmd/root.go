package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for rpg-bench
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rpg-bench",
		Short: "Search quality benchmark for rpg-encoder",
		Long: `rpg-bench measures whether semantic lifting improves code search.

It prepares a set of repositories (copy or clone, build the graph, lift
entities), then runs every suite query twice against the rpg-encoder
binary: once in snippets mode (unlifted baseline) and once in auto mode
(lifted). The two passes are compared with Acc@k and MRR metrics, a
paired bootstrap confidence interval for the MRR delta, and per-query
improvement/regression lists.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
