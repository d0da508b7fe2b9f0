package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/userFRM/rpg-bench/internal/config"
	"github.com/userFRM/rpg-bench/internal/history"
)

// NewHistoryCommand creates the 'rpg-bench history' parent command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Benchmark run history commands",
		Long: `Commands for viewing and managing recorded benchmark runs.

Every completed run is recorded in a SQLite database (unless --no-history
is set) so MRR movement can be tracked across encoder changes.`,
	}

	// Add subcommands
	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryStatsCommand())
	cmd.AddCommand(newHistoryClearCommand())

	return cmd
}

// historyDBPath resolves the history database location from the config
// file, honoring the override used in tests.
func historyDBPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cfg, err := config.LoadConfig(config.DefaultConfigPath)
	if err != nil {
		return "", err
	}
	return cfg.HistoryDBPath(), nil
}

// newHistoryListCommand creates the 'rpg-bench history list' command
func newHistoryListCommand() *cobra.Command {
	var limit int
	var dbPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded benchmark runs",
		Long: `Display recorded benchmark runs, most recent first, with the MRR of
both passes and the MRR delta (with its confidence interval when one
was estimated).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, limit, dbPath)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show (0 = all)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (for testing)")

	return cmd
}

// runHistoryList executes the list command
func runHistoryList(cmd *cobra.Command, limit int, dbPathOverride string) error {
	output := cmd.OutOrStdout()

	dbPath, err := historyDBPath(dbPathOverride)
	if err != nil {
		return err
	}

	// Check if database exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No history database found at: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintf(output, "No runs recorded yet.\n")
		return nil
	}

	printRuns(output, runs)
	return nil
}

// printRuns formats and prints the run list
func printRuns(w io.Writer, runs []*history.Run) {
	// Colors
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	// Header
	cyan.Fprintf(w, "\n=== Benchmark Run History ===\n\n")
	fmt.Fprintf(w, "  %-4s %-19s %6s %8s %9s %8s %8s\n",
		"ID", "Timestamp", "Repos", "Queries", "Unlifted", "Lifted", "Delta")

	for _, run := range runs {
		fmt.Fprintf(w, "  %-4d %-19s %6d %8d %9.3f %8.3f ",
			run.ID, run.Timestamp, run.Repos, run.Queries, run.UnliftedMRR, run.LiftedMRR)

		switch {
		case run.Delta > 0:
			green.Fprintf(w, "%+8.3f", run.Delta)
		case run.Delta < 0:
			red.Fprintf(w, "%+8.3f", run.Delta)
		default:
			fmt.Fprintf(w, "%+8.3f", run.Delta)
		}
		if run.CILower != nil && run.CIUpper != nil {
			gray.Fprintf(w, "  CI [%+.3f, %+.3f]", *run.CILower, *run.CIUpper)
		}
		fmt.Fprintf(w, "\n")

		if run.Suite != "" {
			gray.Fprintf(w, "       suite: %s\n", run.Suite)
		}
	}

	fmt.Fprintf(w, "\n")
}

// newHistoryStatsCommand creates the 'rpg-bench history stats' command
func newHistoryStatsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics over recorded runs",
		Long: `Display aggregate statistics over all recorded benchmark runs:
  - Run count and time span
  - Mean, best, and worst MRR delta
  - How many runs improved on the baseline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryStats(cmd, dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (for testing)")

	return cmd
}

// runHistoryStats executes the stats command
func runHistoryStats(cmd *cobra.Command, dbPathOverride string) error {
	output := cmd.OutOrStdout()

	dbPath, err := historyDBPath(dbPathOverride)
	if err != nil {
		return err
	}

	// Check if database exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No history database found at: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("get statistics: %w", err)
	}

	if stats.Count == 0 {
		fmt.Fprintf(output, "No runs recorded yet.\n")
		return nil
	}

	printHistoryStats(output, stats)
	return nil
}

// printHistoryStats formats and prints the aggregate statistics
func printHistoryStats(w io.Writer, stats *history.Stats) {
	cyan := color.New(color.FgCyan, color.Bold)

	cyan.Fprintf(w, "\n=== Benchmark History Statistics ===\n\n")
	fmt.Fprintf(w, "  Recorded runs: %d\n", stats.Count)
	fmt.Fprintf(w, "  First run: %s\n", stats.First)
	fmt.Fprintf(w, "  Last run: %s\n", stats.Last)

	fmt.Fprintf(w, "  Mean MRR delta: ")
	deltaColor(stats.MeanDelta).Fprintf(w, "%+.4f\n", stats.MeanDelta)
	fmt.Fprintf(w, "  Best MRR delta: ")
	deltaColor(stats.BestDelta).Fprintf(w, "%+.4f\n", stats.BestDelta)
	fmt.Fprintf(w, "  Worst MRR delta: ")
	deltaColor(stats.WorstDelta).Fprintf(w, "%+.4f\n", stats.WorstDelta)

	fmt.Fprintf(w, "  Runs above baseline: %d/%d\n", stats.Improvements, stats.Count)
	fmt.Fprintf(w, "\n")
}

// deltaColor picks green for improvements, red for regressions, and plain
// output for a zero delta.
func deltaColor(delta float64) *color.Color {
	switch {
	case delta > 0:
		return color.New(color.FgGreen)
	case delta < 0:
		return color.New(color.FgRed)
	default:
		return color.New()
	}
}

// newHistoryClearCommand creates the 'rpg-bench history clear' command
func newHistoryClearCommand() *cobra.Command {
	var yes bool
	var dbPath string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		Long: `Delete every recorded benchmark run from the history database.

Examples:
  # Clear all history (requires confirmation)
  rpg-bench history clear

  # Skip the confirmation prompt
  rpg-bench history clear --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryClear(cmd, yes, dbPath)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (for testing)")

	return cmd
}

// runHistoryClear executes the clear command
func runHistoryClear(cmd *cobra.Command, yes bool, dbPathOverride string) error {
	output := cmd.OutOrStdout()

	dbPath, err := historyDBPath(dbPathOverride)
	if err != nil {
		return err
	}

	// Check if database exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No history database found at: %s\n", dbPath)
		return nil
	}

	if !yes {
		fmt.Fprintf(output, "WARNING: This will delete ALL recorded runs from the database.\n")
		if !confirmAction(cmd.InOrStdin(), output) {
			fmt.Fprintf(output, "Operation cancelled.\n")
			return nil
		}
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	deleted, err := store.Clear(context.Background())
	if err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}

	// Report results
	recordText := "record"
	if deleted != 1 {
		recordText = "records"
	}
	fmt.Fprintf(output, "Deleted %d %s.\n", deleted, recordText)

	return nil
}

// confirmAction prompts for confirmation on the given input stream
func confirmAction(in io.Reader, output io.Writer) bool {
	scanner := bufio.NewScanner(in)

	fmt.Fprintf(output, "Continue? [y/N]: ")

	if !scanner.Scan() {
		return false
	}

	response := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return response == "y" || response == "yes"
}
