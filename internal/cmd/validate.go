package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/userFRM/rpg-bench/internal/display"
	"github.com/userFRM/rpg-bench/internal/models"
	"github.com/userFRM/rpg-bench/internal/parser"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <suite-file-or-directory>...",
		Short: "Validate one or more suite files or directories",
		Long: `Parse and validate suite files, checking for:
  - Suite structure (repos, queries, expected files)
  - Exactly one source per repo (local_path or url)
  - Expected files are basenames, not paths
  - Duplicate repo names within and across files

Supports multiple input modes:
  - Single file: rpg-bench validate benchmarks/queries.json
  - Single directory: rpg-bench validate benchmarks/ (filters queries-* and suite-* files)
  - Multiple files: rpg-bench validate queries-core.json suite-extra.yaml
  - Shell globs: rpg-bench validate benchmarks/*/queries-*.json

Exit code: 0 if valid, 1 if issues found`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateSuiteFiles(args, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	return cmd
}

// validateSuiteFiles validates suite paths with a custom output writer (for testing)
func validateSuiteFiles(paths []string, output io.Writer) error {
	// A single file argument is validated directly, so files outside the
	// queries-*/suite-* naming convention still get checked.
	if len(paths) == 1 {
		info, err := os.Stat(paths[0])
		if err != nil {
			return fmt.Errorf("failed to access path: %w", err)
		}
		if !info.IsDir() {
			return validateSingle(paths[0], output)
		}
	}

	files, err := parser.FilterSuiteFiles(paths)
	if err != nil {
		return err
	}
	return validateMerged(files, output)
}

// validateSingle performs validation of one suite file
func validateSingle(path string, output io.Writer) error {
	suite, err := parser.ParseFile(path)
	if err != nil {
		fmt.Fprintf(output, "✗ Failed to parse suite from %s\n", path)
		fmt.Fprintf(output, "  Error: %v\n", err)
		return fmt.Errorf("parse error: %w", err)
	}

	fmt.Fprintf(output, "✓ Validating suite from %s\n", path)
	fmt.Fprintf(output, "✓ Parsed %d repo(s) with %d queries\n", len(suite.Repos), suite.TotalQueries())

	remote := 0
	for i := range suite.Repos {
		if suite.Repos[i].IsRemote() {
			remote++
		}
	}
	fmt.Fprintf(output, "✓ Repo sources valid (%d local, %d remote)\n", len(suite.Repos)-remote, remote)

	fmt.Fprintf(output, "\n✓ Suite is valid!\n")
	return nil
}

// validateMerged validates multiple suite files as one merged suite
func validateMerged(files []string, output io.Writer) error {
	var issues []string

	// Parse all suite files with a progress indicator
	progress := display.NewProgressIndicator(output, len(files))
	fmt.Fprintf(output, "Validating suite files:\n")

	var suites []*models.Suite
	repoCount, queryCount := 0, 0
	for _, f := range files {
		progress.Step(f)

		suite, err := parser.ParseFile(f)
		if err != nil {
			msg := fmt.Sprintf("Failed to parse %s: %v", filepath.Base(f), err)
			issues = append(issues, msg)
			fmt.Fprintf(output, "✗ %s\n", msg)
			continue
		}
		suites = append(suites, suite)
		repoCount += len(suite.Repos)
		queryCount += suite.TotalQueries()
	}

	// Show completion message in green
	fmt.Fprintf(output, "\x1b[32m✓\x1b[0m Parsed %d repo(s) with %d queries from %d suite files\n",
		repoCount, queryCount, len(files))

	// Cross-file check: a repo defined in two files would be prepared and
	// measured twice under one name
	if len(suites) > 1 {
		if _, err := parser.MergeSuites(suites...); err != nil {
			issues = append(issues, err.Error())
			fmt.Fprintf(output, "✗ Duplicate repo across files\n")
		} else {
			fmt.Fprintf(output, "✓ No duplicate repos across files\n")
		}
	}

	// Final validation check
	if len(issues) == 0 {
		fmt.Fprintf(output, "\n✓ Suite is valid!\n")
		return nil
	}

	// Report all validation errors
	fmt.Fprintf(output, "\n✗ Validation failed\n")
	for _, msg := range issues {
		fmt.Fprintf(output, "  ✗ %s\n", msg)
	}
	fmt.Fprintf(output, "\nFound %d validation error(s)!\n", len(issues))

	return fmt.Errorf("validation failed with %d error(s)", len(issues))
}
