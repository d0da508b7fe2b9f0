// Package display provides terminal output formatting for the benchmark CLI.
//
// This package centralizes the user-facing rendering: progress while suite
// files load, warning blocks, and the result tables printed after a run.
// It provides three main categories of functionality:
//
// # Progress Indicators
//
// Use ProgressIndicator for multi-file suite loading:
//
//	progress := display.NewProgressIndicator(os.Stdout, len(files))
//	progress.Start()
//	for _, file := range files {
//	    progress.Step(file)
//	    // ... parse file ...
//	}
//	progress.Complete()
//
// For single file operations:
//
//	display.DisplaySingleFile(os.Stdout, filename)
//
// # Warning Messages
//
// Display warnings with optional components:
//
//	warning := display.Warning{
//	    Title:      "Repo directory missing",
//	    Files:      []string{"/tmp/rpg-bench/tokio"},
//	    Suggestion: "Run without --measure-only to prepare repos first",
//	}
//	warning.Display(os.Stderr)
//
// # Result Tables
//
// The table functions render benchmark output onto an io.Writer: RunHeader
// and PhaseHeader frame the run, QueryTable and MetricsTable report one repo,
// SummaryTable, CILine and Changes close out the cross-repo summary.
//
// # ANSI Colors
//
// The package uses ANSI escape codes for terminal colors:
//   - Cyan (\x1b[36m) for progress steps
//   - Green (\x1b[32m) for success messages
//   - Yellow (\x1b[33m) for warnings
//   - Reset (\x1b[0m) after each colored section
//
// All functions accept io.Writer interfaces for testability and flexibility.
package display
