package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/userFRM/rpg-bench/internal/config"
	"github.com/userFRM/rpg-bench/internal/display"
	"github.com/userFRM/rpg-bench/internal/encoder"
	"github.com/userFRM/rpg-bench/internal/history"
	"github.com/userFRM/rpg-bench/internal/logger"
	"github.com/userFRM/rpg-bench/internal/measure"
	"github.com/userFRM/rpg-bench/internal/metrics"
	"github.com/userFRM/rpg-bench/internal/models"
	"github.com/userFRM/rpg-bench/internal/parser"
	"github.com/userFRM/rpg-bench/internal/report"
	"github.com/userFRM/rpg-bench/internal/workspace"
)

// ErrCIFailed marks a --ci run whose lifted MRR fell below the unlifted
// baseline. The gate verdict is already printed when this is returned, so
// main suppresses the usual error banner and only sets the exit code.
var ErrCIFailed = errors.New("ci gate failed")

// DefaultSuitePath is the suite loaded when run is given no arguments.
const DefaultSuitePath = "benchmarks/queries.json"

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [suite-file-or-directory]...",
		Short: "Run the search quality benchmark",
		Long: `Run the search quality benchmark against the rpg-encoder binary.

The run command loads the specified suite file(s) or directory (JSON, YAML,
or Markdown format), prepares a working copy of every repo in the bench
directory (building and lifting its graph), then measures each query in
both search modes and reports Acc@k, MRR, and the bootstrap confidence
interval for the MRR delta.

For directories, only files matching queries-* or suite-* are loaded and
merged into a single suite. With no arguments, benchmarks/queries.json
is used.

Configuration is loaded from .rpg-bench.yaml if present.
CLI flags override configuration file settings.

Examples:
  # Default suite
  rpg-bench run

  # Single suite file
  rpg-bench run benchmarks/queries.json

  # Directory of suite files (loads queries-*.json, suite-*.yaml, ...)
  rpg-bench run benchmarks/

  # Re-measure prepared repos without rebuilding anything
  rpg-bench run --measure-only benchmarks/queries.json

  # Baseline only, no lifting
  rpg-bench run --no-lift benchmarks/queries.json

  # Gate a pipeline on the lifted pass not regressing
  rpg-bench run --ci benchmarks/queries.json

  # Other options
  rpg-bench run --force-lift benchmarks/queries.json   # Rebuild and re-lift
  rpg-bench run --workers 4 benchmarks/queries.json    # Parallel searches
  rpg-bench run --out /tmp/results.json benchmarks/queries.json
  rpg-bench run --config custom.yaml benchmarks/queries.json`,
		Args: cobra.ArbitraryArgs,
		RunE: runCommand,
	}

	// Add flags
	cmd.Flags().String("config", "", "Path to config file (default: .rpg-bench.yaml)")
	cmd.Flags().String("binary", "", "Path to the rpg-encoder binary (default: auto-discover)")
	cmd.Flags().String("bench-dir", "", "Workspace directory for repo working copies")
	cmd.Flags().String("out", report.DefaultOutput, "Report path (relative paths resolve next to the first suite file)")
	cmd.Flags().Bool("measure-only", false, "Skip the prepare phase and measure existing graphs")
	cmd.Flags().Bool("force-rebuild", false, "Rebuild graphs even when cached ones exist")
	cmd.Flags().Bool("force-lift", false, "Rebuild and re-lift graphs even when lifted ones exist")
	cmd.Flags().Bool("no-lift", false, "Skip lifting and measure the baseline only")
	cmd.Flags().Bool("ci", false, "Exit nonzero when lifted MRR falls below unlifted")
	cmd.Flags().Int("workers", 1, "Concurrent searches within a measurement pass")
	cmd.Flags().Duration("timeout", 5*time.Minute, "Per-query search timeout")
	cmd.Flags().Int("iterations", 1000, "Bootstrap resamples for the MRR delta interval")
	cmd.Flags().Int64("seed", 42, "Bootstrap RNG seed")
	cmd.Flags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	cmd.Flags().String("log-dir", "", "Directory for run log files and transcripts")
	cmd.Flags().Bool("no-history", false, "Skip recording this run in the history database")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	start := time.Now()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	// Load configuration from file
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	// Build flag pointers for merge (only explicitly set values)
	var overrides config.FlagOverrides
	if cmd.Flags().Changed("binary") {
		v, _ := cmd.Flags().GetString("binary")
		overrides.Binary = &v
	}
	if cmd.Flags().Changed("bench-dir") {
		v, _ := cmd.Flags().GetString("bench-dir")
		overrides.BenchDir = &v
	}
	if cmd.Flags().Changed("out") {
		v, _ := cmd.Flags().GetString("out")
		overrides.Output = &v
	}
	if cmd.Flags().Changed("workers") {
		v, _ := cmd.Flags().GetInt("workers")
		overrides.Workers = &v
	}
	if cmd.Flags().Changed("timeout") {
		v, _ := cmd.Flags().GetDuration("timeout")
		overrides.SearchTimeout = &v
	}
	if cmd.Flags().Changed("iterations") {
		v, _ := cmd.Flags().GetInt("iterations")
		overrides.Iterations = &v
	}
	if cmd.Flags().Changed("seed") {
		v, _ := cmd.Flags().GetInt64("seed")
		overrides.Seed = &v
	}
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		overrides.LogLevel = &v
	}
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		overrides.LogDir = &v
	}
	if cmd.Flags().Changed("no-history") {
		v, _ := cmd.Flags().GetBool("no-history")
		overrides.NoHistory = &v
	}

	// Merge CLI flags with config (flags take precedence)
	cfg.MergeWithFlags(overrides)

	// Validate merged configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	measureOnly, _ := cmd.Flags().GetBool("measure-only")
	forceRebuild, _ := cmd.Flags().GetBool("force-rebuild")
	forceLift, _ := cmd.Flags().GetBool("force-lift")
	noLift, _ := cmd.Flags().GetBool("no-lift")
	ciMode, _ := cmd.Flags().GetBool("ci")

	// Validate conflicting flags
	if forceLift && noLift {
		return fmt.Errorf("cannot use both --force-lift and --no-lift")
	}

	// Resolve the encoder binary before doing anything slow
	binary, err := encoder.FindBinary(cfg.Binary)
	if err != nil {
		return err
	}

	// Load and parse suite file(s)
	if len(args) == 0 {
		args = []string{DefaultSuitePath}
	}
	suite, err := loadSuite(out, args)
	if err != nil {
		return err
	}

	display.RunHeader(out, binary, len(suite.Repos), suite.TotalQueries(),
		liftingNote(measureOnly, noLift))

	// Diagnostics go to stderr so the run output stays parseable. The
	// console stays at warn unless a level was asked for explicitly.
	consoleLevel := "warn"
	if cmd.Flags().Changed("log-level") {
		consoleLevel = cfg.LogLevel
	}
	consoleLog := logger.NewConsoleLogger(errOut, consoleLevel)

	// Create file logger for detailed logs and per-repo transcripts
	var fileLog *logger.FileLogger
	if cfg.LogDir != "" {
		fileLog, err = logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
	}

	// Create multi-logger that writes to both console and file
	runLog := &multiLogger{loggers: []runLogger{consoleLog}}
	if fileLog != nil {
		runLog.loggers = append(runLog.loggers, fileLog)
	}

	// Open the bench workspace
	benchDir, err := config.EnsureBenchDir(cfg.BenchDir)
	if err != nil {
		return err
	}
	ws, err := workspace.Open(benchDir)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.CloneTimeout = cfg.CloneTimeout
	ws.Out = out

	svc := encoder.NewService(binary, cfg.BuildTimeout, cfg.LiftTimeout, cfg.SearchTimeout)
	ctx := context.Background()

	// Phase 1: prepare working copies and graphs, or resolve cached ones
	prep := &measure.Preparer{
		Workspace: ws,
		Encoder:   svc,
		Logger:    runLog,
		Out:       out,
		Color:     terminalColor(out),
	}

	var repoDirs map[string]string
	if measureOnly {
		dirs, missing := prep.ResolveExisting(suite)
		if len(missing) > 0 {
			display.WarnMissingRepoDirs(missing).Display(errOut)
		}
		repoDirs = dirs
	} else {
		repoDirs, err = prep.PrepareAll(ctx, suite, measure.PrepareOptions{
			ForceRebuild: forceRebuild,
			ForceLift:    forceLift,
			NoLift:       noLift,
		})
		if err != nil {
			return err
		}
	}

	// Phase 2: measure both passes over every prepared repo
	runner := &measure.Runner{
		Encoder: svc,
		Logger:  runLog,
		Out:     out,
		Workers: cfg.Workers,
	}
	if fileLog != nil {
		runner.Transcripts = fileLog
	}
	results, err := runner.MeasureAll(ctx, suite, repoDirs)
	if err != nil {
		return err
	}

	// Cross-repo summary
	totals := report.Total(results)

	fmt.Fprintln(out)
	display.Banner(out, "SUMMARY")
	var lifted *metrics.Metrics
	if totals.Measured() {
		lifted = &totals.Lifted
	}
	display.SummaryTable(out, totals.Unlifted, lifted)

	var ciEstimate *metrics.BootstrapResult
	boot, ok, err := totals.Bootstrap(cfg.Bootstrap.Iterations, cfg.Bootstrap.Confidence, cfg.Bootstrap.Seed)
	if err != nil {
		return fmt.Errorf("bootstrap estimate failed: %w", err)
	}
	if ok {
		display.CILine(out, boot, cfg.Bootstrap.Confidence)
		ciEstimate = &boot
	}

	improvements, regressions := metrics.Partition(totals.Pairs)
	display.Changes(out, improvements, regressions)
	fmt.Fprintln(out)

	// Write the report
	outPath := report.ResolvePath(cfg.Output, suite.FilePaths)
	rep := report.Assemble(binary, results, ciEstimate)
	if err := report.Save(out, outPath, rep); err != nil {
		return err
	}

	// Record the run in the history database. Failure to record never
	// fails the run itself.
	if !cfg.NoHistory {
		if err := recordHistory(ctx, cfg, rep, totals, suite, outPath); err != nil {
			fmt.Fprintf(errOut, "Warning: failed to record run history: %v\n", err)
		}
	}

	runLog.LogRunSummary(logger.RunSummary{
		Repos:    len(results),
		Queries:  totals.Unlifted.Total,
		Lifted:   totals.Lifted.Total,
		Failures: suite.TotalQueries() - totals.Unlifted.Total,
		Duration: time.Since(start),
	})

	// CI gate: compare the summary MRR figures the report carries
	if ciMode && totals.Measured() {
		if !report.Gate(out, rep.Summary.UnliftedMRR, rep.Summary.LiftedMRR) {
			return ErrCIFailed
		}
	}

	return nil
}

// loadSuite parses the suite arguments the way the original flow does:
// a single file argument is parsed directly, anything else goes through
// suite-file filtering and a merge.
func loadSuite(out io.Writer, args []string) (*models.Suite, error) {
	if len(args) == 1 {
		// If stat fails, assume it's a file path (ParseFile reports the error)
		info, err := os.Stat(args[0])
		if err != nil || !info.IsDir() {
			return loadSingle(out, args[0])
		}
	}

	files, err := parser.FilterSuiteFiles(args)
	if err != nil {
		return nil, fmt.Errorf("failed to filter suite files: %w", err)
	}
	if len(files) == 1 {
		return loadSingle(out, files[0])
	}

	progress := display.NewProgressIndicator(out, len(files))
	progress.Start()
	suites := make([]*models.Suite, 0, len(files))
	for _, f := range files {
		progress.Step(f)
		s, err := parser.ParseFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f, err)
		}
		suites = append(suites, s)
	}
	progress.Complete()

	suite, err := parser.MergeSuites(suites...)
	if err != nil {
		return nil, fmt.Errorf("failed to merge suite files: %w", err)
	}
	return suite, nil
}

func loadSingle(out io.Writer, path string) (*models.Suite, error) {
	display.DisplaySingleFile(out, path)
	suite, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load suite file: %w", err)
	}
	return suite, nil
}

// liftingNote describes how the treatment pass will be produced for the
// run header. --no-lift wins over --measure-only.
func liftingNote(measureOnly, noLift bool) string {
	switch {
	case noLift:
		return "DISABLED"
	case measureOnly:
		return "using cached"
	default:
		return "via Ollama (auto-detected model)"
	}
}

// terminalColor reports whether out is a terminal that can take ANSI color,
// for the lift progress bar.
func terminalColor(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// recordHistory appends the finished run to the history database.
func recordHistory(ctx context.Context, cfg *config.Config, rep *report.Report, totals report.Totals, suite *models.Suite, reportPath string) error {
	st, err := history.NewStore(cfg.HistoryDBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	run := &history.Run{
		RunID:       rep.RunID,
		Timestamp:   rep.Timestamp,
		Binary:      rep.Binary,
		Suite:       strings.Join(suite.FilePaths, ", "),
		Repos:       len(rep.Repos),
		Queries:     totals.Unlifted.Total,
		UnliftedAt1: totals.Unlifted.At1,
		UnliftedMRR: totals.Unlifted.MeanMRR(),
		ReportPath:  reportPath,
	}
	if totals.Measured() {
		run.LiftedAt1 = totals.Lifted.At1
		run.LiftedMRR = totals.Lifted.MeanMRR()
		run.Delta = run.LiftedMRR - run.UnliftedMRR
	}
	if rep.Summary.BootstrapCI != nil {
		lower, upper := rep.Summary.BootstrapCI.CILower, rep.Summary.BootstrapCI.CIUpper
		run.CILower, run.CIUpper = &lower, &upper
	}
	return st.RecordRun(ctx, run)
}

// runLogger is the logging surface the run command fans out to: phase
// diagnostics plus the end-of-run summary.
type runLogger interface {
	measure.Logger
	LogRunSummary(summary logger.RunSummary)
}

// multiLogger implements runLogger by delegating to multiple loggers
type multiLogger struct {
	loggers []runLogger
}

// LogDebug forwards to all loggers
func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

// LogInfo forwards to all loggers
func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

// LogWarn forwards to all loggers
func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

// LogError forwards to all loggers
func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

// LogRepoStart forwards to all loggers
func (ml *multiLogger) LogRepoStart(name string, queryCount int) {
	for _, l := range ml.loggers {
		l.LogRepoStart(name, queryCount)
	}
}

// LogRepoComplete forwards to all loggers
func (ml *multiLogger) LogRepoComplete(name string, duration time.Duration) {
	for _, l := range ml.loggers {
		l.LogRepoComplete(name, duration)
	}
}

// LogRunSummary forwards to all loggers
func (ml *multiLogger) LogRunSummary(summary logger.RunSummary) {
	for _, l := range ml.loggers {
		l.LogRunSummary(summary)
	}
}
