// Package logger provides logging implementations for benchmark runs.
//
// Loggers are thread-safe and support level filtering. ConsoleLogger writes
// timestamped lines to a terminal with optional color; FileLogger keeps a
// per-run log plus per-repo transcripts of the encoder invocations.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// RunSummary carries the figures printed at the end of a benchmark run.
type RunSummary struct {
	Repos    int
	Queries  int
	Lifted   int
	Failures int
	Duration time.Duration
}

// ConsoleLogger logs benchmark progress to a writer with timestamps and
// thread safety. All output is prefixed with [HH:MM:SS] timestamps. It
// supports log level filtering, and color output is enabled automatically
// when writing to a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided
// io.Writer. If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive);
// empty or invalid levels default to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		mutex:       sync.Mutex{},
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		// color.NoColor covers both TTY detection and NO_COLOR.
		return !color.NoColor
	}
	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates
// it. Returns "info" for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if validLevels[normalized] {
		return normalized
	}
	return "info"
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
// Format: "[HH:MM:SS] [WARN] <message>"
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
// Format: "[HH:MM:SS] [ERROR] <message>"
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogRepoStart logs the start of a repo measurement at INFO level.
// Format: "[HH:MM:SS] Starting <name>: <count> queries"
func (cl *ConsoleLogger) LogRepoStart(name string, queryCount int) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var message string
	if cl.colorOutput {
		repoName := color.New(color.Bold).Sprint(name)
		message = fmt.Sprintf("[%s] Starting %s: %d queries\n", ts, repoName, queryCount)
	} else {
		message = fmt.Sprintf("[%s] Starting %s: %d queries\n", ts, name, queryCount)
	}

	cl.writer.Write([]byte(message))
}

// LogRepoComplete logs the completion of a repo measurement at INFO level.
// Format: "[HH:MM:SS] <name> complete (<duration>)"
func (cl *ConsoleLogger) LogRepoComplete(name string, duration time.Duration) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	durationStr := formatDuration(duration)

	var message string
	if cl.colorOutput {
		repoName := color.New(color.Bold).Sprint(name)
		completeText := color.New(color.FgGreen).Sprint("complete")
		message = fmt.Sprintf("[%s] %s %s (%s)\n", ts, repoName, completeText, durationStr)
	} else {
		message = fmt.Sprintf("[%s] %s complete (%s)\n", ts, name, durationStr)
	}

	cl.writer.Write([]byte(message))
}

// LogRunSummary logs the end-of-run statistics at INFO level.
func (cl *ConsoleLogger) LogRunSummary(summary RunSummary) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	durationStr := formatDuration(summary.Duration)

	var output string
	if cl.colorOutput {
		header := color.New(color.Bold).Sprint("=== Benchmark Summary ===")
		output = fmt.Sprintf("[%s] %s\n", ts, header)
		output += fmt.Sprintf("[%s] Repos measured: %d\n", ts, summary.Repos)
		output += fmt.Sprintf("[%s] Queries: %d\n", ts, summary.Queries)
		output += fmt.Sprintf("[%s] Lifted passes: %d\n", ts, summary.Lifted)
		if summary.Failures > 0 {
			failedText := color.New(color.FgRed).Sprintf("Failures: %d", summary.Failures)
			output += fmt.Sprintf("[%s] %s\n", ts, failedText)
		} else {
			output += fmt.Sprintf("[%s] Failures: %d\n", ts, summary.Failures)
		}
		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)
	} else {
		output = fmt.Sprintf("[%s] === Benchmark Summary ===\n", ts)
		output += fmt.Sprintf("[%s] Repos measured: %d\n", ts, summary.Repos)
		output += fmt.Sprintf("[%s] Queries: %d\n", ts, summary.Queries)
		output += fmt.Sprintf("[%s] Lifted passes: %d\n", ts, summary.Lifted)
		output += fmt.Sprintf("[%s] Failures: %d\n", ts, summary.Failures)
		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)
	}

	cl.writer.Write([]byte(output))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards all log messages. Useful for testing or when logging
// is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogTrace is a no-op implementation.
func (n *NoOpLogger) LogTrace(message string) {
}

// LogDebug is a no-op implementation.
func (n *NoOpLogger) LogDebug(message string) {
}

// LogInfo is a no-op implementation.
func (n *NoOpLogger) LogInfo(message string) {
}

// LogWarn is a no-op implementation.
func (n *NoOpLogger) LogWarn(message string) {
}

// LogError is a no-op implementation.
func (n *NoOpLogger) LogError(message string) {
}

// LogRepoStart is a no-op implementation.
func (n *NoOpLogger) LogRepoStart(name string, queryCount int) {
}

// LogRepoComplete is a no-op implementation.
func (n *NoOpLogger) LogRepoComplete(name string, duration time.Duration) {
}

// LogRunSummary is a no-op implementation.
func (n *NoOpLogger) LogRunSummary(summary RunSummary) {
}
