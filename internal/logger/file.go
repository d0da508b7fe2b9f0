package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileLogger logs benchmark events to files in a log directory. It creates
// a timestamped per-run log file, per-repo transcripts of the encoder
// invocations, and maintains a latest.log symlink pointing to the most
// recent run. It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	reposDir string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger writing under logDir. The directory is
// created if it doesn't exist, a timestamped run log file is opened, and
// the latest.log symlink is updated to point at it.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	reposDir := filepath.Join(logDir, "repos")
	if err := os.MkdirAll(reposDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create repos directory: %w", err)
	}

	// Timestamped filename: run-YYYYMMDD-HHMMSS.log
	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		reposDir: reposDir,
		logLevel: normalizeLogLevel(logLevel),
		mu:       sync.Mutex{},
	}

	logger.writeRunLog("=== rpg-bench Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the current run log file.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

// logWithLevel logs a message at the specified level if filtering allows it.
func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	formatted := fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message)
	fl.writeRunLog(formatted)
}

// LogRepoStart logs the start of a repo measurement at INFO level.
func (fl *FileLogger) LogRepoStart(name string, queryCount int) {
	if !fl.shouldLog("info") {
		return
	}

	queryLabel := "query"
	if queryCount != 1 {
		queryLabel = "queries"
	}
	message := fmt.Sprintf(
		"[%s] Starting %s: %d %s\n",
		time.Now().Format("15:04:05"), name, queryCount, queryLabel,
	)
	fl.writeRunLog(message)
}

// LogRepoComplete logs the completion of a repo measurement at INFO level.
func (fl *FileLogger) LogRepoComplete(name string, duration time.Duration) {
	if !fl.shouldLog("info") {
		return
	}

	message := fmt.Sprintf(
		"[%s] %s complete: duration %.1fs\n",
		time.Now().Format("15:04:05"), name, duration.Seconds(),
	)
	fl.writeRunLog(message)
}

// LogRunSummary logs the end-of-run statistics at INFO level.
func (fl *FileLogger) LogRunSummary(summary RunSummary) {
	if !fl.shouldLog("info") {
		return
	}

	ts := time.Now().Format("15:04:05")

	status := "SUCCESS"
	if summary.Failures > 0 {
		if summary.Repos == 0 {
			status = "FAILED"
		} else {
			status = "PARTIAL"
		}
	}

	message := fmt.Sprintf(
		"\n[%s] === BENCHMARK SUMMARY ===\n"+
			"[%s] Repos measured: %d\n"+
			"[%s] Queries:        %d\n"+
			"[%s] Lifted passes:  %d\n"+
			"[%s] Failures:       %d\n"+
			"[%s] Total time:     %.1fs\n"+
			"[%s] Status:         %s\n"+
			"[%s] Completed at:   %s\n",
		ts,
		ts, summary.Repos,
		ts, summary.Queries,
		ts, summary.Lifted,
		ts, summary.Failures,
		ts, summary.Duration.Seconds(),
		ts, status,
		ts, time.Now().Format(time.RFC3339),
	)
	fl.writeRunLog(message)
}

// LogRepoTranscript writes the full encoder transcript for one repo to a
// dedicated file in the repos/ subdirectory. The transcript holds the
// build and lift output plus the per-query search results, so a surprising
// rank can be traced without rerunning the repo.
func (fl *FileLogger) LogRepoTranscript(name string, transcript string) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	safeName := strings.ReplaceAll(name, "/", "-")
	path := filepath.Join(fl.reposDir, fmt.Sprintf("%s.log", safeName))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create repo log file: %w", err)
	}
	defer file.Close()

	content := fmt.Sprintf("=== Repo %s ===\n\n", name)
	content += transcript
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += fmt.Sprintf("\nCompleted at: %s\n", time.Now().Format(time.RFC3339))

	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("failed to write repo log: %w", err)
	}
	return nil
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		// Flush after each write so tail -f tracks the run live.
		fl.runLog.Sync()
	}
}
