package encoder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Binary is the name of the encoder executable.
const Binary = "rpg-encoder"

// Invoker executes encoder commands. Path must point at an existing binary;
// use FindBinary to resolve one.
type Invoker struct {
	Path string
}

// RunOptions controls a single invocation.
type RunOptions struct {
	Args         []string          // Full argument list including the subcommand
	Timeout      time.Duration     // Kill the process after this long; 0 means no limit
	StreamStderr func(line string) // Called per stderr line while the command runs
}

// RunResult captures one finished invocation. A timeout or non-zero exit is
// reported in the result, not as a Go error; errors are reserved for
// failures to run the binary at all.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// NewInvoker creates an Invoker for the given binary path.
func NewInvoker(path string) *Invoker {
	return &Invoker{Path: path}
}

// Run executes one encoder command and waits for it to finish.
func (inv *Invoker) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	start := time.Now()

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, inv.Path, opts.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout

	var waitErr error
	if opts.StreamStderr != nil {
		pipe, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("attaching stderr pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("starting %s: %w", inv.Path, err)
		}
		scanner := bufio.NewScanner(pipe)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			stderr.WriteString(line)
			stderr.WriteByte('\n')
			opts.StreamStderr(line)
		}
		waitErr = cmd.Wait()
	} else {
		cmd.Stderr = &stderr
		waitErr = cmd.Run()
	}

	result := &RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch runCtx.Err() {
	case context.DeadlineExceeded:
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	case context.Canceled:
		return nil, runCtx.Err()
	}

	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("running %s: %w", inv.Path, waitErr)
	}
	return result, nil
}

// FindBinary locates the encoder binary. An explicitly configured path must
// exist; otherwise the usual cargo build outputs are probed before falling
// back to $PATH. The returned error names every candidate so the fix is
// obvious from the message.
func FindBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary %s: %w", configured, err)
		}
		return configured, nil
	}

	candidates := []string{
		filepath.Join("target", "release", Binary),
		filepath.Join("target", "debug", Binary),
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	if path, err := exec.LookPath(Binary); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%s binary not found (tried %s, %s, $PATH); build it with cargo or pass --binary", Binary, candidates[0], candidates[1])
}
