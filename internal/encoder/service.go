package encoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Search modes understood by the encoder. The baseline pass pins snippet
// matching; the treatment pass lets the encoder use semantic features where
// the graph carries them.
const (
	ModeSnippets = "snippets"
	ModeAuto     = "auto"
)

// buildExcludes keeps test and fixture code out of the graph so queries land
// on implementation files.
var buildExcludes = []string{"*test*", "*bench*", "*example*", "*fuzz*"}

// Service runs the encoder's build, lift, and search operations against
// prepared repo directories with per-operation timeouts.
type Service struct {
	inv *Invoker

	BuildTimeout  time.Duration
	LiftTimeout   time.Duration
	SearchTimeout time.Duration
}

// NewService wraps a resolved binary path with operation timeouts.
func NewService(binary string, buildTimeout, liftTimeout, searchTimeout time.Duration) *Service {
	return &Service{
		inv:           NewInvoker(binary),
		BuildTimeout:  buildTimeout,
		LiftTimeout:   liftTimeout,
		SearchTimeout: searchTimeout,
	}
}

// BinaryPath returns the path of the wrapped binary, for reports and logs.
func (s *Service) BinaryPath() string {
	return s.inv.Path
}

// BuildOutcome is one finished graph build.
type BuildOutcome struct {
	Entities int
	Duration time.Duration
}

// Build rebuilds the structural graph for a repo. Any existing graph is
// removed first so a failed build cannot leave a stale artifact behind.
// The entity count is scraped from the encoder's build summary on stderr.
func (s *Service) Build(ctx context.Context, dir, language string) (BuildOutcome, error) {
	if err := os.RemoveAll(filepath.Join(dir, GraphDir)); err != nil {
		return BuildOutcome{}, fmt.Errorf("clearing old graph: %w", err)
	}

	args := []string{"build", "--lang", language, "-p", dir}
	for _, pattern := range buildExcludes {
		args = append(args, "--exclude", pattern)
	}

	res, err := s.inv.Run(ctx, RunOptions{Args: args, Timeout: s.BuildTimeout})
	if err != nil {
		return BuildOutcome{}, err
	}
	if res.TimedOut {
		return BuildOutcome{}, fmt.Errorf("build timed out after %s", s.BuildTimeout)
	}
	if res.ExitCode != 0 {
		return BuildOutcome{}, fmt.Errorf("build failed (rc=%d): %s", res.ExitCode, truncate(res.Stderr, 200))
	}
	return BuildOutcome{Entities: ParseEntityCount(res.Stderr), Duration: res.Duration}, nil
}

// LiftOutcome is one finished lift run.
type LiftOutcome struct {
	Lifted   int
	Duration time.Duration
}

// Lift runs semantic lifting over every entity in the repo's graph. The
// encoder reports batch progress on stderr; those lines are forwarded to
// progress as they arrive (nil discards them), other stderr noise is
// suppressed. Lifting talks to an LLM, so the timeout is generous.
func (s *Service) Lift(ctx context.Context, dir string, progress func(line string)) (LiftOutcome, error) {
	stream := func(line string) {
		line = strings.TrimSpace(line)
		if progress != nil && strings.HasPrefix(line, "Lifting batch") {
			progress(line)
		}
	}

	res, err := s.inv.Run(ctx, RunOptions{
		Args:         []string{"lift", "all", "-p", dir},
		Timeout:      s.LiftTimeout,
		StreamStderr: stream,
	})
	if err != nil {
		return LiftOutcome{}, err
	}
	if res.TimedOut {
		return LiftOutcome{}, fmt.Errorf("lift timed out after %s", s.LiftTimeout)
	}
	if res.ExitCode != 0 {
		return LiftOutcome{}, fmt.Errorf("lift failed (rc=%d): %s", res.ExitCode, truncate(res.Stderr, 200))
	}
	return LiftOutcome{Lifted: ParseLiftedCount(res.Stderr), Duration: res.Duration}, nil
}

// SearchOutcome is one query's search run. A timeout or non-zero exit
// leaves Hits empty; the caller scores that as a miss.
type SearchOutcome struct {
	Hits     []Hit
	TimedOut bool
	ExitCode int
	Duration time.Duration
}

// Search runs one query against a repo's graph. Per-query failures are part
// of the outcome, never a Go error: an unanswerable query degrades to a
// miss instead of failing the run.
func (s *Service) Search(ctx context.Context, dir, query, mode string) (SearchOutcome, error) {
	res, err := s.inv.Run(ctx, RunOptions{
		Args:    []string{"search", query, "--mode", mode, "-p", dir},
		Timeout: s.SearchTimeout,
	})
	if err != nil {
		return SearchOutcome{}, err
	}
	out := SearchOutcome{
		TimedOut: res.TimedOut,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
	}
	if !res.TimedOut {
		out.Hits = ParseSearchResults(res.Stdout)
	}
	return out, nil
}

var (
	entityCountRe = regexp.MustCompile(`Entities:\s*(\d+)`)
	liftedCountRe = regexp.MustCompile(`Entities lifted:\s*(\d+)`)
)

// ParseEntityCount extracts the entity total from build stderr. The build
// summary also prints a "Lifted: n/m" tally; lines carrying it are skipped
// so the two counters cannot be confused.
func ParseEntityCount(stderr string) int {
	for _, line := range strings.Split(stderr, "\n") {
		if !strings.Contains(line, "Entities:") || strings.Contains(line, "Lifted:") {
			continue
		}
		if m := entityCountRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}

// ParseLiftedCount extracts the final lifted-entity count from lift stderr.
func ParseLiftedCount(stderr string) int {
	for _, line := range strings.Split(stderr, "\n") {
		if !strings.Contains(line, "Entities lifted:") {
			continue
		}
		if m := liftedCountRe.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
