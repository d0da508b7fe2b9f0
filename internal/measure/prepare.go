package measure

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/userFRM/rpg-bench/internal/display"
	"github.com/userFRM/rpg-bench/internal/encoder"
	"github.com/userFRM/rpg-bench/internal/logger"
	"github.com/userFRM/rpg-bench/internal/models"
	"github.com/userFRM/rpg-bench/internal/workspace"
)

// PrepareOptions control which prepare steps run.
type PrepareOptions struct {
	ForceRebuild bool
	ForceLift    bool
	NoLift       bool
}

// Preparer materializes working copies and graph artifacts for a suite.
// Per-repo failures degrade that repo (warned, skipped at measure time)
// instead of aborting the run.
type Preparer struct {
	Workspace *workspace.Workspace
	Encoder   Encoder

	// Logger is optional; nil discards diagnostics.
	Logger Logger

	// Out receives the phase's console output. Nil means os.Stdout.
	Out io.Writer

	// Color enables ANSI color on the lift progress bar.
	Color bool
}

var liftBatchRe = regexp.MustCompile(`Lifting batch (\d+)/(\d+)`)

// PrepareAll runs phase 1 over every repo in suite order: ensure the
// working copy, build the graph unless a cached one is reusable, lift
// unless disabled or already lifted. Returns repo name -> working dir for
// every repo whose working copy exists; a repo with a failed build keeps
// its entry and is skipped later by the graph check.
func (p *Preparer) PrepareAll(ctx context.Context, suite *models.Suite, opts PrepareOptions) (map[string]string, error) {
	display.PhaseHeader(p.out(), "Phase 1: PREPARE")

	dirs := make(map[string]string)
	for _, repo := range suite.Repos {
		if err := ctx.Err(); err != nil {
			return dirs, err
		}

		fmt.Fprintf(p.out(), "\n  [%s] (%s)\n", repo.Name, repo.Language)

		dir, err := p.Workspace.EnsureRepo(ctx, repo)
		if err != nil {
			fmt.Fprintf(p.out(), "    %v\n", err)
			p.log().LogWarn(fmt.Sprintf("could not materialize %s: %v", repo.Name, err))
			continue
		}
		dirs[repo.Name] = dir

		if !p.buildRepo(ctx, repo, dir, opts) {
			continue
		}
		p.liftRepo(ctx, repo, dir, opts)
	}

	fmt.Fprintln(p.out())
	return dirs, ctx.Err()
}

// ResolveExisting maps repos to their working dirs without materializing
// anything, for measure-only runs. Repos whose dirs are absent come back
// in missing instead.
func (p *Preparer) ResolveExisting(suite *models.Suite) (dirs map[string]string, missing []string) {
	dirs = make(map[string]string)
	for _, repo := range suite.Repos {
		dir := p.Workspace.RepoDir(repo)
		if p.Workspace.HasRepo(repo) {
			dirs[repo.Name] = dir
		} else {
			missing = append(missing, dir)
		}
	}
	return dirs, missing
}

// buildRepo returns false when the repo has no usable graph afterwards.
func (p *Preparer) buildRepo(ctx context.Context, repo models.Repo, dir string, opts PrepareOptions) bool {
	needsBuild := opts.ForceRebuild || opts.ForceLift || !encoder.GraphExists(dir)
	if !needsBuild {
		total, lifted := encoder.CountLifted(dir)
		status := ""
		if lifted > 0 {
			status = fmt.Sprintf(", %d lifted", lifted)
		}
		fmt.Fprintf(p.out(), "    Graph cached (%d entities%s)\n", total, status)
		return true
	}

	fmt.Fprintf(p.out(), "    Building graph... ")
	outcome, err := p.Encoder.Build(ctx, dir, repo.Language)
	if err != nil {
		fmt.Fprintf(p.out(), "FAILED\n    %v\n", err)
		p.log().LogWarn(fmt.Sprintf("build failed for %s: %v", repo.Name, err))
		return false
	}
	fmt.Fprintf(p.out(), "%d entities in %.1fs\n", outcome.Entities, outcome.Duration.Seconds())
	return true
}

func (p *Preparer) liftRepo(ctx context.Context, repo models.Repo, dir string, opts PrepareOptions) {
	if opts.NoLift {
		fmt.Fprintf(p.out(), "    Lifting: SKIPPED (--no-lift)\n")
		return
	}
	if !opts.ForceLift && encoder.GraphIsLifted(dir) {
		_, lifted := encoder.CountLifted(dir)
		fmt.Fprintf(p.out(), "    Already lifted (%d entities)\n", lifted)
		return
	}

	total, _ := encoder.CountLifted(dir)
	fmt.Fprintf(p.out(), "    Lifting %d entities with Ollama...\n", total)

	outcome, err := p.Encoder.Lift(ctx, dir, p.liftProgress())
	if err != nil {
		fmt.Fprintf(p.out(), "\n    Lifting FAILED: %v\n", err)
		p.log().LogWarn(fmt.Sprintf("lift failed for %s: %v", repo.Name, err))
		return
	}
	fmt.Fprintf(p.out(), "\n    %d entities lifted in %.1fs\n", outcome.Lifted, outcome.Duration.Seconds())
}

// liftProgress turns the encoder's "Lifting batch i/n..." stderr lines
// into an in-place progress bar.
func (p *Preparer) liftProgress() func(line string) {
	var bar *logger.ProgressBar
	return func(line string) {
		m := liftBatchRe.FindStringSubmatch(line)
		if m == nil {
			return
		}
		done, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		if bar == nil {
			if total < 1 {
				return
			}
			bar = logger.NewProgressBar(total, 30, p.Color)
			bar.SetPrefix("    ")
		}
		bar.Update(done)
		fmt.Fprintf(p.out(), "\r%s", bar.Render())
	}
}

func (p *Preparer) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stdout
}

func (p *Preparer) log() Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return nopLog
}
