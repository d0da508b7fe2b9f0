package measure

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/userFRM/rpg-bench/internal/display"
	"github.com/userFRM/rpg-bench/internal/encoder"
	"github.com/userFRM/rpg-bench/internal/metrics"
	"github.com/userFRM/rpg-bench/internal/models"
)

// DefaultTopK is how many leading hit paths each observation keeps.
const DefaultTopK = 5

// Runner executes phase 2: both measurement passes over every prepared
// repo, rendering per-repo tables as it goes.
type Runner struct {
	Encoder Encoder

	// Logger is optional; nil discards diagnostics.
	Logger Logger

	// Transcripts, when set, receives a per-repo observation log.
	Transcripts TranscriptLogger

	// Out receives the phase's console output. Nil means os.Stdout.
	Out io.Writer

	// Workers bounds concurrent searches within a pass. Zero or one keeps
	// the original serial timing behavior.
	Workers int

	// TopK overrides DefaultTopK when positive.
	TopK int
}

// MeasureAll measures every repo in suite order. Repos without a graph
// artifact are announced and skipped; a measured repo always contributes a
// result even if every query missed. The error return is reserved for
// context cancellation.
func (r *Runner) MeasureAll(ctx context.Context, suite *models.Suite, repoDirs map[string]string) ([]models.RepoResult, error) {
	display.PhaseHeader(r.out(), "Phase 2: MEASURE")

	var results []models.RepoResult
	for _, repo := range suite.Repos {
		dir, ok := repoDirs[repo.Name]
		if !ok || !encoder.GraphExists(dir) {
			fmt.Fprintf(r.out(), "\n  [%s] SKIP — no graph\n", repo.Name)
			r.log().LogWarn(fmt.Sprintf("skipping %s: no graph artifact", repo.Name))
			continue
		}

		entities, lifted := encoder.CountLifted(dir)
		fmt.Fprintf(r.out(), "\n  [%s] %d entities, %d lifted\n", repo.Name, entities, lifted)

		r.log().LogRepoStart(repo.Name, len(repo.Queries))
		start := time.Now()
		res, err := r.measureRepo(ctx, repo, dir, entities, lifted)
		if err != nil {
			return results, err
		}

		display.QueryTable(r.out(), res)
		display.MetricsTable(r.out(), res.Unlifted, res.Lifted)
		r.log().LogRepoComplete(repo.Name, time.Since(start))

		if r.Transcripts != nil {
			if terr := r.Transcripts.LogRepoTranscript(repo.Name, transcript(res)); terr != nil {
				r.log().LogDebug(fmt.Sprintf("could not write transcript for %s: %v", repo.Name, terr))
			}
		}

		results = append(results, res)
	}
	return results, nil
}

// measureRepo runs the baseline pass, and the treatment pass when the
// graph carries lifted entities.
func (r *Runner) measureRepo(ctx context.Context, repo models.Repo, dir string, entities, lifted int) (models.RepoResult, error) {
	res := models.RepoResult{
		Name:        repo.Name,
		Language:    repo.Language,
		Entities:    entities,
		LiftedCount: lifted,
		Queries:     len(repo.Queries),
	}

	unliftedObs, err := r.runPass(ctx, repo, dir, encoder.ModeSnippets)
	if err != nil {
		return res, err
	}
	res.UnliftedObs = unliftedObs
	res.Unlifted = metrics.Compute(ranksOf(unliftedObs))

	if lifted > 0 {
		liftedObs, err := r.runPass(ctx, repo, dir, encoder.ModeAuto)
		if err != nil {
			return res, err
		}
		res.LiftedObs = liftedObs
		m := metrics.Compute(ranksOf(liftedObs))
		res.Lifted = &m
	}
	return res, nil
}

// runPass searches every query in one mode. Observations land in a slice
// slot per suite position, so pairing between passes is positional no
// matter how the workers are scheduled. A failed or timed-out query scores
// as a miss; only cancellation stops the pass.
func (r *Runner) runPass(ctx context.Context, repo models.Repo, dir, mode string) ([]models.RankObservation, error) {
	obs := make([]models.RankObservation, len(repo.Queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, q := range repo.Queries {
		i, q := i, q // per-iteration copies: this module's language version predates Go 1.22 loop scoping
		g.Go(func() error {
			res, err := r.Encoder.Search(gctx, dir, q.Query, mode)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.log().LogWarn(fmt.Sprintf("search failed for %q in %s: %v", q.Query, repo.Name, err))
				obs[i] = models.RankObservation{Query: q.Query, Expect: q.Expect}
				return nil
			}
			if res.TimedOut {
				r.log().LogWarn(fmt.Sprintf("search timed out for %q in %s (%s mode)", q.Query, repo.Name, mode))
			} else if res.ExitCode != 0 {
				r.log().LogDebug(fmt.Sprintf("search exited %d for %q in %s", res.ExitCode, q.Query, repo.Name))
			}

			files := encoder.HitFiles(res.Hits)
			top := files
			if len(top) > r.topK() {
				top = top[:r.topK()]
			}
			obs[i] = models.RankObservation{
				Query:  q.Query,
				Expect: q.Expect,
				Rank:   metrics.FindRank(files, q.Expect),
				TopK:   top,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return obs, nil
}

func ranksOf(obs []models.RankObservation) []int {
	ranks := make([]int, len(obs))
	for i, o := range obs {
		ranks[i] = o.Rank
	}
	return ranks
}

// transcript renders one repo's observations for the per-repo log file.
func transcript(res models.RepoResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "entities: %d, lifted: %d\n", res.Entities, res.LiftedCount)

	writePass := func(label string, obs []models.RankObservation) {
		fmt.Fprintf(&b, "%s pass:\n", label)
		for _, o := range obs {
			fmt.Fprintf(&b, "  %-4s %s\n", metrics.RankLabel(o.Rank), o.Query)
			for _, f := range o.TopK {
				fmt.Fprintf(&b, "         %s\n", f)
			}
		}
	}
	writePass("unlifted", res.UnliftedObs)
	if res.Measured() {
		writePass("lifted", res.LiftedObs)
	}
	return b.String()
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return 1
}

func (r *Runner) topK() int {
	if r.TopK > 0 {
		return r.TopK
	}
	return DefaultTopK
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

func (r *Runner) log() Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return nopLog
}
