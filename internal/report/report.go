// Package report assembles and persists the outcome of a benchmark run:
// run-wide summary metrics for both passes, the optional bootstrap
// confidence interval, and a per-repo breakdown carrying the raw per-query
// rank lists needed to recompute every aggregate from the saved file alone.
package report

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/userFRM/rpg-bench/internal/metrics"
	"github.com/userFRM/rpg-bench/internal/models"
)

// TimestampLayout is the wall-clock format used in reports and history rows.
const TimestampLayout = "2006-01-02T15:04:05"

// Report is the persisted record of one benchmark run.
type Report struct {
	RunID     string      `json:"run_id"`
	Timestamp string      `json:"timestamp"`
	Binary    string      `json:"binary"`
	Summary   Summary     `json:"summary"`
	Repos     []RepoBlock `json:"repos"`
}

// Summary aggregates both passes across every repo. Mean MRR values are
// rounded to four decimals; the CI block is present only when a paired
// corpus existed to estimate from.
type Summary struct {
	Unlifted    Counts       `json:"unlifted"`
	Lifted      Counts       `json:"lifted"`
	UnliftedMRR float64      `json:"unlifted_mrr"`
	LiftedMRR   float64      `json:"lifted_mrr"`
	BootstrapCI *BootstrapCI `json:"mrr_bootstrap_ci,omitempty"`
}

// Counts holds one pass's hit counts in the report's wire shape.
type Counts struct {
	At1   int `json:"@1"`
	At3   int `json:"@3"`
	At5   int `json:"@5"`
	At10  int `json:"@10"`
	Total int `json:"total"`
}

// BootstrapCI is the persisted confidence interval, rounded to four
// decimals.
type BootstrapCI struct {
	Delta   float64 `json:"delta"`
	CILower float64 `json:"ci_lower"`
	CIUpper float64 `json:"ci_upper"`
}

// RepoBlock is the per-repo breakdown. Lifted is null for repos that never
// got a treatment pass.
type RepoBlock struct {
	Name        string     `json:"name"`
	Language    string     `json:"language"`
	Entities    int        `json:"entities"`
	LiftedCount int        `json:"lifted_count"`
	Queries     int        `json:"queries"`
	Unlifted    PassStats  `json:"unlifted"`
	Lifted      *PassStats `json:"lifted"`
	PerQuery    PerQuery   `json:"per_query"`
}

// PassStats carries one repo's counts for one pass plus the reciprocal
// rank sum, which is what cross-repo MRR aggregation adds up.
type PassStats struct {
	At1    int     `json:"@1"`
	At3    int     `json:"@3"`
	At5    int     `json:"@5"`
	At10   int     `json:"@10"`
	Total  int     `json:"total"`
	MRRSum float64 `json:"mrr"`
}

// PerQuery records the raw rank of every query under both passes, in suite
// order. Lifted is empty (not null) when the repo had no treatment pass.
type PerQuery struct {
	Unlifted []QueryRank `json:"unlifted"`
	Lifted   []QueryRank `json:"lifted"`
}

// QueryRank is one query's outcome under one pass.
type QueryRank struct {
	Query string `json:"query"`
	Rank  int    `json:"rank"`
}

// Totals is the run-wide aggregate both the console summary and the
// persisted report are rendered from.
type Totals struct {
	Unlifted metrics.Metrics
	Lifted   metrics.Metrics
	Pairs    []metrics.QueryPair
}

// Total folds per-repo results into run-wide metrics and the paired rank
// corpus. Repos without a treatment pass contribute to the unlifted side
// only and add no pairs, so the two corpus halves always line up.
func Total(results []models.RepoResult) Totals {
	var t Totals
	for i := range results {
		r := &results[i]
		t.Unlifted = t.Unlifted.Add(r.Unlifted)
		if r.Lifted != nil {
			t.Lifted = t.Lifted.Add(*r.Lifted)
		}
		t.Pairs = append(t.Pairs, r.Pairs()...)
	}
	return t
}

// Measured reports whether any repo produced a treatment pass.
func (t Totals) Measured() bool {
	return t.Lifted.Total > 0
}

// Bootstrap estimates the MRR delta interval over the paired corpus. The
// second return is false when there is nothing to estimate, either because
// no repo was measured under both passes or the corpus is empty.
func (t Totals) Bootstrap(iterations int, confidence float64, seed int64) (metrics.BootstrapResult, bool, error) {
	if !t.Measured() || len(t.Pairs) == 0 {
		return metrics.BootstrapResult{}, false, nil
	}
	baseline := make([]int, len(t.Pairs))
	treatment := make([]int, len(t.Pairs))
	for i, p := range t.Pairs {
		baseline[i] = p.Baseline
		treatment[i] = p.Treatment
	}
	result, err := metrics.BootstrapDelta(baseline, treatment, iterations, confidence, seed)
	if err != nil {
		return metrics.BootstrapResult{}, false, err
	}
	return result, true, nil
}

// Assemble builds the persisted report from per-repo results. ci may be
// nil when no interval was computed; the summary then omits the CI block.
func Assemble(binary string, results []models.RepoResult, ci *metrics.BootstrapResult) *Report {
	t := Total(results)
	rep := &Report{
		RunID:     uuid.New().String(),
		Timestamp: time.Now().Format(TimestampLayout),
		Binary:    binary,
		Summary: Summary{
			Unlifted:    countsOf(t.Unlifted),
			Lifted:      countsOf(t.Lifted),
			UnliftedMRR: round4(t.Unlifted.MeanMRR()),
			LiftedMRR:   round4(t.Lifted.MeanMRR()),
		},
		Repos: make([]RepoBlock, 0, len(results)),
	}
	if ci != nil {
		rep.Summary.BootstrapCI = &BootstrapCI{
			Delta:   round4(ci.Delta),
			CILower: round4(ci.Lower),
			CIUpper: round4(ci.Upper),
		}
	}
	for i := range results {
		rep.Repos = append(rep.Repos, repoBlock(&results[i]))
	}
	return rep
}

func repoBlock(r *models.RepoResult) RepoBlock {
	b := RepoBlock{
		Name:        r.Name,
		Language:    r.Language,
		Entities:    r.Entities,
		LiftedCount: r.LiftedCount,
		Queries:     r.Queries,
		Unlifted:    passStats(r.Unlifted),
		PerQuery: PerQuery{
			Unlifted: queryRanks(r.UnliftedObs),
			Lifted:   queryRanks(r.LiftedObs),
		},
	}
	if r.Lifted != nil {
		s := passStats(*r.Lifted)
		b.Lifted = &s
	}
	return b
}

func passStats(m metrics.Metrics) PassStats {
	return PassStats{At1: m.At1, At3: m.At3, At5: m.At5, At10: m.At10, Total: m.Total, MRRSum: m.MRRSum}
}

func countsOf(m metrics.Metrics) Counts {
	return Counts{At1: m.At1, At3: m.At3, At5: m.At5, At10: m.At10, Total: m.Total}
}

func queryRanks(obs []models.RankObservation) []QueryRank {
	ranks := make([]QueryRank, 0, len(obs))
	for _, o := range obs {
		ranks = append(ranks, QueryRank{Query: o.Query, Rank: o.Rank})
	}
	return ranks
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
