package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/userFRM/rpg-bench/internal/metrics"
	"github.com/userFRM/rpg-bench/internal/models"
)

const bannerWidth = 78

// Banner prints a title between two full-width '=' rules.
func Banner(w io.Writer, title string) {
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(w, "%s\n%s\n%s\n", rule, title, rule)
}

// PhaseHeader prints a phase title over a full-width light rule.
func PhaseHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("─", bannerWidth))
}

// RunHeader prints the run banner with the resolved binary and suite sizes.
// liftingNote describes how the treatment pass will be produced.
func RunHeader(w io.Writer, binary string, repos, queries int, liftingNote string) {
	Banner(w, "RPG-Encoder Search Quality Benchmark")
	fmt.Fprintf(w, "  Binary:  %s\n", binary)
	fmt.Fprintf(w, "  Repos:   %d\n", repos)
	fmt.Fprintf(w, "  Queries: %d\n", queries)
	fmt.Fprintf(w, "  Lifting: %s\n", liftingNote)
	fmt.Fprintln(w)
}

// QueryTable prints the per-query rank table for one repo. The lifted
// columns appear only when the repo has a treatment pass.
func QueryTable(w io.Writer, result models.RepoResult) {
	fmt.Fprintln(w)
	if result.Measured() {
		fmt.Fprintf(w, "    %-40s %8s %8s %7s  Expected\n", "Query", "Unlifted", "Lifted", "Delta")
		fmt.Fprintf(w, "    %s %s %s %s  %s\n",
			strings.Repeat("─", 40), strings.Repeat("─", 8), strings.Repeat("─", 8),
			strings.Repeat("─", 7), strings.Repeat("─", 25))
	} else {
		fmt.Fprintf(w, "    %-40s %8s  Expected\n", "Query", "Unlifted")
		fmt.Fprintf(w, "    %s %s  %s\n",
			strings.Repeat("─", 40), strings.Repeat("─", 8), strings.Repeat("─", 25))
	}

	for i, obs := range result.UnliftedObs {
		expect := obs.Expect
		if len(expect) > 2 {
			expect = expect[:2]
		}
		expStr := strings.Join(expect, ", ")
		uStr := metrics.RankLabel(obs.Rank)

		if result.Measured() && i < len(result.LiftedObs) {
			lifted := result.LiftedObs[i]
			lStr := metrics.RankLabel(lifted.Rank)
			dStr := metrics.Classify(obs.Rank, lifted.Rank).Label()
			fmt.Fprintf(w, "    %-40s %8s %8s %7s  %s\n", obs.Query, uStr, lStr, dStr, expStr)
		} else {
			fmt.Fprintf(w, "    %-40s %8s  %s\n", obs.Query, uStr, expStr)
		}
	}
}

// MetricsTable prints a repo's accuracy and MRR block.
func MetricsTable(w io.Writer, unlifted metrics.Metrics, lifted *metrics.Metrics) {
	metricsBlock(w, unlifted, lifted, "    ", 12)
}

// SummaryTable prints the run-level accuracy and MRR block, which uses a
// wider layout than the per-repo table.
func SummaryTable(w io.Writer, unlifted metrics.Metrics, lifted *metrics.Metrics) {
	metricsBlock(w, unlifted, lifted, "  ", 14)
}

func metricsBlock(w io.Writer, unlifted metrics.Metrics, lifted *metrics.Metrics, indent string, width int) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%-8s %*s", indent, "Metric", width, "Unlifted")
	if lifted != nil {
		fmt.Fprintf(w, " %*s %8s", width, "Lifted", "Delta")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s %s", indent, strings.Repeat("─", 8), strings.Repeat("─", width))
	if lifted != nil {
		fmt.Fprintf(w, " %s %s", strings.Repeat("─", width), strings.Repeat("─", 8))
	}
	fmt.Fprintln(w)

	for _, k := range []int{1, 3, 5, 10} {
		uPct := unlifted.AccuracyAt(k)
		uCell := fmt.Sprintf("%d/%d (%.0f%%)", unlifted.HitsAt(k), unlifted.Total, uPct)
		fmt.Fprintf(w, "%sAcc%-5s %*s", indent, fmt.Sprintf("@%d", k), width, uCell)
		if lifted != nil {
			lPct := lifted.AccuracyAt(k)
			lCell := fmt.Sprintf("%d/%d (%.0f%%)", lifted.HitsAt(k), lifted.Total, lPct)
			fmt.Fprintf(w, " %*s %8s", width, lCell, fmt.Sprintf("%+.0f%%", lPct-uPct))
		}
		fmt.Fprintln(w)
	}

	uMRR := unlifted.MeanMRR()
	fmt.Fprintf(w, "%s%-8s %*.3f", indent, "MRR", width, uMRR)
	if lifted != nil {
		lMRR := lifted.MeanMRR()
		fmt.Fprintf(w, " %*.3f %+8.3f", width, lMRR, lMRR-uMRR)
	}
	fmt.Fprintln(w)
}

// CILine prints the observed MRR delta with its bootstrap interval.
func CILine(w io.Writer, result metrics.BootstrapResult, confidence float64) {
	fmt.Fprintf(w, "\n  MRR delta: %+.3f (%.0f%% CI [%+.3f, %+.3f])\n",
		result.Delta, confidence*100, result.Lower, result.Upper)
}

// Changes prints the improvement and regression lists. Empty lists print
// nothing.
func Changes(w io.Writer, improvements, regressions []metrics.ChangeRecord) {
	if len(improvements) > 0 {
		fmt.Fprintf(w, "\n  Notable improvements (%d):\n", len(improvements))
		for _, c := range improvements {
			fmt.Fprintf(w, "    %-45s %6s -> %s\n", c.Query, c.From, c.To)
		}
	}
	if len(regressions) > 0 {
		fmt.Fprintf(w, "\n  Regressions (%d):\n", len(regressions))
		for _, c := range regressions {
			fmt.Fprintf(w, "    %-45s %6s -> %s\n", c.Query, c.From, c.To)
		}
	}
}
