// Package metrics implements the scoring math for benchmark runs: rank
// extraction from ordered search hits, Acc@k and MRR aggregation, per-query
// delta classification between measurement passes, and a paired percentile
// bootstrap for the MRR delta.
//
// Everything here is pure and deterministic. Aggregation works on raw hit
// counts rather than percentages so per-repo values can be merged with a
// plain component-wise sum and divided exactly once at reporting time.
package metrics

import "path/filepath"

// RankWindow is the deepest rank any metric credits. The search tool returns
// ten results per query, and both the accuracy buckets and the reciprocal
// rank treat anything deeper as a miss.
const RankWindow = 10

// FindRank returns the 1-indexed position of the first file whose basename
// equals any expected basename, or 0 when nothing in the supplied list
// matches. Expected entries are compared verbatim against the final path
// segment; multiple entries are OR'd, the first match wins.
//
// The whole supplied list is scanned, so the returned rank is bounded by
// len(files), not by RankWindow. Windowing happens at scoring time.
func FindRank(files []string, expect []string) int {
	for i, f := range files {
		base := filepath.Base(f)
		for _, want := range expect {
			if base == want {
				return i + 1
			}
		}
	}
	return 0
}

// Reciprocal returns the MRR contribution of a single rank: 1/rank for a hit
// inside the rank window, 0 for a miss or anything deeper than RankWindow.
func Reciprocal(rank int) float64 {
	if rank <= 0 || rank > RankWindow {
		return 0
	}
	return 1.0 / float64(rank)
}
