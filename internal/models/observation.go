package models

import "github.com/userFRM/rpg-bench/internal/metrics"

// RankObservation is the outcome of one query under one measurement pass.
type RankObservation struct {
	Query  string   // Query text, kept alongside the rank for report readability
	Expect []string // Expected basenames, carried through to the report
	Rank   int      // 1-indexed rank of the first expected file, 0 for a miss
	TopK   []string // Leading hit paths, for verbose logs and debugging
}

// RepoResult collects everything measured for one repo. LiftedObs and Lifted
// stay empty/nil when the repo never got a treatment pass (lift skipped,
// disabled, or failed).
type RepoResult struct {
	Name        string
	Language    string
	Entities    int // entity count reported by the encoder build, 0 if unknown
	LiftedCount int // entities with semantic features in the graph artifact
	Queries     int // queries measured

	Unlifted    metrics.Metrics
	Lifted      *metrics.Metrics
	UnliftedObs []RankObservation
	LiftedObs   []RankObservation
}

// Measured reports whether the repo produced both passes.
func (rr *RepoResult) Measured() bool {
	return rr.Lifted != nil
}

// Pairs returns the repo's queries observed under both passes, matched by
// suite position. Observation slices are index-aligned with the suite's
// query list, so pairing survives any measurement ordering. Repos without a
// treatment pass contribute no pairs.
func (rr *RepoResult) Pairs() []metrics.QueryPair {
	if rr.Lifted == nil {
		return nil
	}
	n := len(rr.UnliftedObs)
	if len(rr.LiftedObs) < n {
		n = len(rr.LiftedObs)
	}
	pairs := make([]metrics.QueryPair, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, metrics.QueryPair{
			Query:     rr.UnliftedObs[i].Query,
			Baseline:  rr.UnliftedObs[i].Rank,
			Treatment: rr.LiftedObs[i].Rank,
		})
	}
	return pairs
}
