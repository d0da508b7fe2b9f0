package metrics

import (
	"fmt"
	"sort"
)

// DeltaKind classifies how one query's rank moved between the baseline and
// treatment passes.
type DeltaKind int

const (
	// DeltaBothMiss means neither pass surfaced the target.
	DeltaBothMiss DeltaKind = iota
	// DeltaNew means the baseline missed and the treatment hit.
	DeltaNew
	// DeltaLost means the baseline hit and the treatment missed.
	DeltaLost
	// DeltaImproved means both passes hit and the treatment ranked higher.
	DeltaImproved
	// DeltaRegressed means both passes hit and the treatment ranked lower.
	DeltaRegressed
	// DeltaUnchanged means both passes hit at the same rank.
	DeltaUnchanged
)

// Delta is the classified movement of a single query. Magnitude is the
// number of rank positions gained or lost and is only set for DeltaImproved
// and DeltaRegressed.
type Delta struct {
	Kind      DeltaKind
	Magnitude int
}

// Classify compares a query's baseline and treatment ranks. Rank 0 means the
// target never appeared in that pass.
func Classify(baseline, treatment int) Delta {
	switch {
	case baseline == 0 && treatment == 0:
		return Delta{Kind: DeltaBothMiss}
	case baseline == 0:
		return Delta{Kind: DeltaNew}
	case treatment == 0:
		return Delta{Kind: DeltaLost}
	case treatment < baseline:
		return Delta{Kind: DeltaImproved, Magnitude: baseline - treatment}
	case treatment > baseline:
		return Delta{Kind: DeltaRegressed, Magnitude: treatment - baseline}
	default:
		return Delta{Kind: DeltaUnchanged}
	}
}

// Label renders the per-query table cell: blank for a double miss, "NEW" and
// "LOST" for appearing and disappearing targets, "+n"/"-n" for rank
// movement, "=" for no movement.
func (d Delta) Label() string {
	switch d.Kind {
	case DeltaBothMiss:
		return ""
	case DeltaNew:
		return "NEW"
	case DeltaLost:
		return "LOST"
	case DeltaImproved:
		return fmt.Sprintf("+%d", d.Magnitude)
	case DeltaRegressed:
		return fmt.Sprintf("-%d", d.Magnitude)
	default:
		return "="
	}
}

// RankLabel renders a rank for the change lists: "@n" for a hit, "miss" for
// a rank of 0.
func RankLabel(rank int) string {
	if rank <= 0 {
		return "miss"
	}
	return fmt.Sprintf("@%d", rank)
}

// QueryPair is one query observed under both passes. Pairs are assembled by
// suite position, never by collection order, so concurrent measurement
// cannot mispair them.
type QueryPair struct {
	Query     string
	Baseline  int
	Treatment int
}

// ChangeRecord is one line of the improvement or regression lists.
type ChangeRecord struct {
	Query string
	From  string
	To    string
}

// Partition splits pairs into improvements (new hits plus rank gains) and
// regressions (lost hits plus rank losses). Double misses and unchanged
// ranks appear in neither list. Each list is ordered by the From label as a
// plain string ("@1" before "@10" before "@2", "miss" last) with ties kept
// in input order.
func Partition(pairs []QueryPair) (improvements, regressions []ChangeRecord) {
	for _, p := range pairs {
		rec := ChangeRecord{
			Query: p.Query,
			From:  RankLabel(p.Baseline),
			To:    RankLabel(p.Treatment),
		}
		switch Classify(p.Baseline, p.Treatment).Kind {
		case DeltaNew, DeltaImproved:
			improvements = append(improvements, rec)
		case DeltaLost, DeltaRegressed:
			regressions = append(regressions, rec)
		}
	}
	sortChanges(improvements)
	sortChanges(regressions)
	return improvements, regressions
}

func sortChanges(recs []ChangeRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].From < recs[j].From
	})
}
