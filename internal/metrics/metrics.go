package metrics

// Metrics holds the hit counts for one measurement pass. All fields are raw
// counts; percentages and mean MRR are derived on demand so that Metrics
// values from different repos can be combined with Add first and divided
// once afterwards.
type Metrics struct {
	At1    int
	At3    int
	At5    int
	At10   int
	Total  int
	MRRSum float64
}

// Compute tallies one pass worth of ranks. A rank r with 0 < r <= k counts
// toward the At-k bucket, so the buckets are non-decreasing in k. Misses and
// ranks deeper than RankWindow contribute nothing to MRRSum.
func Compute(ranks []int) Metrics {
	var m Metrics
	for _, r := range ranks {
		m.Total++
		if r > 0 && r <= 1 {
			m.At1++
		}
		if r > 0 && r <= 3 {
			m.At3++
		}
		if r > 0 && r <= 5 {
			m.At5++
		}
		if r > 0 && r <= 10 {
			m.At10++
		}
		m.MRRSum += Reciprocal(r)
	}
	return m
}

// Add returns the component-wise sum of m and other. Add is associative and
// commutative, so a cross-repo aggregate is a fold of Add over per-repo
// Metrics in any order.
func (m Metrics) Add(other Metrics) Metrics {
	return Metrics{
		At1:    m.At1 + other.At1,
		At3:    m.At3 + other.At3,
		At5:    m.At5 + other.At5,
		At10:   m.At10 + other.At10,
		Total:  m.Total + other.Total,
		MRRSum: m.MRRSum + other.MRRSum,
	}
}

// HitsAt returns the raw hit count for k in {1, 3, 5, 10}; other k return 0.
func (m Metrics) HitsAt(k int) int {
	switch k {
	case 1:
		return m.At1
	case 3:
		return m.At3
	case 5:
		return m.At5
	case 10:
		return m.At10
	default:
		return 0
	}
}

// AccuracyAt returns the Acc@k percentage for k in {1, 3, 5, 10}. An empty
// pass scores 0 rather than dividing by zero.
func (m Metrics) AccuracyAt(k int) float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.HitsAt(k)) * 100 / float64(m.Total)
}

// MeanMRR returns MRRSum averaged over the pass, 0 for an empty pass.
func (m Metrics) MeanMRR() float64 {
	if m.Total == 0 {
		return 0
	}
	return m.MRRSum / float64(m.Total)
}
