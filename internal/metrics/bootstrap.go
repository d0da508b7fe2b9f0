package metrics

import (
	"fmt"
	"math/rand"
	"sort"
)

// Bootstrap parameter defaults. The seed is fixed so two runs over the same
// report data produce bit-identical intervals.
const (
	DefaultIterations = 1000
	DefaultConfidence = 0.95
	DefaultSeed       = 42
)

// BootstrapResult is a percentile bootstrap estimate of the mean MRR delta
// between two paired rank sequences. Delta is the observed
// mrr(treatment) - mrr(baseline); Lower and Upper bound the resampled delta
// distribution at the requested confidence.
type BootstrapResult struct {
	Delta float64
	Lower float64
	Upper float64
}

// BootstrapDelta estimates a confidence interval for the MRR delta by
// resampling query pairs with replacement. The slices must line up
// position-for-position: element i of both holds the two ranks of the same
// query. A length mismatch is a caller bug, not a data anomaly, and aborts
// the computation. Empty input returns a zero result and no error.
//
// Each iteration draws n indices uniformly from [0,n) and applies the same
// indices to both slices, so resampling preserves the pairing. The generator
// is seeded per call; identical inputs and parameters reproduce identical
// intervals.
func BootstrapDelta(baseline, treatment []int, iterations int, confidence float64, seed int64) (BootstrapResult, error) {
	if len(baseline) != len(treatment) {
		return BootstrapResult{}, fmt.Errorf("paired rank sequences differ in length: baseline %d, treatment %d", len(baseline), len(treatment))
	}
	if iterations < 1 {
		return BootstrapResult{}, fmt.Errorf("bootstrap iterations must be positive, got %d", iterations)
	}
	if confidence <= 0 || confidence >= 1 {
		return BootstrapResult{}, fmt.Errorf("bootstrap confidence must be inside (0,1), got %g", confidence)
	}
	n := len(baseline)
	if n == 0 {
		return BootstrapResult{}, nil
	}

	observed := MeanReciprocal(treatment) - MeanReciprocal(baseline)

	rng := rand.New(rand.NewSource(seed))
	deltas := make([]float64, iterations)
	base := make([]int, n)
	treat := make([]int, n)
	for i := 0; i < iterations; i++ {
		for j := 0; j < n; j++ {
			k := rng.Intn(n)
			base[j] = baseline[k]
			treat[j] = treatment[k]
		}
		deltas[i] = MeanReciprocal(treat) - MeanReciprocal(base)
	}
	sort.Float64s(deltas)

	alpha := 1 - confidence
	lo := int(alpha / 2 * float64(iterations))
	hi := int((1 - alpha/2) * float64(iterations))
	if hi >= iterations {
		hi = iterations - 1
	}
	return BootstrapResult{Delta: observed, Lower: deltas[lo], Upper: deltas[hi]}, nil
}

// MeanReciprocal is the mean reciprocal rank of one pass: the average of
// Reciprocal over the ranks, 0 for an empty pass.
func MeanReciprocal(ranks []int) float64 {
	if len(ranks) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ranks {
		sum += Reciprocal(r)
	}
	return sum / float64(len(ranks))
}
