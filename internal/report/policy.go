package report

import (
	"fmt"
	"io"
)

// Decide is the CI verdict: lifting must not regress mean MRR.
func Decide(unliftedMRR, liftedMRR float64) bool {
	return liftedMRR >= unliftedMRR
}

// Gate prints the CI verdict line and reports whether the run passed.
// Callers turn a failed gate into a non-zero exit.
func Gate(w io.Writer, unliftedMRR, liftedMRR float64) bool {
	if !Decide(unliftedMRR, liftedMRR) {
		fmt.Fprintf(w, "CI FAIL: lifted MRR (%.3f) < unlifted MRR (%.3f)\n", liftedMRR, unliftedMRR)
		return false
	}
	fmt.Fprintf(w, "CI PASS: lifted MRR (%.3f) >= unlifted MRR (%.3f)\n", liftedMRR, unliftedMRR)
	return true
}
