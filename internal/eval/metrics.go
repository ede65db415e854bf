package eval

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Accuracy returns the fraction of positions where the labels agree. Empty input gives 0.
func Accuracy(yTrue, yPred []int) float64 {
	n := min(len(yTrue), len(yPred))
	if n == 0 {
		return 0
	}
	hit := 0
	for i := 0; i < n; i++ {
		if yTrue[i] == yPred[i] {
			hit++
		}
	}
	return float64(hit) / float64(n)
}

// ExpectedRegret returns the mean number of bytes lost by following pred instead of the
// smaller of the two filtered sizes, and the number of rows with both sizes known. The mean
// is NaN when no row qualifies.
func ExpectedRegret(pred []int, bcj, kanzi []float64) (float64, int) {
	n := min(len(pred), len(bcj), len(kanzi))
	sum := 0.0
	used := 0
	for i := 0; i < n; i++ {
		b, k := bcj[i], kanzi[i]
		if !finite(b) || !finite(k) {
			continue
		}
		chosen := b
		if pred[i] == 1 {
			chosen = k
		}
		sum += chosen - math.Min(b, k)
		used++
	}
	if used == 0 {
		return math.NaN(), 0
	}
	return sum / float64(used), used
}

// nanMean averages the non-NaN entries of xs; NaN when there are none.
func nanMean(xs []float64) float64 {
	kept := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			kept = append(kept, x)
		}
	}
	if len(kept) == 0 {
		return math.NaN()
	}
	return stat.Mean(kept, nil)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
