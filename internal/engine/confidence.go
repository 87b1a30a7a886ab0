package engine

import (
	"math"

	"github.com/yourusername/win-probability/internal/features"
)

// Confidence weights, summing to 1
const (
	agreementWeight    = 0.4
	completenessWeight = 0.6
)

// Agreement maps the spread of backend probabilities onto [0,1]: identical
// outputs give 1, a standard deviation of 0.5 or more gives 0.
func Agreement(probs []float64) float64 {
	if len(probs) < 2 {
		return 1
	}
	var mean float64
	for _, p := range probs {
		mean += p
	}
	mean /= float64(len(probs))
	var variance float64
	for _, p := range probs {
		variance += (p - mean) * (p - mean)
	}
	sd := math.Sqrt(variance / float64(len(probs)))
	return 1 - math.Min(1, 2*sd)
}

// Confidence combines backend agreement with data completeness. It is
// non-decreasing in both and always within [0,1].
func Confidence(backendProbs []float64, cov features.DataCoverage) float64 {
	c := agreementWeight*Agreement(backendProbs) + completenessWeight*cov.Completeness()
	if math.IsNaN(c) {
		return 0
	}
	return math.Min(1, math.Max(0, c))
}
