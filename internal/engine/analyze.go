package engine

import (
	"math"
	"sort"

	"github.com/yourusername/win-probability/internal/features"
)

// FactorContribution explains one feature's role in a single prediction
type FactorContribution struct {
	Feature    string  `json:"feature"`
	Value      float64 `json:"value"`
	Baseline   float64 `json:"baseline"`
	Importance float64 `json:"importance"`
	// Contribution is the probability change against the feature's training mean
	Contribution float64 `json:"contribution"`
}

// AnalyzeFactors attributes the pair's probability to individual features by
// replacing each with its training mean and measuring the change. The result is
// sorted by absolute contribution, then global importance.
func (e *Engine) AnalyzeFactors(in PairInput) ([]FactorContribution, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ens := e.current.Load()
	if ens == nil {
		return nil, ErrModelNotLoaded
	}

	vec := features.Extract(in.featureInput())
	if err := vec.Validate(ens.Schema()); err != nil {
		return nil, err
	}

	base, _ := ens.Predict(vec.Values())
	means := ens.Means()
	names := vec.Names()
	values := vec.Values()

	out := make([]FactorContribution, 0, len(names))
	for j, name := range names {
		replaced, _ := ens.Predict(vec.With(name, means[j]).Values())
		out = append(out, FactorContribution{
			Feature:      name,
			Value:        values[j],
			Baseline:     means[j],
			Importance:   ens.ImportanceOf(name),
			Contribution: base - replaced,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Contribution), math.Abs(out[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	return out, nil
}
