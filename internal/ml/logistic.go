package ml

import (
	"fmt"
	"math"
)

// LogisticRegression is an L2-regularized linear classifier over standardized inputs.
// Coefficients of constrained columns are projected onto their allowed sign after
// every step.
type LogisticRegression struct {
	params Params

	Means   []float64 `json:"means"`
	Scales  []float64 `json:"scales"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// NewLogisticRegression creates an unfitted model
func NewLogisticRegression(p Params) *LogisticRegression {
	return &LogisticRegression{params: p.withDefaults()}
}

// Name implements Classifier
func (m *LogisticRegression) Name() string { return BackendLogisticRegression }

// Fit runs batch gradient descent on the regularized log-loss
func (m *LogisticRegression) Fit(X [][]float64, y []float64) error {
	width, err := checkTrainingSet(X, y, minFitRows)
	if err != nil {
		return err
	}
	n := float64(len(X))

	means := make([]float64, width)
	scales := make([]float64, width)
	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - means[j]
			scales[j] += d * d
		}
	}
	for j := range scales {
		scales[j] = math.Sqrt(scales[j] / n)
		if scales[j] < 1e-12 {
			scales[j] = 1
		}
	}

	Z := make([][]float64, len(X))
	var mean float64
	for i, row := range X {
		z := make([]float64, width)
		for j, v := range row {
			z[j] = (v - means[j]) / scales[j]
		}
		Z[i] = z
		mean += y[i]
	}

	w := make([]float64, width)
	bias := logit(mean / n)
	grad := make([]float64, width)
	step := m.params.LogisticStep

	for it := 0; it < m.params.LogisticIterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		var gb float64
		for i, z := range Z {
			r := sigmoid(bias+dot(w, z)) - y[i]
			gb += r
			for j, v := range z {
				grad[j] += r * v
			}
		}
		bias -= step * gb / n
		for j := range w {
			w[j] -= step * (grad[j]/n + m.params.LogisticL2*w[j])
			switch constraintAt(m.params.Constraints, j) {
			case 1:
				w[j] = math.Max(0, w[j])
			case -1:
				w[j] = math.Min(0, w[j])
			}
		}
	}

	for _, v := range append(w, bias) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coefficient", ErrNumericFailure)
		}
	}

	m.Means = means
	m.Scales = scales
	m.Weights = w
	m.Bias = bias
	return nil
}

// PredictProbability implements Classifier
func (m *LogisticRegression) PredictProbability(x []float64) float64 {
	z := m.Bias
	for j, wj := range m.Weights {
		if j < len(x) {
			z += wj * (x[j] - m.Means[j]) / m.Scales[j]
		}
	}
	return clamp01(sigmoid(z))
}

// FeatureImportance returns the normalized absolute standardized coefficients
func (m *LogisticRegression) FeatureImportance() []float64 {
	abs := make([]float64, len(m.Weights))
	for j, v := range m.Weights {
		abs[j] = math.Abs(v)
	}
	return normalize(abs)
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
