package ml

import (
	"fmt"
	"math"
)

// GradientBoosting fits shallow regression trees to the log-loss gradient
type GradientBoosting struct {
	params Params

	Base         float64           `json:"base"`
	LearningRate float64           `json:"learning_rate"`
	Trees        []*regressionTree `json:"trees"`
	Importances  []float64         `json:"importance"`
}

// NewGradientBoosting creates an unfitted booster
func NewGradientBoosting(p Params) *GradientBoosting {
	return &GradientBoosting{params: p.withDefaults()}
}

// Name implements Classifier
func (m *GradientBoosting) Name() string { return BackendGradientBoosting }

// Fit starts from the base-rate log-odds and adds one Newton-step tree per round
func (m *GradientBoosting) Fit(X [][]float64, y []float64) error {
	width, err := checkTrainingSet(X, y, minFitRows)
	if err != nil {
		return err
	}

	n := len(X)
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	base := logit(mean)
	lr := m.params.LearningRate
	F := make([]float64, n)
	for i := range F {
		F[i] = base
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	g := make([]float64, n)
	h := make([]float64, n)
	gain := make([]float64, width)
	trees := make([]*regressionTree, 0, m.params.BoostingRounds)

	for round := 0; round < m.params.BoostingRounds; round++ {
		for i := range F {
			p := sigmoid(F[i])
			g[i] = y[i] - p
			h[i] = p * (1 - p)
		}
		b := &treeBuilder{
			X:           X,
			g:           g,
			h:           h,
			maxDepth:    m.params.BoostingDepth,
			minLeaf:     m.params.MinSamplesLeaf,
			lambda:      m.params.L2,
			constraints: m.params.Constraints,
			gain:        gain,
		}
		tree := b.build(rows)
		for i := range F {
			F[i] += lr * tree.predict(X[i])
			if math.IsNaN(F[i]) || math.IsInf(F[i], 0) {
				return fmt.Errorf("%w: round %d", ErrNumericFailure, round)
			}
		}
		trees = append(trees, tree)
	}

	m.Base = base
	m.LearningRate = lr
	m.Trees = trees
	m.Importances = normalize(gain)
	return nil
}

// PredictProbability implements Classifier
func (m *GradientBoosting) PredictProbability(x []float64) float64 {
	f := m.Base
	for _, t := range m.Trees {
		f += m.LearningRate * t.predict(x)
	}
	return clamp01(sigmoid(f))
}

// FeatureImportance implements Classifier
func (m *GradientBoosting) FeatureImportance() []float64 {
	return append([]float64(nil), m.Importances...)
}
