package ml

import (
	"math"
	"math/rand"
)

const minFitRows = 4

// RandomForest is a bagged ensemble of CART trees with feature subsampling
type RandomForest struct {
	params Params

	Trees       []*regressionTree `json:"trees"`
	Importances []float64         `json:"importance"`
}

// NewRandomForest creates an unfitted forest
func NewRandomForest(p Params) *RandomForest {
	return &RandomForest{params: p.withDefaults()}
}

// Name implements Classifier
func (m *RandomForest) Name() string { return BackendRandomForest }

// Fit grows Trees bootstrap trees, each considering sqrt(p) features per split
func (m *RandomForest) Fit(X [][]float64, y []float64) error {
	width, err := checkTrainingSet(X, y, minFitRows)
	if err != nil {
		return err
	}

	n := len(X)
	rng := rand.New(rand.NewSource(m.params.Seed))
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	maxFeatures := int(math.Max(1, math.Round(math.Sqrt(float64(width)))))
	gain := make([]float64, width)

	trees := make([]*regressionTree, 0, m.params.Trees)
	for t := 0; t < m.params.Trees; t++ {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = rng.Intn(n)
		}
		b := &treeBuilder{
			X:           X,
			g:           y,
			h:           ones,
			maxDepth:    m.params.MaxDepth,
			minLeaf:     m.params.MinSamplesLeaf,
			maxFeatures: maxFeatures,
			constraints: m.params.Constraints,
			rng:         rng,
			gain:        gain,
		}
		trees = append(trees, b.build(rows))
	}

	m.Trees = trees
	m.Importances = normalize(gain)
	return nil
}

// PredictProbability averages the trees' leaf means
func (m *RandomForest) PredictProbability(x []float64) float64 {
	if len(m.Trees) == 0 {
		return 0.5
	}
	var sum float64
	for _, t := range m.Trees {
		sum += t.predict(x)
	}
	return clamp01(sum / float64(len(m.Trees)))
}

// FeatureImportance implements Classifier
func (m *RandomForest) FeatureImportance() []float64 {
	return append([]float64(nil), m.Importances...)
}
