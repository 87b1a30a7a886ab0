package ml

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Backend names accepted in configuration
const (
	BackendRandomForest       = "random_forest"
	BackendGradientBoosting   = "gradient_boosting"
	BackendLogisticRegression = "logistic_regression"
)

// Classifier is a binary classifier producing win probabilities
type Classifier interface {
	Name() string
	Fit(X [][]float64, y []float64) error
	PredictProbability(x []float64) float64
	// FeatureImportance returns one non-negative weight per column, summing to 1
	// when any column carries signal.
	FeatureImportance() []float64
}

// Params holds hyperparameters shared by the backend factories
type Params struct {
	Trees              int
	MaxDepth           int
	MinSamplesLeaf     int
	BoostingRounds     int
	LearningRate       float64
	BoostingDepth      int
	L2                 float64
	LogisticIterations int
	LogisticStep       float64
	LogisticL2         float64
	Seed               int64
	// Constraints holds the monotone direction per column: +1, -1 or 0
	Constraints []int
}

// DefaultParams returns hyperparameters suited to a few hundred to a few thousand rows
func DefaultParams() Params {
	return Params{
		Trees:              60,
		MaxDepth:           6,
		MinSamplesLeaf:     3,
		BoostingRounds:     120,
		LearningRate:       0.1,
		BoostingDepth:      3,
		L2:                 1.0,
		LogisticIterations: 600,
		LogisticStep:       0.2,
		LogisticL2:         0.01,
		Seed:               42,
	}
}

// withDefaults fills zero-valued fields from DefaultParams
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Trees <= 0 {
		p.Trees = d.Trees
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinSamplesLeaf <= 0 {
		p.MinSamplesLeaf = d.MinSamplesLeaf
	}
	if p.BoostingRounds <= 0 {
		p.BoostingRounds = d.BoostingRounds
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	if p.BoostingDepth <= 0 {
		p.BoostingDepth = d.BoostingDepth
	}
	if p.L2 < 0 {
		p.L2 = d.L2
	}
	if p.LogisticIterations <= 0 {
		p.LogisticIterations = d.LogisticIterations
	}
	if p.LogisticStep <= 0 {
		p.LogisticStep = d.LogisticStep
	}
	if p.LogisticL2 < 0 {
		p.LogisticL2 = d.LogisticL2
	}
	return p
}

// Factory constructs an unfitted backend
type Factory func(p Params) Classifier

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		BackendRandomForest:       func(p Params) Classifier { return NewRandomForest(p) },
		BackendGradientBoosting:   func(p Params) Classifier { return NewGradientBoosting(p) },
		BackendLogisticRegression: func(p Params) Classifier { return NewLogisticRegression(p) },
	}
)

// Register adds or replaces a backend factory
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// NewClassifier builds a backend by configured name
func NewClassifier(name string, p Params) (Classifier, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return f(p), nil
}

// Backends lists the registered backend names in sorted order
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// checkTrainingSet applies the guards shared by every backend
func checkTrainingSet(X [][]float64, y []float64, minRows int) (int, error) {
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows for %d labels", ErrDimensionMismatch, len(X), len(y))
	}
	if len(X) < minRows {
		return 0, fmt.Errorf("%w: %d < %d", ErrTooFewRows, len(X), minRows)
	}
	width := len(X[0])
	var pos int
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrDimensionMismatch, i, len(row), width)
		}
		if y[i] >= 0.5 {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return 0, ErrDegenerateLabels
	}
	return width, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func logit(p float64) float64 {
	p = math.Min(math.Max(p, 1e-6), 1-1e-6)
	return math.Log(p / (1 - p))
}

func clamp01(p float64) float64 {
	if math.IsNaN(p) {
		return 0.5
	}
	return math.Min(1, math.Max(0, p))
}

func normalize(w []float64) []float64 {
	out := make([]float64, len(w))
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		return out
	}
	for i, v := range w {
		out[i] = v / sum
	}
	return out
}

func constraintAt(c []int, i int) int {
	if i < len(c) {
		return c[i]
	}
	return 0
}
