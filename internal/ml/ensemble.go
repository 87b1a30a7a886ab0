package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/win-probability/internal/logger"
	"github.com/yourusername/win-probability/internal/models"
)

// Ensemble weighting modes
const (
	WeightingMean = "mean"
	WeightingAUC  = "auc"
)

// TrainConfig selects backends and evaluation settings for a training run
type TrainConfig struct {
	Backends        []string
	Weighting       string
	HoldoutFraction float64
	Params          Params
	// Version overrides the generated model version when set
	Version string
}

type member struct {
	name   string
	weight float64
	model  Classifier
}

// Ensemble is an immutable trained model snapshot. It is safe for concurrent use.
type Ensemble struct {
	version     string
	trainedAt   time.Time
	schema      []string
	members     []member
	means       []float64
	importance  []models.FeatureImportance
	performance map[string]models.ModelPerformance
}

// Train fits every configured backend on a stratified train split and evaluates it
// on the holdout. Backends that fail to fit are left out of the ensemble; an error is
// returned only when none succeed.
func Train(ctx context.Context, X [][]float64, y []float64, schema []string, cfg TrainConfig, log *logger.MLLogger) (*Ensemble, map[string]models.ModelPerformance, error) {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logger.NewMLLogger(discard)
	}
	if len(cfg.Backends) == 0 {
		return nil, nil, fmt.Errorf("%w: no backends configured", ErrAllBackendsFailed)
	}
	if _, err := checkTrainingSet(X, y, minFitRows); err != nil {
		return nil, nil, err
	}
	if len(schema) != len(X[0]) {
		return nil, nil, fmt.Errorf("%w: schema has %d names, rows have %d columns", ErrDimensionMismatch, len(schema), len(X[0]))
	}

	start := time.Now()
	trainIdx, holdIdx := StratifiedSplit(y, cfg.HoldoutFraction, cfg.Params.Seed)
	Xtr, ytr := subset(X, y, trainIdx)
	Xho, yho := subset(X, y, holdIdx)
	if len(holdIdx) == 0 {
		Xho, yho = Xtr, ytr
	}

	type result struct {
		model Classifier
		perf  models.ModelPerformance
		err   error
	}
	results := make([]result, len(cfg.Backends))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range cfg.Backends {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perf := models.ModelPerformance{Backend: name, TrainRows: len(trainIdx), HoldoutRows: len(holdIdx)}
			clf, err := NewClassifier(name, cfg.Params)
			if err == nil {
				err = clf.Fit(Xtr, ytr)
			}
			if err != nil {
				perf.Error = err.Error()
				results[i] = result{perf: perf, err: &FitError{Backend: name, Err: err}}
				return nil
			}

			scores := make([]float64, len(Xho))
			for k, row := range Xho {
				scores[k] = clf.PredictProbability(row)
			}
			perf.AUCROC = AUCROC(scores, yho)
			perf.Accuracy = Accuracy(scores, yho, 0.5)
			perf.FeatureImportance = rankImportance(schema, clf.FeatureImportance())
			results[i] = result{model: clf, perf: perf}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	performance := make(map[string]models.ModelPerformance, len(results))
	var (
		members []member
		errs    []error
		auc     = make(map[string]float64)
	)
	for _, r := range results {
		performance[r.perf.Backend] = r.perf
		if r.err != nil {
			errs = append(errs, r.err)
			MLTrainingJobsTotal.WithLabelValues(r.perf.Backend, "failure").Inc()
			log.LogBackendRejected(r.perf.Backend, r.perf.Error)
			continue
		}
		MLTrainingJobsTotal.WithLabelValues(r.perf.Backend, "success").Inc()
		MLBackendAUC.WithLabelValues(r.perf.Backend).Set(r.perf.AUCROC)
		auc[r.perf.Backend] = r.perf.AUCROC
		members = append(members, member{name: r.perf.Backend, model: r.model, weight: memberWeight(cfg.Weighting, r.perf.AUCROC)})
	}
	if len(members) == 0 {
		return nil, performance, fmt.Errorf("%w: %w", ErrAllBackendsFailed, errors.Join(errs...))
	}

	var total float64
	for _, m := range members {
		total += m.weight
	}
	for i := range members {
		members[i].weight /= total
	}

	trainedAt := time.Now().UTC()
	version := cfg.Version
	if version == "" {
		version = fmt.Sprintf("%s-%s", trainedAt.Format("20060102T150405Z"), uuid.NewString()[:8])
	}

	e := &Ensemble{
		version:     version,
		trainedAt:   trainedAt,
		schema:      append([]string(nil), schema...),
		members:     members,
		means:       columnMeans(X),
		performance: performance,
	}
	e.importance = e.combinedImportance()

	log.LogTrainingCompleted(version, e.Members(), len(trainIdx), len(holdIdx), time.Since(start).Seconds(), auc)
	return e, copyPerformance(performance), nil
}

func memberWeight(weighting string, auc float64) float64 {
	if weighting == WeightingAUC {
		// Better-than-chance margin, floored so a weak member is not silenced entirely
		if w := auc - 0.5; w > 0.01 {
			return w
		}
		return 0.01
	}
	return 1
}

// Predict returns the weighted ensemble probability and each member's probability
// in member order.
func (e *Ensemble) Predict(x []float64) (float64, []float64) {
	per := make([]float64, len(e.members))
	var p float64
	for i, m := range e.members {
		per[i] = m.model.PredictProbability(x)
		p += m.weight * per[i]
	}
	return clamp01(p), per
}

// Version returns the model version identifier
func (e *Ensemble) Version() string { return e.version }

// TrainedAt returns when the ensemble finished training
func (e *Ensemble) TrainedAt() time.Time { return e.trainedAt }

// Schema returns the ordered feature names the ensemble was trained on
func (e *Ensemble) Schema() []string { return append([]string(nil), e.schema...) }

// Means returns the per-feature training means, used as the attribution baseline
func (e *Ensemble) Means() []float64 { return append([]float64(nil), e.means...) }

// Members returns the backend names in the ensemble
func (e *Ensemble) Members() []string {
	names := make([]string, len(e.members))
	for i, m := range e.members {
		names[i] = m.name
	}
	return names
}

// Weights returns the normalized weight of each member
func (e *Ensemble) Weights() map[string]float64 {
	w := make(map[string]float64, len(e.members))
	for _, m := range e.members {
		w[m.name] = m.weight
	}
	return w
}

// Importance returns the ranked, weight-averaged feature importance
func (e *Ensemble) Importance() []models.FeatureImportance {
	return append([]models.FeatureImportance(nil), e.importance...)
}

// ImportanceOf returns the ensemble importance of one feature, 0 if unknown
func (e *Ensemble) ImportanceOf(feature string) float64 {
	for _, fi := range e.importance {
		if fi.Feature == feature {
			return fi.Importance
		}
	}
	return 0
}

// Performance returns the per-backend evaluation recorded at training time
func (e *Ensemble) Performance() map[string]models.ModelPerformance {
	return copyPerformance(e.performance)
}

func (e *Ensemble) combinedImportance() []models.FeatureImportance {
	combined := make([]float64, len(e.schema))
	for _, m := range e.members {
		for j, v := range m.model.FeatureImportance() {
			if j < len(combined) {
				combined[j] += m.weight * v
			}
		}
	}
	return rankImportance(e.schema, normalize(combined))
}

func rankImportance(schema []string, weights []float64) []models.FeatureImportance {
	out := make([]models.FeatureImportance, 0, len(schema))
	for j, name := range schema {
		var w float64
		if j < len(weights) {
			w = weights[j]
		}
		out = append(out, models.FeatureImportance{Feature: name, Importance: w})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

func columnMeans(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	means := make([]float64, len(X[0]))
	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(X))
	}
	return means
}

func copyPerformance(in map[string]models.ModelPerformance) map[string]models.ModelPerformance {
	out := make(map[string]models.ModelPerformance, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type ensembleJSON struct {
	Version     string                             `json:"version"`
	TrainedAt   time.Time                          `json:"trained_at"`
	Schema      []string                           `json:"schema"`
	Means       []float64                          `json:"means"`
	Performance map[string]models.ModelPerformance `json:"performance"`
	Members     []memberJSON                       `json:"members"`
}

type memberJSON struct {
	Name   string          `json:"name"`
	Weight float64         `json:"weight"`
	Model  json.RawMessage `json:"model"`
}

// MarshalJSON encodes the ensemble as a persistable artifact payload
func (e *Ensemble) MarshalJSON() ([]byte, error) {
	doc := ensembleJSON{
		Version:     e.version,
		TrainedAt:   e.trainedAt,
		Schema:      e.schema,
		Means:       e.means,
		Performance: e.performance,
	}
	for _, m := range e.members {
		raw, err := json.Marshal(m.model)
		if err != nil {
			return nil, fmt.Errorf("failed to encode backend %s: %w", m.name, err)
		}
		doc.Members = append(doc.Members, memberJSON{Name: m.name, Weight: m.weight, Model: raw})
	}
	return json.Marshal(doc)
}

// DecodeEnsemble restores an ensemble encoded by MarshalJSON
func DecodeEnsemble(data []byte) (*Ensemble, error) {
	var doc ensembleJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode ensemble: %w", err)
	}
	if len(doc.Members) == 0 {
		return nil, fmt.Errorf("failed to decode ensemble: no members")
	}
	if len(doc.Means) != len(doc.Schema) {
		return nil, fmt.Errorf("%w: %d means for %d features", ErrDimensionMismatch, len(doc.Means), len(doc.Schema))
	}

	e := &Ensemble{
		version:     doc.Version,
		trainedAt:   doc.TrainedAt,
		schema:      doc.Schema,
		means:       doc.Means,
		performance: doc.Performance,
	}
	if e.performance == nil {
		e.performance = make(map[string]models.ModelPerformance)
	}
	for _, m := range doc.Members {
		clf, err := NewClassifier(m.Name, DefaultParams())
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(m.Model, clf); err != nil {
			return nil, fmt.Errorf("failed to decode backend %s: %w", m.Name, err)
		}
		e.members = append(e.members, member{name: m.Name, weight: m.Weight, model: clf})
	}
	e.importance = e.combinedImportance()
	return e, nil
}
