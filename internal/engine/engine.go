package engine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/win-probability/internal/features"
	"github.com/yourusername/win-probability/internal/logger"
	"github.com/yourusername/win-probability/internal/ml"
	"github.com/yourusername/win-probability/internal/models"
)

// DefaultMinTrainingRows is the smallest labeled set training accepts
const DefaultMinTrainingRows = 20

// Config controls training and inference behavior
type Config struct {
	Backends        []string
	Weighting       string
	HoldoutFraction float64
	MinTrainingRows int
	Params          ml.Params
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		Backends:        []string{ml.BackendRandomForest, ml.BackendGradientBoosting, ml.BackendLogisticRegression},
		Weighting:       ml.WeightingAUC,
		HoldoutFraction: 0.2,
		MinTrainingRows: DefaultMinTrainingRows,
		Params:          ml.DefaultParams(),
	}
}

// PairInput carries everything needed to score one opportunity for one bidder.
// Only the opportunity and bidder identifiers are required.
type PairInput struct {
	BidderID    string
	Opportunity models.Opportunity
	History     []models.CompanyHistoryRecord
	Market      *models.MarketData
	Outcomes    []models.HistoricalOutcome
}

// Pair returns the identifiers of the input
func (in PairInput) Pair() models.PredictionPair {
	return models.PredictionPair{OpportunityID: in.Opportunity.ID, BidderID: in.BidderID}
}

func (in PairInput) featureInput() features.Input {
	return features.Input{
		Opportunity: in.Opportunity,
		History:     in.History,
		Market:      in.Market,
		Outcomes:    in.Outcomes,
	}
}

func (in PairInput) validate() error {
	if err := models.Validate(in.Opportunity); err != nil {
		return err
	}
	if strings.TrimSpace(in.Opportunity.ID) == "" {
		return fmt.Errorf("%w: opportunity id is blank", models.ErrInvalidInput)
	}
	if strings.TrimSpace(in.BidderID) == "" {
		return fmt.Errorf("%w: bidder id is required", models.ErrInvalidInput)
	}
	return nil
}

// Engine trains the ensemble and serves predictions from the live snapshot.
// The live model is replaced with a single atomic store, so readers always see
// one complete ensemble.
type Engine struct {
	cfg         Config
	current     atomic.Pointer[ml.Ensemble]
	logger      *logrus.Logger
	mlLogger    *logger.MLLogger
	auditLogger *logger.AuditLogger
	now         func() time.Time
}

// NewEngine creates an engine with no model loaded
func NewEngine(cfg Config, log *logrus.Logger) *Engine {
	if cfg.MinTrainingRows <= 0 {
		cfg.MinTrainingRows = DefaultMinTrainingRows
	}
	if len(cfg.Backends) == 0 {
		cfg.Backends = DefaultConfig().Backends
	}
	return &Engine{
		cfg:         cfg,
		logger:      log,
		mlLogger:    logger.NewMLLogger(log),
		auditLogger: logger.NewAuditLogger(log),
		now:         time.Now,
	}
}

// TrainModels trains a new ensemble and installs it when at least one backend
// succeeds. On failure the previous model stays live.
func (e *Engine) TrainModels(ctx context.Context, ds *Dataset) (map[string]models.ModelPerformance, error) {
	ens, perf, err := e.TrainEnsemble(ctx, ds)
	if err != nil {
		return perf, err
	}
	if err := e.LoadEnsemble(ens); err != nil {
		return perf, err
	}
	return perf, nil
}

// TrainEnsemble trains a new ensemble without installing it
func (e *Engine) TrainEnsemble(ctx context.Context, ds *Dataset) (*ml.Ensemble, map[string]models.ModelPerformance, error) {
	if err := e.checkDataset(ds); err != nil {
		rows := 0
		if ds != nil {
			rows = len(ds.Y)
		}
		e.auditLogger.LogTrainingAborted(err.Error(), rows, e.ModelVersion())
		return nil, nil, err
	}

	params := e.cfg.Params
	params.Constraints = features.MonotoneConstraints(ds.Schema)

	ens, perf, err := ml.Train(ctx, ds.X, ds.Y, ds.Schema, ml.TrainConfig{
		Backends:        e.cfg.Backends,
		Weighting:       e.cfg.Weighting,
		HoldoutFraction: e.cfg.HoldoutFraction,
		Params:          params,
	}, e.mlLogger)
	if err != nil {
		e.auditLogger.LogTrainingAborted(err.Error(), len(ds.Y), e.ModelVersion())
		return nil, perf, fmt.Errorf("training failed: %w", err)
	}
	return ens, perf, nil
}

func (e *Engine) checkDataset(ds *Dataset) error {
	if ds == nil || len(ds.Y) < e.cfg.MinTrainingRows {
		n := 0
		if ds != nil {
			n = len(ds.Y)
		}
		return fmt.Errorf("%w: %d labeled rows, need at least %d", ErrInsufficientData, n, e.cfg.MinTrainingRows)
	}
	pos := ds.Positives()
	if pos == 0 || pos == len(ds.Y) {
		return fmt.Errorf("%w: only one label class present", ErrInsufficientData)
	}
	if err := checkSchema(ds.Schema); err != nil {
		return err
	}
	return nil
}

// LoadEnsemble installs a trained or persisted ensemble. An ensemble trained on a
// different feature schema is refused.
func (e *Engine) LoadEnsemble(ens *ml.Ensemble) error {
	if ens == nil {
		return fmt.Errorf("%w: nil ensemble", ErrModelNotLoaded)
	}
	if err := checkSchema(ens.Schema()); err != nil {
		return err
	}
	e.current.Store(ens)
	ml.MLEnsembleMembers.Set(float64(len(ens.Members())))
	return nil
}

func checkSchema(names []string) error {
	v, err := features.NewVector(names, make([]float64, len(names)))
	if err != nil {
		return err
	}
	return v.Validate(features.Schema())
}

// Current returns the live ensemble, or nil
func (e *Engine) Current() *ml.Ensemble {
	return e.current.Load()
}

// ModelLoaded reports whether a model is available for inference
func (e *Engine) ModelLoaded() bool {
	return e.current.Load() != nil
}

// ModelVersion returns the live model version, or "" when none is loaded
func (e *Engine) ModelVersion() string {
	if ens := e.current.Load(); ens != nil {
		return ens.Version()
	}
	return ""
}

// LastTrainedAt returns when the live model was trained, zero when none is loaded
func (e *Engine) LastTrainedAt() time.Time {
	if ens := e.current.Load(); ens != nil {
		return ens.TrainedAt()
	}
	return time.Time{}
}

// PredictWinProbability scores one pair. Missing optional data lowers confidence
// and adds risk notes but never fails the prediction.
func (e *Engine) PredictWinProbability(in PairInput) (*models.WinPrediction, error) {
	start := time.Now()
	if err := in.validate(); err != nil {
		return nil, err
	}
	ens := e.current.Load()
	if ens == nil {
		return nil, ErrModelNotLoaded
	}

	fin := in.featureInput()
	vec := features.Extract(fin)
	if err := vec.Validate(ens.Schema()); err != nil {
		return nil, err
	}

	prob, perBackend := ens.Predict(vec.Values())
	cov := features.Coverage(fin)
	risks, successes := explain(vec, ens, cov)

	pred := &models.WinPrediction{
		ID:              uuid.New(),
		OpportunityID:   in.Opportunity.ID,
		BidderID:        in.BidderID,
		WinProbability:  prob,
		ConfidenceScore: Confidence(perBackend, cov),
		RiskFactors:     risks,
		SuccessFactors:  successes,
		ModelVersion:    ens.Version(),
		Features:        vec.Map(),
		PredictedAt:     e.now().UTC(),
	}
	ml.MLPredictionLatency.WithLabelValues("predict").Observe(time.Since(start).Seconds())
	return pred, nil
}
