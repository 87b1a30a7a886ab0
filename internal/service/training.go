package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/win-probability/internal/engine"
	"github.com/yourusername/win-probability/internal/metrics"
	"github.com/yourusername/win-probability/internal/models"
)

// Training run statuses
const (
	TrainingStatusSuccess      = "success"
	TrainingStatusInsufficient = "insufficient_data"
	TrainingStatusFailed       = "failed"
)

// TrainingReport summarizes a completed training run
type TrainingReport struct {
	ArtifactID      uuid.UUID                          `json:"artifact_id"`
	ModelVersion    string                             `json:"model_version"`
	PreviousVersion string                             `json:"previous_version,omitempty"`
	TrainedAt       time.Time                          `json:"trained_at"`
	Rows            int                                `json:"rows"`
	Positives       int                                `json:"positives"`
	Backends        []string                           `json:"backends"`
	Performance     map[string]models.ModelPerformance `json:"performance"`
	Duration        time.Duration                      `json:"duration"`
}

// trainingInputs is everything read from the stores for one run
type trainingInputs struct {
	closed    []models.Opportunity
	histories map[string][]models.CompanyHistoryRecord
	market    *models.MarketData
	outcomes  []models.HistoricalOutcome
}

// Train assembles training data from the stores, trains a new ensemble, persists
// it and then swaps it in. When any step fails the previous model stays live.
// Only one run proceeds at a time.
func (s *WinProbabilityService) Train(ctx context.Context) (*TrainingReport, error) {
	if !s.trainMu.TryLock() {
		return nil, ErrTrainingInProgress
	}
	defer s.trainMu.Unlock()

	start := time.Now()
	report, rows, err := s.train(ctx)
	duration := time.Since(start)

	status := TrainingStatusSuccess
	switch {
	case errors.Is(err, engine.ErrInsufficientData):
		status = TrainingStatusInsufficient
	case err != nil:
		status = TrainingStatusFailed
	}
	metrics.RecordTrainingRun(status, rows, duration)
	metrics.RecordRequest("train", err, duration)
	if err != nil {
		return nil, err
	}
	report.Duration = duration
	return report, nil
}

func (s *WinProbabilityService) train(ctx context.Context) (*TrainingReport, int, error) {
	previous := s.engine.ModelVersion()

	inputs, err := s.loadTrainingInputs(ctx)
	if err != nil {
		s.auditLogger.LogTrainingAborted(err.Error(), 0, previous)
		return nil, 0, err
	}

	ds, err := s.engine.PrepareTrainingData(inputs.closed, inputs.histories, inputs.market, inputs.outcomes)
	if err != nil {
		s.auditLogger.LogTrainingAborted(err.Error(), 0, previous)
		return nil, 0, fmt.Errorf("failed to prepare training data: %w", err)
	}
	rows := len(ds.Y)

	ens, perf, err := s.engine.TrainEnsemble(ctx, ds)
	if err != nil {
		return nil, rows, err
	}

	artifact := &models.ModelArtifact{
		ID:          uuid.New(),
		Version:     ens.Version(),
		TrainedAt:   ens.TrainedAt(),
		Performance: perf,
	}
	artifact.Payload, err = json.Marshal(ens)
	if err != nil {
		s.auditLogger.LogTrainingAborted(err.Error(), rows, previous)
		return nil, rows, fmt.Errorf("failed to encode model: %w", err)
	}

	if s.stores.Artifacts != nil {
		if err := s.stores.Artifacts.CreateActive(ctx, artifact); err != nil {
			s.auditLogger.LogTrainingAborted(err.Error(), rows, previous)
			return nil, rows, fmt.Errorf("failed to persist model %s: %w", artifact.Version, err)
		}
	} else {
		s.logger.WithField("model_version", artifact.Version).Warn("No artifact store configured, model will not survive a restart")
	}

	if err := s.engine.LoadEnsemble(ens); err != nil {
		s.auditLogger.LogTrainingAborted(err.Error(), rows, previous)
		return nil, rows, err
	}
	s.auditLogger.LogModelActivated(artifact.ID.String(), artifact.Version, previous, artifact.BackendNames(), artifact.TrainedAt)
	metrics.UpdateModelState(true, artifact.TrainedAt)

	if previous != "" && s.predictions != nil {
		evicted := s.predictions.InvalidateVersion(ctx, previous)
		s.logger.WithFields(logrus.Fields{
			"previous_version": previous,
			"evicted":          evicted,
		}).Debug("Evicted predictions of replaced model")
	}

	return &TrainingReport{
		ArtifactID:      artifact.ID,
		ModelVersion:    artifact.Version,
		PreviousVersion: previous,
		TrainedAt:       artifact.TrainedAt,
		Rows:            rows,
		Positives:       ds.Positives(),
		Backends:        artifact.BackendNames(),
		Performance:     perf,
	}, rows, nil
}

// loadTrainingInputs reads the four training sources concurrently. The closed
// opportunities and histories are required; market data and outcomes degrade.
func (s *WinProbabilityService) loadTrainingInputs(ctx context.Context) (*trainingInputs, error) {
	var in trainingInputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		closed, err := s.stores.Opportunities.ListClosed(gctx)
		if err != nil {
			return fmt.Errorf("failed to list closed opportunities: %w", err)
		}
		in.closed = closed
		return nil
	})
	g.Go(func() error {
		histories, err := s.stores.History.ListAll(gctx)
		if err != nil {
			return fmt.Errorf("failed to list company history: %w", err)
		}
		in.histories = histories
		return nil
	})
	g.Go(func() error {
		market, err := s.marketSnapshot(gctx)
		if err != nil {
			s.logger.WithError(err).Warn("Training without market data")
			metrics.RecordDegradedSignal(signalMarket)
			return nil
		}
		in.market = market
		return nil
	})
	g.Go(func() error {
		outcomes, err := s.stores.Outcomes.ListRecent(gctx, s.opts.OutcomeLimit)
		if err != nil {
			s.logger.WithError(err).Warn("Training without historical outcomes")
			metrics.RecordDegradedSignal(signalOutcomes)
			return nil
		}
		in.outcomes = outcomes
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}

// PerformanceReport describes the evaluation of the served or last stored model
type PerformanceReport struct {
	ModelVersion string                             `json:"model_version"`
	TrainedAt    time.Time                          `json:"trained_at"`
	Source       string                             `json:"source"`
	Weights      map[string]float64                 `json:"weights,omitempty"`
	Performance  map[string]models.ModelPerformance `json:"performance"`
	Importance   []models.FeatureImportance         `json:"feature_importance,omitempty"`
}

// ModelPerformance returns the live model's evaluation, falling back to the
// latest stored artifact when nothing is loaded.
func (s *WinProbabilityService) ModelPerformance(ctx context.Context) (*PerformanceReport, error) {
	if ens := s.engine.Current(); ens != nil {
		return &PerformanceReport{
			ModelVersion: ens.Version(),
			TrainedAt:    ens.TrainedAt(),
			Source:       "live",
			Weights:      ens.Weights(),
			Performance:  ens.Performance(),
			Importance:   ens.Importance(),
		}, nil
	}

	if s.stores.Artifacts == nil {
		return nil, engine.ErrModelNotLoaded
	}
	artifact, err := s.stores.Artifacts.GetLatest(ctx)
	if isNotFound(err) {
		return nil, engine.ErrModelNotLoaded
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load model performance: %w", err)
	}
	return &PerformanceReport{
		ModelVersion: artifact.Version,
		TrainedAt:    artifact.TrainedAt,
		Source:       "stored",
		Performance:  artifact.Performance,
	}, nil
}
