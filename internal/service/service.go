// Package service exposes win probability predictions over the stored opportunity,
// bidder, market and outcome data.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/win-probability/internal/engine"
	"github.com/yourusername/win-probability/internal/logger"
	"github.com/yourusername/win-probability/internal/metrics"
	"github.com/yourusername/win-probability/internal/ml"
	"github.com/yourusername/win-probability/internal/models"
	"github.com/yourusername/win-probability/internal/repository"
)

const marketSnapshotKey = "market_snapshot"

// Health states
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Stores groups the data access the service reads and writes.
// Predictions, Artifacts and MarketArchive may be nil.
type Stores struct {
	Opportunities repository.OpportunityRepository
	History       repository.CompanyHistoryRepository
	Market        repository.MarketDataRepository
	Outcomes      repository.HistoricalOutcomeRepository
	Predictions   repository.PredictionRepository
	Artifacts     repository.ModelArtifactRepository
	MarketArchive repository.MarketDataArchive
}

// Options tunes serving behavior
type Options struct {
	FetchTimeout       time.Duration
	ItemTimeout        time.Duration
	BatchWorkers       int
	OutcomeLimit       int
	DashboardWindow    time.Duration
	DefaultTopLimit    int
	PersistPredictions bool
	SnapshotTTL        time.Duration
}

// DefaultOptions returns the serving defaults
func DefaultOptions() Options {
	return Options{
		FetchTimeout:       3 * time.Second,
		ItemTimeout:        5 * time.Second,
		BatchWorkers:       8,
		OutcomeLimit:       2000,
		DashboardWindow:    30 * 24 * time.Hour,
		DefaultTopLimit:    10,
		PersistPredictions: true,
		SnapshotTTL:        6 * time.Hour,
	}
}

// WinProbabilityService is the application surface over the engine
type WinProbabilityService struct {
	engine      *engine.Engine
	stores      Stores
	opts        Options
	predictions *ml.PredictionCache
	snapshots   *cache.Cache
	logger      *logrus.Logger
	mlLogger    *logger.MLLogger
	auditLogger *logger.AuditLogger
	trainMu     sync.Mutex
	now         func() time.Time
}

// NewWinProbabilityService creates a new service. A nil prediction cache disables caching.
func NewWinProbabilityService(
	eng *engine.Engine,
	stores Stores,
	predictionCache *ml.PredictionCache,
	opts Options,
	log *logrus.Logger,
) *WinProbabilityService {
	defaults := DefaultOptions()
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaults.FetchTimeout
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = defaults.BatchWorkers
	}
	if opts.OutcomeLimit <= 0 {
		opts.OutcomeLimit = defaults.OutcomeLimit
	}
	if opts.DashboardWindow <= 0 {
		opts.DashboardWindow = defaults.DashboardWindow
	}
	if opts.DefaultTopLimit <= 0 {
		opts.DefaultTopLimit = defaults.DefaultTopLimit
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaults.SnapshotTTL
	}

	return &WinProbabilityService{
		engine:      eng,
		stores:      stores,
		opts:        opts,
		predictions: predictionCache,
		snapshots:   cache.New(opts.SnapshotTTL, opts.SnapshotTTL),
		logger:      log,
		mlLogger:    logger.NewMLLogger(log),
		auditLogger: logger.NewAuditLogger(log),
		now:         time.Now,
	}
}

// Engine returns the underlying engine
func (s *WinProbabilityService) Engine() *engine.Engine {
	return s.engine
}

// HealthStatus reports whether the service can serve predictions
type HealthStatus struct {
	Status        string     `json:"status"`
	ModelLoaded   bool       `json:"model_loaded"`
	ModelVersion  string     `json:"model_version,omitempty"`
	LastTrainedAt *time.Time `json:"last_trained_at,omitempty"`
	CacheEntries  int        `json:"cache_entries"`
	CacheHitRatio float64    `json:"cache_hit_ratio"`
}

// Health reports model availability. Without a model the service is degraded, not down.
func (s *WinProbabilityService) Health(ctx context.Context) HealthStatus {
	h := HealthStatus{Status: StatusDegraded}
	if ens := s.engine.Current(); ens != nil {
		trainedAt := ens.TrainedAt()
		h.Status = StatusOK
		h.ModelLoaded = true
		h.ModelVersion = ens.Version()
		h.LastTrainedAt = &trainedAt
	}
	if s.predictions != nil {
		h.CacheEntries = s.predictions.ItemCount()
		_, _, h.CacheHitRatio = s.predictions.Stats()
	}
	return h
}

// LoadActiveModel installs the active stored artifact
func (s *WinProbabilityService) LoadActiveModel(ctx context.Context) error {
	if s.stores.Artifacts == nil {
		return fmt.Errorf("model artifacts: %w", ErrStoreNotConfigured)
	}

	artifact, err := s.stores.Artifacts.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active model: %w", err)
	}

	ens, err := ml.DecodeEnsemble(artifact.Payload)
	if err != nil {
		return fmt.Errorf("failed to decode model %s: %w", artifact.Version, err)
	}
	if err := s.engine.LoadEnsemble(ens); err != nil {
		return fmt.Errorf("failed to install model %s: %w", artifact.Version, err)
	}

	metrics.UpdateModelState(true, ens.TrainedAt())
	s.auditLogger.LogModelLoaded(ens.Version(), "model_artifacts")
	return nil
}

// RefreshMarketData reloads the market snapshot from its source. The previous
// snapshot stays in use when the reload fails.
func (s *WinProbabilityService) RefreshMarketData(ctx context.Context) (*models.MarketData, error) {
	start := time.Now()
	snapshot, err := s.stores.Market.GetSnapshot(ctx)
	if err == nil && snapshot == nil {
		err = fmt.Errorf("market snapshot: %w", models.ErrNotFound)
	}
	if err != nil {
		metrics.RecordMarketRefresh(err, time.Time{})
		metrics.RecordRequest("refresh_market_data", err, time.Since(start))
		return nil, fmt.Errorf("failed to refresh market data: %w", err)
	}

	s.snapshots.SetDefault(marketSnapshotKey, snapshot)
	metrics.RecordMarketRefresh(nil, snapshot.RefreshedAt)
	metrics.RecordRequest("refresh_market_data", nil, time.Since(start))

	if s.stores.MarketArchive != nil {
		if err := s.stores.MarketArchive.SaveSnapshot(ctx, snapshot); err != nil {
			s.logger.WithError(err).Warn("Failed to archive market snapshot")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"agencies":     len(snapshot.Agencies),
		"keywords":     len(snapshot.KeywordScores),
		"refreshed_at": snapshot.RefreshedAt,
	}).Info("Market snapshot refreshed")
	return snapshot, nil
}

// marketSnapshot returns the cached snapshot, reloading it after expiry
func (s *WinProbabilityService) marketSnapshot(ctx context.Context) (*models.MarketData, error) {
	if cached, ok := s.snapshots.Get(marketSnapshotKey); ok {
		if snapshot, ok := cached.(*models.MarketData); ok {
			return snapshot, nil
		}
	}
	return s.RefreshMarketData(ctx)
}

// cachedPrediction returns a copy of the cached prediction for the pair under the live model
func (s *WinProbabilityService) cachedPrediction(ctx context.Context, opportunityID, bidderID string) *models.WinPrediction {
	version := s.engine.ModelVersion()
	if s.predictions == nil || version == "" {
		return nil
	}
	pred := s.predictions.Get(ctx, ml.CacheKey{OpportunityID: opportunityID, BidderID: bidderID, ModelVersion: version})
	if pred == nil {
		return nil
	}
	out := *pred
	return &out
}

func (s *WinProbabilityService) cachePrediction(ctx context.Context, pred *models.WinPrediction) {
	if s.predictions == nil {
		return
	}
	stored := *pred
	s.predictions.Set(ctx, ml.CacheKey{
		OpportunityID: pred.OpportunityID,
		BidderID:      pred.BidderID,
		ModelVersion:  pred.ModelVersion,
	}, &stored)
}

// persist upserts the prediction. A storage failure is logged and does not
// fail the request.
func (s *WinProbabilityService) persist(ctx context.Context, pred *models.WinPrediction) {
	if !s.opts.PersistPredictions || s.stores.Predictions == nil {
		return
	}
	err := s.stores.Predictions.Upsert(ctx, pred)
	metrics.RecordPredictionPersisted(err)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"opportunity_id": pred.OpportunityID,
			"bidder_id":      pred.BidderID,
		}).Error("Failed to persist prediction")
		return
	}
	s.auditLogger.LogPredictionPersisted(pred.ID.String(), pred.OpportunityID, pred.BidderID, pred.ModelVersion, pred.WinProbability, pred.PredictedAt)
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
