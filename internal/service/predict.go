package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/win-probability/internal/engine"
	"github.com/yourusername/win-probability/internal/metrics"
	"github.com/yourusername/win-probability/internal/ml"
	"github.com/yourusername/win-probability/internal/models"
)

// BatchEntry is the outcome of one pair of a batch, in input position
type BatchEntry struct {
	Pair       models.PredictionPair `json:"pair"`
	Prediction *models.WinPrediction `json:"prediction,omitempty"`
	Err        error                 `json:"-"`
}

// Error returns the entry's error text, or "" on success
func (b BatchEntry) Error() string {
	if b.Err == nil {
		return ""
	}
	return b.Err.Error()
}

// RankedOpportunity is one open opportunity scored for a bidder
type RankedOpportunity struct {
	Opportunity models.Opportunity    `json:"opportunity"`
	Prediction  *models.WinPrediction `json:"prediction"`
}

// Predict scores one opportunity for one bidder
func (s *WinProbabilityService) Predict(ctx context.Context, opportunityID, bidderID string) (*models.WinPrediction, error) {
	start := time.Now()
	pred, err := s.predict(ctx, opportunityID, bidderID)
	metrics.RecordRequest("predict", err, time.Since(start))
	return pred, err
}

func (s *WinProbabilityService) predict(ctx context.Context, opportunityID, bidderID string) (*models.WinPrediction, error) {
	start := time.Now()
	if !s.engine.ModelLoaded() {
		s.mlLogger.LogPredictionError(opportunityID, bidderID, engine.ErrModelNotLoaded.Error())
		return nil, engine.ErrModelNotLoaded
	}
	if pred := s.cachedPrediction(ctx, opportunityID, bidderID); pred != nil {
		ml.MLPredictionsTotal.WithLabelValues("true").Inc()
		s.mlLogger.LogPredictionServed(opportunityID, bidderID, pred.ModelVersion, pred.WinProbability, pred.ConfidenceScore, true, elapsedMs(start))
		return pred, nil
	}

	in, err := s.gatherInput(ctx, opportunityID, bidderID)
	if err != nil {
		s.mlLogger.LogPredictionError(opportunityID, bidderID, err.Error())
		return nil, err
	}
	return s.score(ctx, in, true, start)
}

// score runs inference on a gathered input, caches the result and optionally persists it
func (s *WinProbabilityService) score(ctx context.Context, in engine.PairInput, persist bool, start time.Time) (*models.WinPrediction, error) {
	pred, err := s.engine.PredictWithContext(ctx, in)
	if err != nil {
		s.mlLogger.LogPredictionError(in.Opportunity.ID, in.BidderID, err.Error())
		return nil, err
	}

	s.cachePrediction(ctx, pred)
	if persist {
		s.persist(ctx, pred)
	}
	ml.MLPredictionsTotal.WithLabelValues("false").Inc()
	metrics.RecordPrediction(pred.WinProbability, pred.ConfidenceScore)
	s.mlLogger.LogPredictionServed(pred.OpportunityID, pred.BidderID, pred.ModelVersion, pred.WinProbability, pred.ConfidenceScore, false, elapsedMs(start))
	return pred, nil
}

// BatchPredict scores every pair independently. A failing pair yields an error
// entry and never aborts the rest of the batch.
func (s *WinProbabilityService) BatchPredict(ctx context.Context, pairs []models.PredictionPair) []BatchEntry {
	start := time.Now()
	entries := make([]BatchEntry, len(pairs))

	var g errgroup.Group
	g.SetLimit(s.opts.BatchWorkers)
	for i, pair := range pairs {
		i, pair := i, pair
		entries[i].Pair = pair
		g.Go(func() error {
			itemCtx := ctx
			if s.opts.ItemTimeout > 0 {
				var cancel context.CancelFunc
				itemCtx, cancel = context.WithTimeout(ctx, s.opts.ItemTimeout)
				defer cancel()
			}
			pred, err := s.predict(itemCtx, pair.OpportunityID, pair.BidderID)
			entries[i].Prediction = pred
			entries[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, e := range entries {
		if e.Err != nil {
			failed++
		}
	}
	s.logger.WithField("pairs", len(pairs)).WithField("failed", failed).Debug("Batch prediction completed")
	metrics.RecordRequest("batch_predict", nil, time.Since(start))
	return entries
}

// TopOpportunities scores every open opportunity for the bidder and returns the
// best limit of them by probability, ties broken by opportunity ID. Opportunities
// that fail to score are skipped. Results are not persisted.
func (s *WinProbabilityService) TopOpportunities(ctx context.Context, bidderID string, limit int) ([]RankedOpportunity, error) {
	start := time.Now()
	ranked, err := s.topOpportunities(ctx, bidderID, limit)
	metrics.RecordRequest("top_opportunities", err, time.Since(start))
	return ranked, err
}

func (s *WinProbabilityService) topOpportunities(ctx context.Context, bidderID string, limit int) ([]RankedOpportunity, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("%w: bidder id is required", models.ErrInvalidInput)
	}
	if !s.engine.ModelLoaded() {
		return nil, engine.ErrModelNotLoaded
	}
	if limit <= 0 {
		limit = s.opts.DefaultTopLimit
	}

	fctx, cancel := s.fetchContext(ctx)
	open, err := s.stores.Opportunities.ListOpen(fctx, s.now())
	cancel()
	if err != nil {
		return nil, fmt.Errorf("failed to list open opportunities: %w", err)
	}
	if len(open) == 0 {
		return []RankedOpportunity{}, nil
	}

	history := s.fetchHistory(ctx, "", bidderID)
	shared := s.fetchShared(ctx, "", bidderID)

	inputs := make([]engine.PairInput, len(open))
	for i, opp := range open {
		inputs[i] = engine.PairInput{
			BidderID:    bidderID,
			Opportunity: opp,
			History:     history,
			Market:      shared.market,
			Outcomes:    shared.outcomes,
		}
	}

	results := s.engine.BatchPredict(ctx, inputs, s.opts.BatchWorkers, s.opts.ItemTimeout)
	ranked := make([]RankedOpportunity, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			continue
		}
		s.cachePrediction(ctx, res.Prediction)
		ranked = append(ranked, RankedOpportunity{Opportunity: open[i], Prediction: res.Prediction})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := ranked[i].Prediction.WinProbability, ranked[j].Prediction.WinProbability
		if pi != pj {
			return pi > pj
		}
		return ranked[i].Opportunity.ID < ranked[j].Opportunity.ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// AnalyzeFactors attributes the pair's probability to individual features
func (s *WinProbabilityService) AnalyzeFactors(ctx context.Context, opportunityID, bidderID string) ([]engine.FactorContribution, error) {
	start := time.Now()
	factors, err := s.analyzeFactors(ctx, opportunityID, bidderID)
	metrics.RecordRequest("analyze_factors", err, time.Since(start))
	return factors, err
}

func (s *WinProbabilityService) analyzeFactors(ctx context.Context, opportunityID, bidderID string) ([]engine.FactorContribution, error) {
	if !s.engine.ModelLoaded() {
		return nil, engine.ErrModelNotLoaded
	}
	in, err := s.gatherInput(ctx, opportunityID, bidderID)
	if err != nil {
		return nil, err
	}
	return s.engine.AnalyzeFactors(in)
}
