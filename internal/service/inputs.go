package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/win-probability/internal/engine"
	"github.com/yourusername/win-probability/internal/metrics"
	"github.com/yourusername/win-probability/internal/models"
)

// Optional signals. A failure of any of these degrades the prediction instead of failing it.
const (
	signalHistory  = "company_history"
	signalMarket   = "market_data"
	signalOutcomes = "historical_outcomes"
)

// sharedInputs are the bidder independent reads reused across a batch
type sharedInputs struct {
	market   *models.MarketData
	outcomes []models.HistoricalOutcome
}

// gatherInput fetches the four inputs of one pair concurrently. Only the
// opportunity read can fail the call.
func (s *WinProbabilityService) gatherInput(ctx context.Context, opportunityID, bidderID string) (engine.PairInput, error) {
	if strings.TrimSpace(opportunityID) == "" || strings.TrimSpace(bidderID) == "" {
		return engine.PairInput{}, fmt.Errorf("%w: opportunity id and bidder id are required", models.ErrInvalidInput)
	}

	in := engine.PairInput{BidderID: bidderID}
	var shared sharedInputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fctx, cancel := s.fetchContext(gctx)
		defer cancel()
		opp, err := s.stores.Opportunities.GetByID(fctx, opportunityID)
		if err != nil {
			return fmt.Errorf("opportunity %s: %w", opportunityID, err)
		}
		if opp == nil {
			return fmt.Errorf("opportunity %s: %w", opportunityID, models.ErrNotFound)
		}
		in.Opportunity = *opp
		return nil
	})
	g.Go(func() error {
		in.History = s.fetchHistory(gctx, opportunityID, bidderID)
		return nil
	})
	g.Go(func() error {
		shared = s.fetchShared(gctx, opportunityID, bidderID)
		return nil
	})

	if err := g.Wait(); err != nil {
		return engine.PairInput{}, err
	}
	in.Market = shared.market
	in.Outcomes = shared.outcomes
	return in, nil
}

// fetchShared loads the market snapshot and recent outcomes concurrently
func (s *WinProbabilityService) fetchShared(ctx context.Context, opportunityID, bidderID string) sharedInputs {
	var shared sharedInputs
	var g errgroup.Group

	g.Go(func() error {
		fctx, cancel := s.fetchContext(ctx)
		defer cancel()
		market, err := s.marketSnapshot(fctx)
		if err != nil {
			s.degraded(opportunityID, bidderID, signalMarket, err)
			return nil
		}
		shared.market = market
		return nil
	})
	g.Go(func() error {
		fctx, cancel := s.fetchContext(ctx)
		defer cancel()
		outcomes, err := s.stores.Outcomes.ListRecent(fctx, s.opts.OutcomeLimit)
		if err != nil {
			s.degraded(opportunityID, bidderID, signalOutcomes, err)
			return nil
		}
		shared.outcomes = outcomes
		return nil
	})

	_ = g.Wait()
	return shared
}

func (s *WinProbabilityService) fetchHistory(ctx context.Context, opportunityID, bidderID string) []models.CompanyHistoryRecord {
	fctx, cancel := s.fetchContext(ctx)
	defer cancel()
	history, err := s.stores.History.GetByBidder(fctx, bidderID)
	if err != nil {
		s.degraded(opportunityID, bidderID, signalHistory, err)
		return nil
	}
	return history
}

func (s *WinProbabilityService) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.FetchTimeout)
}

// degraded reports an optional signal that could not be loaded. Fetches cancelled
// because the required opportunity read already failed are not reported.
func (s *WinProbabilityService) degraded(opportunityID, bidderID, signal string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.mlLogger.LogDegradedSignal(opportunityID, bidderID, signal, err)
	metrics.RecordDegradedSignal(signal)
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
