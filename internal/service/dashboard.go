package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/win-probability/internal/metrics"
	"github.com/yourusername/win-probability/internal/models"
)

const maxRiskThemes = 5

// RiskTheme counts how often a risk factor code appears in stored predictions
type RiskTheme struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// DashboardSummary aggregates the stored predictions of a recent window
type DashboardSummary struct {
	Since                 time.Time      `json:"since"`
	TotalPredictions      int            `json:"total_predictions"`
	DistinctBidders       int            `json:"distinct_bidders"`
	DistinctOpportunities int            `json:"distinct_opportunities"`
	AverageProbability    float64        `json:"average_probability"`
	AverageConfidence     float64        `json:"average_confidence"`
	Bands                 map[string]int `json:"bands"`
	TopRiskThemes         []RiskTheme    `json:"top_risk_themes"`
	ModelVersion          string         `json:"model_version,omitempty"`
}

// DashboardSummary summarizes predictions stored within the dashboard window
func (s *WinProbabilityService) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	start := time.Now()
	summary, err := s.dashboardSummary(ctx)
	metrics.RecordRequest("dashboard_summary", err, time.Since(start))
	return summary, err
}

func (s *WinProbabilityService) dashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	if s.stores.Predictions == nil {
		return nil, fmt.Errorf("predictions: %w", ErrStoreNotConfigured)
	}

	since := s.now().Add(-s.opts.DashboardWindow).UTC()
	preds, err := s.stores.Predictions.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	summary := Summarize(preds)
	summary.Since = since
	summary.ModelVersion = s.engine.ModelVersion()
	return summary, nil
}

// Summarize aggregates a set of predictions
func Summarize(preds []models.WinPrediction) *DashboardSummary {
	summary := &DashboardSummary{
		TotalPredictions: len(preds),
		Bands:            map[string]int{BandHigh: 0, BandMedium: 0, BandLow: 0},
		TopRiskThemes:    []RiskTheme{},
	}
	if len(preds) == 0 {
		return summary
	}

	bidders := make(map[string]struct{})
	opportunities := make(map[string]struct{})
	themes := make(map[string]int)
	var probSum, confSum float64

	for i := range preds {
		p := &preds[i]
		bidders[p.BidderID] = struct{}{}
		opportunities[p.OpportunityID] = struct{}{}
		probSum += p.WinProbability
		confSum += p.ConfidenceScore
		summary.Bands[Band(p.WinProbability)]++
		for _, code := range p.RiskCodes() {
			themes[code]++
		}
	}

	n := float64(len(preds))
	summary.DistinctBidders = len(bidders)
	summary.DistinctOpportunities = len(opportunities)
	summary.AverageProbability = probSum / n
	summary.AverageConfidence = confSum / n

	for code, count := range themes {
		summary.TopRiskThemes = append(summary.TopRiskThemes, RiskTheme{Code: code, Count: count})
	}
	sort.Slice(summary.TopRiskThemes, func(i, j int) bool {
		a, b := summary.TopRiskThemes[i], summary.TopRiskThemes[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Code < b.Code
	})
	if len(summary.TopRiskThemes) > maxRiskThemes {
		summary.TopRiskThemes = summary.TopRiskThemes[:maxRiskThemes]
	}
	return summary
}
