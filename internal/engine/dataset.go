package engine

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/win-probability/internal/features"
	"github.com/yourusername/win-probability/internal/models"
)

// Dataset is a labeled feature matrix in schema column order
type Dataset struct {
	Schema []string
	X      [][]float64
	Y      []float64
	Rows   []models.PredictionPair
}

// Positives returns the number of won rows
func (d *Dataset) Positives() int {
	n := 0
	for _, v := range d.Y {
		if v >= 0.5 {
			n++
		}
	}
	return n
}

// PrepareTrainingData builds one row per (bidder, opportunity) pair found in history
// for the given opportunities; the label is whether the bidder won it. When a bidder
// holds several records for one opportunity the latest award decides the label. Each row's features
// are computed from the bidder's history without any record of that opportunity,
// and outcomes of the opportunity itself are ignored.
func (e *Engine) PrepareTrainingData(
	opportunities []models.Opportunity,
	histories map[string][]models.CompanyHistoryRecord,
	market *models.MarketData,
	outcomes []models.HistoricalOutcome,
) (*Dataset, error) {
	byID := make(map[string]models.Opportunity, len(opportunities))
	for _, opp := range opportunities {
		if err := models.Validate(opp); err != nil {
			e.logger.WithError(err).WithField("title", opp.Title).Warn("Skipping opportunity without identifier")
			continue
		}
		byID[opp.ID] = opp
	}

	bidders := make([]string, 0, len(histories))
	for b := range histories {
		bidders = append(bidders, b)
	}
	sort.Strings(bidders)

	ds := &Dataset{Schema: features.Schema()}
	for _, bidderID := range bidders {
		history := histories[bidderID]
		for _, rec := range latestPerOpportunity(history, byID) {
			opp := byID[rec.OpportunityID]
			vec := features.Extract(features.Input{
				Opportunity: opp,
				History:     models.ExcludeOpportunity(history, opp.ID),
				Market:      market,
				Outcomes:    outcomes,
			})
			if err := vec.Validate(ds.Schema); err != nil {
				return nil, err
			}

			label := 0.0
			if rec.Won {
				label = 1
			}
			ds.X = append(ds.X, vec.Values())
			ds.Y = append(ds.Y, label)
			ds.Rows = append(ds.Rows, models.PredictionPair{OpportunityID: opp.ID, BidderID: bidderID})
		}
	}

	if len(ds.Y) < e.cfg.MinTrainingRows {
		return nil, fmt.Errorf("%w: %d labeled rows, need at least %d", ErrInsufficientData, len(ds.Y), e.cfg.MinTrainingRows)
	}
	if pos := ds.Positives(); pos == 0 || pos == len(ds.Y) {
		return nil, fmt.Errorf("%w: only one label class present", ErrInsufficientData)
	}

	e.logger.WithFields(logrus.Fields{
		"rows":      len(ds.Y),
		"positives": ds.Positives(),
		"bidders":   len(bidders),
	}).Info("Prepared training data")
	return ds, nil
}

// latestPerOpportunity keeps the most recently awarded record of each known
// opportunity, in first-seen order.
func latestPerOpportunity(history []models.CompanyHistoryRecord, known map[string]models.Opportunity) []models.CompanyHistoryRecord {
	index := make(map[string]int)
	var out []models.CompanyHistoryRecord
	for _, rec := range history {
		if _, ok := known[rec.OpportunityID]; !ok {
			continue
		}
		i, seen := index[rec.OpportunityID]
		if !seen {
			index[rec.OpportunityID] = len(out)
			out = append(out, rec)
			continue
		}
		if rec.AwardedAt.After(out[i].AwardedAt) {
			out[i] = rec
		}
	}
	return out
}
