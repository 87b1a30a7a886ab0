package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Severity grades how strongly a factor should be weighed by a reader
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities so that high sorts first
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Factor is a human-readable explanation tied to an influential feature
type Factor struct {
	Code     string   `json:"code"`
	Feature  string   `json:"feature,omitempty"`
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
	Weight   float64  `json:"weight"`
}

// WinPrediction represents a win probability estimate for an opportunity/bidder pair
type WinPrediction struct {
	ID              uuid.UUID          `db:"id" json:"id"`
	OpportunityID   string             `db:"opportunity_id" json:"opportunity_id" validate:"required"`
	BidderID        string             `db:"bidder_id" json:"bidder_id" validate:"required"`
	WinProbability  float64            `db:"win_probability" json:"win_probability" validate:"gte=0,lte=1"`
	ConfidenceScore float64            `db:"confidence_score" json:"confidence_score" validate:"gte=0,lte=1"`
	RiskFactors     []Factor           `db:"risk_factors" json:"risk_factors"`
	SuccessFactors  []Factor           `db:"success_factors" json:"success_factors"`
	ModelVersion    string             `db:"model_version" json:"model_version"`
	Features        map[string]float64 `db:"features" json:"features,omitempty"`
	PredictedAt     time.Time          `db:"predicted_at" json:"predicted_at"`
}

// Pair returns the opportunity/bidder key of the prediction
func (p *WinPrediction) Pair() PredictionPair {
	return PredictionPair{OpportunityID: p.OpportunityID, BidderID: p.BidderID}
}

// RiskCodes returns the codes of all risk factors in rank order
func (p *WinPrediction) RiskCodes() []string {
	codes := make([]string, 0, len(p.RiskFactors))
	for _, f := range p.RiskFactors {
		codes = append(codes, f.Code)
	}
	return codes
}

// FeaturesJSON encodes the feature snapshot for storage
func (p *WinPrediction) FeaturesJSON() (json.RawMessage, error) {
	if p.Features == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(p.Features)
}

// MeetsThreshold checks if the confidence meets the given threshold
func (p *WinPrediction) MeetsThreshold(threshold float64) bool {
	return p.ConfidenceScore >= threshold
}

// PredictionPair identifies one opportunity/bidder combination
type PredictionPair struct {
	OpportunityID string `json:"opportunity_id" validate:"required"`
	BidderID      string `json:"bidder_id" validate:"required"`
}

// String returns the pair as "opportunity:bidder"
func (p PredictionPair) String() string {
	return p.OpportunityID + ":" + p.BidderID
}
