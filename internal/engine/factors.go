package engine

import (
	"sort"

	"github.com/yourusername/win-probability/internal/features"
	"github.com/yourusername/win-probability/internal/ml"
	"github.com/yourusername/win-probability/internal/models"
)

// FactorKind separates risks from success factors
type FactorKind int

const (
	Risk FactorKind = iota
	Success
)

// Rule is one row of the explanation table: when the condition holds over the
// vector, the factor is reported.
type Rule struct {
	Code     string
	Feature  string
	Kind     FactorKind
	Severity models.Severity
	Text     string
	When     func(v features.Vector) bool
}

// Rules is the factor table, evaluated in full for every prediction
var Rules = []Rule{
	{
		Code: "no_agency_experience", Feature: features.CompanyAgencyExperience, Kind: Risk, Severity: models.SeverityHigh,
		Text: "No relevant agency experience: the bidder has no recorded contracts with this agency",
		When: func(v features.Vector) bool { return v.Value(features.CompanyAgencyExperience) == 0 },
	},
	{
		Code: "low_agency_win_rate", Feature: features.CompanyAgencyWinRate, Kind: Risk, Severity: models.SeverityMedium,
		Text: "Low historical win rate with this agency",
		When: func(v features.Vector) bool {
			return v.Value(features.CompanyAgencyExperience) >= 3 && v.Value(features.CompanyAgencyWinRate) < 0.25
		},
	},
	{
		Code: "low_overall_win_rate", Feature: features.CompanyWinRate, Kind: Risk, Severity: models.SeverityMedium,
		Text: "Low overall win rate across past bids",
		When: func(v features.Vector) bool { return bidCount(v) >= 5 && v.Value(features.CompanyWinRate) < 0.25 },
	},
	{
		Code: "urgent_timeline", Feature: features.OpportunityIsUrgent, Kind: Risk, Severity: models.SeverityHigh,
		Text: "Urgent timeline: fewer than 14 days to respond",
		When: func(v features.Vector) bool { return v.Value(features.OpportunityIsUrgent) == 1 },
	},
	{
		Code: "high_contract_value", Feature: features.OpportunityIsHighValue, Kind: Risk, Severity: models.SeverityMedium,
		Text: "High contract value above $1M draws stronger competition",
		When: func(v features.Vector) bool { return v.Value(features.OpportunityIsHighValue) == 1 },
	},
	{
		Code: "capacity_stretch", Feature: features.CompanyCapacityRatio, Kind: Risk, Severity: models.SeverityHigh,
		Text: "Opportunity value is more than twice the bidder's largest past contract",
		When: func(v features.Vector) bool { return v.Value(features.CompanyCapacityRatio) > 2 },
	},
	{
		Code: "crowded_field", Feature: features.CompetitiveAgencyCompetitors, Kind: Risk, Severity: models.SeverityMedium,
		Text: "Crowded competitive field at this agency",
		When: func(v features.Vector) bool { return v.Value(features.CompetitiveAgencyCompetitors) >= 8 },
	},
	{
		Code: "weak_keyword_alignment", Feature: features.CompanyKeywordAlignment, Kind: Risk, Severity: models.SeverityLow,
		Text: "Little overlap between the opportunity keywords and past work",
		When: func(v features.Vector) bool {
			return v.Value(features.OpportunityKeywordCount) > 0 && v.Value(features.CompanyKeywordAlignment) < 0.25
		},
	},
	{
		Code: "contested_keywords", Feature: features.CompetitiveKeywordScore, Kind: Risk, Severity: models.SeverityLow,
		Text: "Opportunity keywords are heavily contested",
		When: func(v features.Vector) bool { return v.Value(features.CompetitiveKeywordScore) > 0.7 },
	},
	{
		Code: "poor_similar_outcomes", Feature: features.HistoricalWinRate, Kind: Risk, Severity: models.SeverityLow,
		Text: "Similar past opportunities were rarely won",
		When: func(v features.Vector) bool {
			return v.Value(features.HistoricalSimilarCount) >= 3 && v.Value(features.HistoricalWinRate) < 0.2
		},
	},
	{
		Code: "strong_agency_win_rate", Feature: features.CompanyAgencyWinRate, Kind: Success, Severity: models.SeverityHigh,
		Text: "Strong historical win rate with this agency",
		When: func(v features.Vector) bool {
			return v.Value(features.CompanyAgencyExperience) >= 3 && v.Value(features.CompanyAgencyWinRate) >= 0.6
		},
	},
	{
		Code: "deep_agency_experience", Feature: features.CompanyAgencyExperience, Kind: Success, Severity: models.SeverityMedium,
		Text: "Extensive prior work with this agency",
		When: func(v features.Vector) bool { return v.Value(features.CompanyAgencyExperience) >= 5 },
	},
	{
		Code: "strong_overall_win_rate", Feature: features.CompanyWinRate, Kind: Success, Severity: models.SeverityMedium,
		Text: "Strong overall win rate across past bids",
		When: func(v features.Vector) bool { return bidCount(v) >= 5 && v.Value(features.CompanyWinRate) >= 0.6 },
	},
	{
		Code: "keyword_alignment", Feature: features.CompanyKeywordAlignment, Kind: Success, Severity: models.SeverityMedium,
		Text: "Past work closely matches the opportunity keywords",
		When: func(v features.Vector) bool { return v.Value(features.CompanyKeywordAlignment) >= 0.6 },
	},
	{
		Code: "comfortable_timeline", Feature: features.OpportunityDaysToRespond, Kind: Success, Severity: models.SeverityLow,
		Text: "Comfortable response timeline of 30 days or more",
		When: func(v features.Vector) bool { return v.Value(features.OpportunityDaysToRespond) >= 30 },
	},
	{
		Code: "within_capacity", Feature: features.CompanyCapacityRatio, Kind: Success, Severity: models.SeverityLow,
		Text: "Opportunity is within the bidder's demonstrated contract size",
		When: func(v features.Vector) bool {
			return v.Value(features.CompanyMaxContractValue) > 0 && v.Value(features.CompanyCapacityRatio) <= 1
		},
	},
	{
		Code: "light_competition", Feature: features.CompetitiveAgencyCompetitors, Kind: Success, Severity: models.SeverityMedium,
		Text: "Light competition at this agency",
		When: func(v features.Vector) bool { return v.Value(features.CompetitiveAgencyCompetitors) <= 3 },
	},
	{
		Code: "favorable_similar_outcomes", Feature: features.HistoricalWinRate, Kind: Success, Severity: models.SeverityLow,
		Text: "Similar past opportunities were often won",
		When: func(v features.Vector) bool {
			return v.Value(features.HistoricalSimilarCount) >= 3 && v.Value(features.HistoricalWinRate) >= 0.5
		},
	},
}

// Degraded-signal notes, appended to the risks after the ranked rules
const (
	NoteLimitedHistory    = "limited_bidder_history"
	NoteNoMarketData      = "no_market_data_for_agency"
	NoteNoSimilarOutcomes = "no_similar_outcomes"
)

const limitedHistoryRecords = 3

func bidCount(v features.Vector) float64 {
	return v.Value(features.CompanyTotalWins) + v.Value(features.CompanyTotalLosses)
}

// explain evaluates the rule table and ranks fired factors by the ensemble
// importance of their feature, then severity, then code.
func explain(v features.Vector, ens *ml.Ensemble, cov features.DataCoverage) (risks, successes []models.Factor) {
	for _, r := range Rules {
		if !r.When(v) {
			continue
		}
		f := models.Factor{
			Code:     r.Code,
			Feature:  r.Feature,
			Text:     r.Text,
			Severity: r.Severity,
			Weight:   ens.ImportanceOf(r.Feature),
		}
		if r.Kind == Risk {
			risks = append(risks, f)
		} else {
			successes = append(successes, f)
		}
	}
	rankFactors(risks)
	rankFactors(successes)

	risks = append(risks, degradedNotes(cov)...)
	if successes == nil {
		successes = []models.Factor{}
	}
	if risks == nil {
		risks = []models.Factor{}
	}
	return risks, successes
}

func rankFactors(fs []models.Factor) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Weight != fs[j].Weight {
			return fs[i].Weight > fs[j].Weight
		}
		if ri, rj := fs[i].Severity.Rank(), fs[j].Severity.Rank(); ri != rj {
			return ri > rj
		}
		return fs[i].Code < fs[j].Code
	})
}

func degradedNotes(cov features.DataCoverage) []models.Factor {
	var notes []models.Factor
	if cov.CompanyRecords < limitedHistoryRecords {
		notes = append(notes, models.Factor{
			Code:     NoteLimitedHistory,
			Text:     "Limited historical data available for this bidder",
			Severity: models.SeverityLow,
		})
	}
	if !cov.MarketAgencyKnown {
		notes = append(notes, models.Factor{
			Code:     NoteNoMarketData,
			Text:     "No market data for this agency; competitive defaults used",
			Severity: models.SeverityLow,
		})
	}
	if cov.SimilarOutcomes == 0 {
		notes = append(notes, models.Factor{
			Code:     NoteNoSimilarOutcomes,
			Text:     "No similar historical outcomes found",
			Severity: models.SeverityLow,
		})
	}
	return notes
}
