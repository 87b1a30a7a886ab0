package features

import (
	"math"
	"unicode/utf8"

	"github.com/yourusername/win-probability/internal/models"
)

const (
	// HighValueThreshold marks opportunities above $1M as high value
	HighValueThreshold = 1_000_000.0
	// UrgentDaysThreshold marks response windows shorter than two weeks as urgent
	UrgentDaysThreshold = 14.0
	// DefaultDaysToRespond is used when either date is missing or inconsistent
	DefaultDaysToRespond = 30.0
)

// OpportunityFeatures describes the opportunity itself
type OpportunityFeatures struct {
	EstimatedValue    float64
	LogValue          float64
	DaysToRespond     float64
	KeywordCount      float64
	TitleLength       float64
	DescriptionLength float64
	IsHighValue       float64
	IsUrgent          float64
}

// Fields implements Group
func (f OpportunityFeatures) Fields() []Feature {
	return []Feature{
		{OpportunityEstimatedValue, f.EstimatedValue},
		{OpportunityLogValue, f.LogValue},
		{OpportunityDaysToRespond, f.DaysToRespond},
		{OpportunityKeywordCount, f.KeywordCount},
		{OpportunityTitleLength, f.TitleLength},
		{OpportunityDescriptionLength, f.DescriptionLength},
		{OpportunityIsHighValue, f.IsHighValue},
		{OpportunityIsUrgent, f.IsUrgent},
	}
}

// ExtractOpportunityFeatures derives value, timeline and text-size features
func ExtractOpportunityFeatures(opp models.Opportunity) OpportunityFeatures {
	value := moneyValue(opp.EstimatedValue)
	days := DaysToRespond(opp)

	return OpportunityFeatures{
		EstimatedValue:    value,
		LogValue:          math.Log1p(value),
		DaysToRespond:     days,
		KeywordCount:      float64(len(opp.NormalizedKeywords())),
		TitleLength:       float64(utf8.RuneCountInString(opp.Title)),
		DescriptionLength: float64(utf8.RuneCountInString(opp.Description)),
		IsHighValue:       boolFeature(value > HighValueThreshold),
		IsUrgent:          boolFeature(days < UrgentDaysThreshold),
	}
}

// DaysToRespond returns the response window in days, or the default when unknown
func DaysToRespond(opp models.Opportunity) float64 {
	if opp.PostedAt == nil || opp.ResponseDueAt == nil {
		return DefaultDaysToRespond
	}
	days := opp.ResponseDueAt.Sub(*opp.PostedAt).Hours() / 24
	if days < 0 || math.IsNaN(days) {
		return DefaultDaysToRespond
	}
	return days
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
