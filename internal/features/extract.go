package features

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/yourusername/win-probability/internal/models"
)

// Input bundles everything needed to featurize one opportunity/bidder pair
type Input struct {
	Opportunity models.Opportunity
	History     []models.CompanyHistoryRecord
	Market      *models.MarketData
	Outcomes    []models.HistoricalOutcome
}

// Extract runs all four extractors and assembles the flat vector
func Extract(in Input) Vector {
	return Assemble(
		ExtractOpportunityFeatures(in.Opportunity),
		ExtractCompanyFeatures(in.Opportunity, in.History),
		ExtractCompetitiveFeatures(in.Opportunity, in.Market),
		ExtractHistoricalFeatures(in.Opportunity, in.Outcomes),
	)
}

// DataCoverage records how much optional data backed a vector
type DataCoverage struct {
	CompanyRecords    int
	AgencyRecords     int
	MarketAvailable   bool
	MarketAgencyKnown bool
	SimilarOutcomes   int
}

// Coverage inspects the optional inputs of a pair
func Coverage(in Input) DataCoverage {
	c := DataCoverage{
		CompanyRecords:  len(in.History),
		MarketAvailable: !in.Market.IsEmpty(),
	}
	for _, rec := range in.History {
		if models.SameAgency(rec.Agency, in.Opportunity.Agency) {
			c.AgencyRecords++
		}
	}
	_, c.MarketAgencyKnown = in.Market.Agency(in.Opportunity.Agency)
	for _, o := range in.Outcomes {
		if in.Opportunity.ID != "" && o.OpportunityID == in.Opportunity.ID {
			continue
		}
		if Similarity(in.Opportunity, o) > 0 {
			c.SimilarOutcomes++
		}
	}
	return c
}

// Completeness maps coverage onto [0,1]; each signal saturates at a fixed count
func (c DataCoverage) Completeness() float64 {
	parts := []float64{
		saturate(float64(c.CompanyRecords), 10),
		saturate(float64(c.AgencyRecords), 5),
		boolFeature(c.MarketAgencyKnown),
		saturate(float64(c.SimilarOutcomes), 10),
	}
	var sum float64
	for _, p := range parts {
		sum += p
	}
	return sum / float64(len(parts))
}

func saturate(v, at float64) float64 {
	if at <= 0 {
		return 0
	}
	return math.Min(1, math.Max(0, v/at))
}

func moneyValue(d decimal.Decimal) float64 {
	v := d.InexactFloat64()
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
