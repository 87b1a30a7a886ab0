package features

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/win-probability/internal/models"
)

func timePtr(t time.Time) *time.Time { return &t }

func sampleOpportunity() models.Opportunity {
	posted := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	return models.Opportunity{
		ID:             "opp-1",
		Title:          "Cloud migration",
		Description:    "Migrate legacy systems",
		Agency:         "Department of Energy",
		EstimatedValue: decimal.NewFromInt(500_000),
		PostedAt:       timePtr(posted),
		ResponseDueAt:  timePtr(posted.AddDate(0, 0, 45)),
		Keywords:       []string{"cloud", "Migration", "cloud"},
	}
}

// TestExtractOpportunityFeatures tests value, timeline and flag derivation
func TestExtractOpportunityFeatures(t *testing.T) {
	f := ExtractOpportunityFeatures(sampleOpportunity())

	assert.Equal(t, 500_000.0, f.EstimatedValue)
	assert.InDelta(t, 13.122, f.LogValue, 0.001)
	assert.InDelta(t, 45.0, f.DaysToRespond, 1e-9)
	assert.Equal(t, 2.0, f.KeywordCount)
	assert.Equal(t, 15.0, f.TitleLength)
	assert.Equal(t, 0.0, f.IsHighValue)
	assert.Equal(t, 0.0, f.IsUrgent)
}

// TestDaysToRespondDefaults tests the fallback for missing or inverted dates
func TestDaysToRespondDefaults(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		opp  models.Opportunity
		want float64
	}{
		{"no dates", models.Opportunity{ID: "a"}, DefaultDaysToRespond},
		{"no due date", models.Opportunity{ID: "a", PostedAt: timePtr(now)}, DefaultDaysToRespond},
		{"due before posted", models.Opportunity{ID: "a", PostedAt: timePtr(now), ResponseDueAt: timePtr(now.AddDate(0, 0, -3))}, DefaultDaysToRespond},
		{"urgent", models.Opportunity{ID: "a", PostedAt: timePtr(now), ResponseDueAt: timePtr(now.AddDate(0, 0, 7))}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DaysToRespond(tt.opp), 1e-9)
		})
	}
}

// TestHighValueAndUrgentFlags tests the fixed thresholds
func TestHighValueAndUrgentFlags(t *testing.T) {
	opp := sampleOpportunity()
	opp.EstimatedValue = decimal.NewFromInt(3_000_000)
	opp.ResponseDueAt = timePtr(opp.PostedAt.AddDate(0, 0, 7))

	f := ExtractOpportunityFeatures(opp)
	assert.Equal(t, 1.0, f.IsHighValue)
	assert.Equal(t, 1.0, f.IsUrgent)
}

// TestExtractCompanyFeaturesEmptyHistory tests the neutral default for new bidders
func TestExtractCompanyFeaturesEmptyHistory(t *testing.T) {
	f := ExtractCompanyFeatures(sampleOpportunity(), nil)
	assert.Equal(t, CompanyFeatures{}, f)
}

// TestExtractCompanyFeatures tests aggregation over bidder history
func TestExtractCompanyFeatures(t *testing.T) {
	history := []models.CompanyHistoryRecord{
		{BidderID: "b", Agency: "department of energy", ContractValue: decimal.NewFromInt(250_000), Won: true, Keywords: []string{"cloud"}},
		{BidderID: "b", Agency: "Department of Energy", ContractValue: decimal.NewFromInt(100_000), Won: false},
		{BidderID: "b", Agency: "NASA", ContractValue: decimal.NewFromInt(50_000), Won: true, Keywords: []string{"security"}},
	}

	f := ExtractCompanyFeatures(sampleOpportunity(), history)

	assert.Equal(t, 2.0, f.TotalWins)
	assert.Equal(t, 1.0, f.TotalLosses)
	assert.InDelta(t, 2.0/3.0, f.WinRate, 1e-9)
	assert.Equal(t, 2.0, f.AgencyExperience)
	assert.InDelta(t, 0.5, f.AgencyWinRate, 1e-9)
	assert.Equal(t, 250_000.0, f.MaxContractValue)
	assert.InDelta(t, 2.0, f.CapacityRatio, 1e-9)
	assert.InDelta(t, 0.5, f.KeywordAlignment, 1e-9)
}

// TestCapacityRatioCapped tests the upper bound on capacity ratio
func TestCapacityRatioCapped(t *testing.T) {
	opp := sampleOpportunity()
	opp.EstimatedValue = decimal.NewFromInt(50_000_000)
	history := []models.CompanyHistoryRecord{{BidderID: "b", ContractValue: decimal.NewFromInt(1_000), Won: true}}

	f := ExtractCompanyFeatures(opp, history)
	assert.Equal(t, MaxCapacityRatio, f.CapacityRatio)
}

// TestBucketFor tests value bucket thresholds
func TestBucketFor(t *testing.T) {
	assert.Equal(t, BucketMicro, BucketFor(9_999))
	assert.Equal(t, BucketSmall, BucketFor(10_000))
	assert.Equal(t, BucketMedium, BucketFor(500_000))
	assert.Equal(t, BucketLarge, BucketFor(3_000_000))
	assert.Equal(t, BucketMega, BucketFor(10_000_000))
	assert.Equal(t, "large", BucketLarge.String())
}

// TestExtractCompetitiveFeaturesDefaults tests behavior without a market snapshot
func TestExtractCompetitiveFeaturesDefaults(t *testing.T) {
	f := ExtractCompetitiveFeatures(sampleOpportunity(), nil)

	assert.Equal(t, DefaultAgencyCompetitors, f.AgencyCompetitors)
	assert.Equal(t, DefaultWinRateVariance, f.AgencyWinRateVariance)
	assert.Equal(t, 0.0, f.AgencyContractFrequency)
	assert.Equal(t, float64(BucketMedium), f.ValueBucket)
	assert.Equal(t, 5.0, f.BucketCompetitors)
	assert.Equal(t, 0.3, f.BucketSmallBusinessRate)
	assert.Equal(t, DefaultKeywordScore, f.KeywordScore)
	assert.Equal(t, DefaultSeasonalMultiplier, f.SeasonalMultiplier)
}

// TestExtractCompetitiveFeatures tests lookups against a market snapshot
func TestExtractCompetitiveFeatures(t *testing.T) {
	market := &models.MarketData{
		Agencies: map[string]models.AgencyStats{
			"Department of Energy": {AvgCompetitors: 8, WinRateVariance: 0.1, ContractsPerMonth: 12},
		},
		Buckets:         map[string]models.BucketStats{"medium": {AvgCompetitors: 6.5, SmallBusinessRate: 0.25}},
		KeywordScores:   map[string]float64{"cloud": 0.9},
		SeasonalByMonth: map[int]float64{3: 1.2},
	}

	f := ExtractCompetitiveFeatures(sampleOpportunity(), market)

	assert.Equal(t, 8.0, f.AgencyCompetitors)
	assert.Equal(t, 0.1, f.AgencyWinRateVariance)
	assert.Equal(t, 12.0, f.AgencyContractFrequency)
	assert.Equal(t, 6.5, f.BucketCompetitors)
	assert.Equal(t, 0.25, f.BucketSmallBusinessRate)
	assert.InDelta(t, 0.7, f.KeywordScore, 1e-9)
	assert.Equal(t, 1.2, f.SeasonalMultiplier)
}

// TestExtractHistoricalFeatures tests similarity weighting and self-exclusion
func TestExtractHistoricalFeatures(t *testing.T) {
	opp := sampleOpportunity()
	outcomes := []models.HistoricalOutcome{
		{OpportunityID: "h1", Agency: "Department of Energy", Won: true, CompetitorCount: 4, TimelineDays: 40, Keywords: []string{"cloud", "migration"}},
		{OpportunityID: "h2", Agency: "NASA", Won: false, CompetitorCount: 10, TimelineDays: 20, Keywords: []string{"cloud"}},
		{OpportunityID: "h3", Agency: "NASA", Won: true, CompetitorCount: 2, TimelineDays: 10, Keywords: []string{"space"}},
		{OpportunityID: opp.ID, Agency: opp.Agency, Won: true, CompetitorCount: 1, TimelineDays: 1, Keywords: opp.Keywords},
	}

	f := ExtractHistoricalFeatures(opp, outcomes)

	// h1 weighs 1.0, h2 weighs 0.25, h3 does not match and the opportunity itself is skipped
	assert.Equal(t, 2.0, f.SimilarCount)
	assert.InDelta(t, 1.25, f.SimilarityMass, 1e-9)
	assert.InDelta(t, 0.8, f.WinRate, 1e-9)
	assert.InDelta(t, (4.0+0.25*10)/1.25, f.AvgCompetitors, 1e-9)
	assert.InDelta(t, (40.0+0.25*20)/1.25, f.AvgTimelineDays, 1e-9)
}

// TestExtractHistoricalFeaturesNoMatches tests the defaults when nothing is similar
func TestExtractHistoricalFeaturesNoMatches(t *testing.T) {
	f := ExtractHistoricalFeatures(sampleOpportunity(), nil)
	assert.Equal(t, HistoricalFeatures{AvgCompetitors: DefaultAgencyCompetitors, AvgTimelineDays: DefaultTimelineDays}, f)
}

// TestExtractMatchesSchema tests that every extracted vector carries the schema
func TestExtractMatchesSchema(t *testing.T) {
	v := Extract(Input{Opportunity: sampleOpportunity()})

	require.NoError(t, v.Validate(Schema()))
	assert.Equal(t, len(Schema()), v.Len())
	for _, name := range v.Names() {
		assert.True(t, InSchema(name), name)
	}
}

// TestExtractDeterministic tests that identical inputs give identical vectors
func TestExtractDeterministic(t *testing.T) {
	in := Input{
		Opportunity: sampleOpportunity(),
		History:     []models.CompanyHistoryRecord{{BidderID: "b", Agency: "NASA", Won: true}},
	}
	assert.Equal(t, Extract(in).Values(), Extract(in).Values())
}

// TestVectorValidate tests schema drift detection
func TestVectorValidate(t *testing.T) {
	v, err := NewVector([]string{"a", "b"}, []float64{1, 2})
	require.NoError(t, err)

	assert.NoError(t, v.Validate([]string{"a", "b"}))
	assert.ErrorIs(t, v.Validate([]string{"b", "a"}), ErrSchemaMismatch)
	assert.ErrorIs(t, v.Validate([]string{"a"}), ErrSchemaMismatch)
	assert.ErrorIs(t, v.Validate([]string{"a", "b", "c"}), ErrSchemaMismatch)

	_, err = NewVector([]string{"a"}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

// TestVectorWith tests that With copies rather than mutates
func TestVectorWith(t *testing.T) {
	v := Extract(Input{Opportunity: sampleOpportunity()})
	w := v.With(CompanyAgencyWinRate, 1)

	assert.Equal(t, 0.0, v.Value(CompanyAgencyWinRate))
	assert.Equal(t, 1.0, w.Value(CompanyAgencyWinRate))
}

// TestCoverageCompleteness tests coverage counting and saturation
func TestCoverageCompleteness(t *testing.T) {
	empty := Coverage(Input{Opportunity: sampleOpportunity()})
	assert.Equal(t, 0.0, empty.Completeness())

	full := DataCoverage{CompanyRecords: 20, AgencyRecords: 9, MarketAgencyKnown: true, SimilarOutcomes: 15}
	assert.Equal(t, 1.0, full.Completeness())

	partial := DataCoverage{CompanyRecords: 5}
	assert.InDelta(t, 0.125, partial.Completeness(), 1e-9)
}

// TestMonotoneConstraints tests the direction table
func TestMonotoneConstraints(t *testing.T) {
	c := MonotoneConstraints([]string{CompanyAgencyWinRate, CompanyTotalLosses, OpportunityIsUrgent})
	assert.Equal(t, []int{1, -1, 0}, c)
}
