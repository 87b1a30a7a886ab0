package features

import (
	"github.com/yourusername/win-probability/internal/models"
)

// Defaults used when the market snapshot has no entry for a lookup
const (
	DefaultKeywordScore       = 0.5
	DefaultSeasonalMultiplier = 1.0
	DefaultAgencyCompetitors  = 5.0
	DefaultWinRateVariance    = 0.05
)

// ValueBucket is a discrete banding of contract value
type ValueBucket int

const (
	BucketMicro ValueBucket = iota
	BucketSmall
	BucketMedium
	BucketLarge
	BucketMega
)

// String returns the bucket name used as the market data key
func (b ValueBucket) String() string {
	switch b {
	case BucketMicro:
		return "micro"
	case BucketSmall:
		return "small"
	case BucketMedium:
		return "medium"
	case BucketLarge:
		return "large"
	case BucketMega:
		return "mega"
	default:
		return "unknown"
	}
}

// BucketFor maps a contract value to its bucket
func BucketFor(value float64) ValueBucket {
	switch {
	case value < 10_000:
		return BucketMicro
	case value < 250_000:
		return BucketSmall
	case value < 1_000_000:
		return BucketMedium
	case value < 10_000_000:
		return BucketLarge
	default:
		return BucketMega
	}
}

var defaultBucketStats = map[ValueBucket]models.BucketStats{
	BucketMicro:  {AvgCompetitors: 3, SmallBusinessRate: 0.6},
	BucketSmall:  {AvgCompetitors: 4, SmallBusinessRate: 0.45},
	BucketMedium: {AvgCompetitors: 5, SmallBusinessRate: 0.3},
	BucketLarge:  {AvgCompetitors: 6, SmallBusinessRate: 0.2},
	BucketMega:   {AvgCompetitors: 7, SmallBusinessRate: 0.1},
}

// CompetitiveFeatures describes the competitive landscape of the opportunity
type CompetitiveFeatures struct {
	AgencyCompetitors       float64
	AgencyWinRateVariance   float64
	AgencyContractFrequency float64
	ValueBucket             float64
	BucketCompetitors       float64
	BucketSmallBusinessRate float64
	KeywordScore            float64
	SeasonalMultiplier      float64
}

// Fields implements Group
func (f CompetitiveFeatures) Fields() []Feature {
	return []Feature{
		{CompetitiveAgencyCompetitors, f.AgencyCompetitors},
		{CompetitiveAgencyWinRateVariance, f.AgencyWinRateVariance},
		{CompetitiveAgencyContractFrequency, f.AgencyContractFrequency},
		{CompetitiveValueBucket, f.ValueBucket},
		{CompetitiveBucketCompetitors, f.BucketCompetitors},
		{CompetitiveBucketSmallBusinessRate, f.BucketSmallBusinessRate},
		{CompetitiveKeywordScore, f.KeywordScore},
		{CompetitiveSeasonalMultiplier, f.SeasonalMultiplier},
	}
}

// ExtractCompetitiveFeatures looks up market statistics for the opportunity.
// A nil or partial snapshot falls back to the package defaults.
func ExtractCompetitiveFeatures(opp models.Opportunity, market *models.MarketData) CompetitiveFeatures {
	f := CompetitiveFeatures{
		AgencyCompetitors:     DefaultAgencyCompetitors,
		AgencyWinRateVariance: DefaultWinRateVariance,
		KeywordScore:          DefaultKeywordScore,
		SeasonalMultiplier:    DefaultSeasonalMultiplier,
	}

	if stats, ok := market.Agency(opp.Agency); ok {
		f.AgencyCompetitors = stats.AvgCompetitors
		f.AgencyWinRateVariance = stats.WinRateVariance
		f.AgencyContractFrequency = stats.ContractsPerMonth
	}

	bucket := BucketFor(moneyValue(opp.EstimatedValue))
	f.ValueBucket = float64(bucket)
	bucketStats, ok := market.Bucket(bucket.String())
	if !ok {
		bucketStats = defaultBucketStats[bucket]
	}
	f.BucketCompetitors = bucketStats.AvgCompetitors
	f.BucketSmallBusinessRate = bucketStats.SmallBusinessRate

	if keywords := opp.NormalizedKeywords(); len(keywords) > 0 {
		var sum float64
		for _, k := range keywords {
			score, ok := market.KeywordScore(k)
			if !ok {
				score = DefaultKeywordScore
			}
			sum += score
		}
		f.KeywordScore = sum / float64(len(keywords))
	}

	if opp.PostedAt != nil {
		if m, ok := market.Seasonal(opp.PostedAt.Month()); ok {
			f.SeasonalMultiplier = m
		}
	}

	return f
}
