package models

import (
	"sort"
	"strings"
	"time"
)

// AgencyStats holds competition statistics for one issuing agency
type AgencyStats struct {
	AvgCompetitors    float64 `json:"avg_competitors"`
	WinRateVariance   float64 `json:"win_rate_variance"`
	ContractsPerMonth float64 `json:"contracts_per_month"`
}

// BucketStats holds competition statistics for one contract value bucket
type BucketStats struct {
	AvgCompetitors    float64 `json:"avg_competitors"`
	SmallBusinessRate float64 `json:"small_business_rate"`
}

// MarketData is the read-only market reference snapshot
type MarketData struct {
	Agencies        map[string]AgencyStats `json:"agencies"`
	Buckets         map[string]BucketStats `json:"buckets"`
	KeywordScores   map[string]float64     `json:"keyword_scores"`
	SeasonalByMonth map[int]float64        `json:"seasonal_by_month"`
	RefreshedAt     time.Time              `json:"refreshed_at"`
}

// Agency looks up agency statistics, falling back to a case-insensitive match.
// Among keys that differ only by case the lexically smallest wins.
func (m *MarketData) Agency(name string) (AgencyStats, bool) {
	if m == nil || len(m.Agencies) == 0 {
		return AgencyStats{}, false
	}
	if stats, ok := m.Agencies[name]; ok {
		return stats, true
	}
	keys := make([]string, 0, len(m.Agencies))
	for agency := range m.Agencies {
		if SameAgency(agency, name) {
			keys = append(keys, agency)
		}
	}
	if len(keys) == 0 {
		return AgencyStats{}, false
	}
	sort.Strings(keys)
	return m.Agencies[keys[0]], true
}

// Bucket looks up value bucket statistics
func (m *MarketData) Bucket(bucket string) (BucketStats, bool) {
	if m == nil || len(m.Buckets) == 0 {
		return BucketStats{}, false
	}
	stats, ok := m.Buckets[bucket]
	return stats, ok
}

// KeywordScore looks up the competition score of a normalized keyword
func (m *MarketData) KeywordScore(keyword string) (float64, bool) {
	if m == nil || len(m.KeywordScores) == 0 {
		return 0, false
	}
	if score, ok := m.KeywordScores[keyword]; ok {
		return score, true
	}
	score, ok := m.KeywordScores[strings.ToLower(keyword)]
	return score, ok
}

// Seasonal returns the seasonal multiplier for a calendar month
func (m *MarketData) Seasonal(month time.Month) (float64, bool) {
	if m == nil || len(m.SeasonalByMonth) == 0 {
		return 0, false
	}
	v, ok := m.SeasonalByMonth[int(month)]
	return v, ok
}

// IsEmpty reports whether the snapshot carries no statistics at all
func (m *MarketData) IsEmpty() bool {
	return m == nil || (len(m.Agencies) == 0 && len(m.Buckets) == 0 && len(m.KeywordScores) == 0 && len(m.SeasonalByMonth) == 0)
}
