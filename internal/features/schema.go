package features

// Feature names. Groups are namespaced by prefix so that names never collide.
const (
	OpportunityEstimatedValue    = "opportunity_estimated_value"
	OpportunityLogValue          = "opportunity_log_value"
	OpportunityDaysToRespond     = "opportunity_days_to_respond"
	OpportunityKeywordCount      = "opportunity_keyword_count"
	OpportunityTitleLength       = "opportunity_title_length"
	OpportunityDescriptionLength = "opportunity_description_length"
	OpportunityIsHighValue       = "opportunity_is_high_value"
	OpportunityIsUrgent          = "opportunity_is_urgent"

	CompanyTotalWins        = "company_total_wins"
	CompanyTotalLosses      = "company_total_losses"
	CompanyWinRate          = "company_win_rate"
	CompanyAgencyWinRate    = "company_agency_win_rate"
	CompanyAgencyExperience = "company_agency_experience"
	CompanyMaxContractValue = "company_max_contract_value"
	CompanyCapacityRatio    = "company_capacity_ratio"
	CompanyKeywordAlignment = "company_keyword_alignment"

	CompetitiveAgencyCompetitors       = "competitive_agency_competitors"
	CompetitiveAgencyWinRateVariance   = "competitive_agency_win_rate_variance"
	CompetitiveAgencyContractFrequency = "competitive_agency_contract_frequency"
	CompetitiveValueBucket             = "competitive_value_bucket"
	CompetitiveBucketCompetitors       = "competitive_bucket_competitors"
	CompetitiveBucketSmallBusinessRate = "competitive_bucket_small_business_rate"
	CompetitiveKeywordScore            = "competitive_keyword_score"
	CompetitiveSeasonalMultiplier      = "competitive_seasonal_multiplier"

	HistoricalSimilarCount    = "historical_similar_count"
	HistoricalSimilarityMass  = "historical_similarity_mass"
	HistoricalWinRate         = "historical_win_rate"
	HistoricalAvgCompetitors  = "historical_avg_competitors"
	HistoricalAvgTimelineDays = "historical_avg_timeline_days"
)

var (
	schema      = buildSchema()
	schemaIndex = indexSchema(schema)
)

func buildSchema() []string {
	v := Assemble(OpportunityFeatures{}, CompanyFeatures{}, CompetitiveFeatures{}, HistoricalFeatures{})
	return v.names
}

func indexSchema(names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return idx
}

// Schema returns the ordered feature names every vector carries
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

// InSchema reports whether name is a known feature
func InSchema(name string) bool {
	_, ok := schemaIndex[name]
	return ok
}

// MonotoneConstraints returns the expected direction of each schema feature's effect
// on win probability: +1 non-decreasing, -1 non-increasing, 0 unconstrained.
func MonotoneConstraints(names []string) []int {
	out := make([]int, len(names))
	for i, n := range names {
		switch n {
		case CompanyTotalWins, CompanyWinRate, CompanyAgencyWinRate:
			out[i] = 1
		case CompanyTotalLosses:
			out[i] = -1
		}
	}
	return out
}
