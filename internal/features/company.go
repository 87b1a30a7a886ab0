package features

import (
	"github.com/yourusername/win-probability/internal/models"
)

// MaxCapacityRatio caps the opportunity-to-largest-contract ratio
const MaxCapacityRatio = 10.0

// CompanyFeatures describes the bidder's track record relative to the opportunity
type CompanyFeatures struct {
	TotalWins        float64
	TotalLosses      float64
	WinRate          float64
	AgencyWinRate    float64
	AgencyExperience float64
	MaxContractValue float64
	CapacityRatio    float64
	KeywordAlignment float64
}

// Fields implements Group
func (f CompanyFeatures) Fields() []Feature {
	return []Feature{
		{CompanyTotalWins, f.TotalWins},
		{CompanyTotalLosses, f.TotalLosses},
		{CompanyWinRate, f.WinRate},
		{CompanyAgencyWinRate, f.AgencyWinRate},
		{CompanyAgencyExperience, f.AgencyExperience},
		{CompanyMaxContractValue, f.MaxContractValue},
		{CompanyCapacityRatio, f.CapacityRatio},
		{CompanyKeywordAlignment, f.KeywordAlignment},
	}
}

// ExtractCompanyFeatures aggregates the bidder's history. An empty history yields
// the zero feature set, which is the neutral default rather than an error.
func ExtractCompanyFeatures(opp models.Opportunity, history []models.CompanyHistoryRecord) CompanyFeatures {
	var (
		f                      CompanyFeatures
		agencyWins, agencySeen float64
		historyKeywords        = make(map[string]struct{})
	)

	for _, rec := range history {
		if rec.Won {
			f.TotalWins++
		} else {
			f.TotalLosses++
		}

		if models.SameAgency(rec.Agency, opp.Agency) {
			agencySeen++
			if rec.Won {
				agencyWins++
			}
		}

		if v := moneyValue(rec.ContractValue); v > f.MaxContractValue {
			f.MaxContractValue = v
		}

		for _, k := range models.NormalizeKeywords(rec.Keywords) {
			historyKeywords[k] = struct{}{}
		}
	}

	if total := f.TotalWins + f.TotalLosses; total > 0 {
		f.WinRate = f.TotalWins / total
	}
	f.AgencyExperience = agencySeen
	if agencySeen > 0 {
		f.AgencyWinRate = agencyWins / agencySeen
	}

	if f.MaxContractValue > 0 {
		ratio := moneyValue(opp.EstimatedValue) / f.MaxContractValue
		if ratio > MaxCapacityRatio {
			ratio = MaxCapacityRatio
		}
		f.CapacityRatio = ratio
	}

	oppKeywords := opp.NormalizedKeywords()
	if len(oppKeywords) > 0 && len(historyKeywords) > 0 {
		matched := 0
		for _, k := range oppKeywords {
			if _, ok := historyKeywords[k]; ok {
				matched++
			}
		}
		f.KeywordAlignment = float64(matched) / float64(len(oppKeywords))
	}

	return f
}
