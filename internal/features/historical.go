package features

import (
	"github.com/yourusername/win-probability/internal/models"
)

// DefaultTimelineDays is the assumed timeline when no similar outcome exists
const DefaultTimelineDays = 30.0

// HistoricalFeatures are similarity-weighted statistics over closed opportunities
type HistoricalFeatures struct {
	SimilarCount    float64
	SimilarityMass  float64
	WinRate         float64
	AvgCompetitors  float64
	AvgTimelineDays float64
}

// Fields implements Group
func (f HistoricalFeatures) Fields() []Feature {
	return []Feature{
		{HistoricalSimilarCount, f.SimilarCount},
		{HistoricalSimilarityMass, f.SimilarityMass},
		{HistoricalWinRate, f.WinRate},
		{HistoricalAvgCompetitors, f.AvgCompetitors},
		{HistoricalAvgTimelineDays, f.AvgTimelineDays},
	}
}

// Similarity scores an outcome against the opportunity: half for a shared agency,
// half for keyword Jaccard overlap.
func Similarity(opp models.Opportunity, outcome models.HistoricalOutcome) float64 {
	var w float64
	if models.SameAgency(opp.Agency, outcome.Agency) {
		w += 0.5
	}
	w += 0.5 * jaccard(opp.NormalizedKeywords(), models.NormalizeKeywords(outcome.Keywords))
	return w
}

// ExtractHistoricalFeatures computes similarity-weighted priors. The outcome of the
// opportunity itself is skipped.
func ExtractHistoricalFeatures(opp models.Opportunity, outcomes []models.HistoricalOutcome) HistoricalFeatures {
	f := HistoricalFeatures{
		AvgCompetitors:  DefaultAgencyCompetitors,
		AvgTimelineDays: DefaultTimelineDays,
	}

	var wins, competitors, timeline float64
	for _, o := range outcomes {
		if opp.ID != "" && o.OpportunityID == opp.ID {
			continue
		}
		w := Similarity(opp, o)
		if w <= 0 {
			continue
		}
		f.SimilarCount++
		f.SimilarityMass += w
		if o.Won {
			wins += w
		}
		competitors += w * float64(o.CompetitorCount)
		timeline += w * float64(o.TimelineDays)
	}

	if f.SimilarityMass > 0 {
		f.WinRate = wins / f.SimilarityMass
		f.AvgCompetitors = competitors / f.SimilarityMass
		f.AvgTimelineDays = timeline / f.SimilarityMass
	}
	return f
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	inter := 0
	union := len(set)
	for _, k := range b {
		if _, ok := set[k]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
