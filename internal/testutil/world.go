// Package testutil builds a deterministic synthetic bidding world for tests.
package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/win-probability/internal/models"
)

// Reference is the fixed "now" of every generated world
var Reference = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

// Agencies used by the generator
var Agencies = []string{
	"Department of Energy",
	"NASA",
	"Department of Defense",
	"General Services Administration",
	"Department of Health",
}

var agencyKeywords = map[string][]string{
	"Department of Energy":            {"grid", "nuclear", "renewables", "cloud", "modeling", "security"},
	"NASA":                            {"satellite", "telemetry", "propulsion", "software", "analytics", "cloud"},
	"Department of Defense":           {"logistics", "cybersecurity", "training", "radar", "maintenance", "software"},
	"General Services Administration": {"facilities", "procurement", "helpdesk", "cloud", "migration", "analytics"},
	"Department of Health":            {"records", "interoperability", "analytics", "outreach", "research", "security"},
}

// World is a closed set of past opportunities, bids and outcomes
type World struct {
	Opportunities []models.Opportunity
	Histories     map[string][]models.CompanyHistoryRecord
	Market        *models.MarketData
	Outcomes      []models.HistoricalOutcome
	// BaseRate is the fraction of bids that were won
	BaseRate float64
}

type bidder struct {
	id    string
	skill float64
	home  map[string]bool
	focus map[string]bool
}

// NewWorld generates a world from seed. The same seed always yields the same world.
//
// Each bid is won with probability
// 0.05 + 0.75*skill*(home agency ? 1 : 0.2) + 0.1*keyword overlap - 0.2*urgent - 0.1*high value.
func NewWorld(seed int64) *World {
	rng := rand.New(rand.NewSource(seed))

	bidders := make([]bidder, 12)
	for i := range bidders {
		b := bidder{
			id:    fmt.Sprintf("bidder-%02d", i),
			skill: 0.2 + 0.8*rng.Float64(),
			home:  map[string]bool{},
			focus: map[string]bool{},
		}
		for _, j := range rng.Perm(len(Agencies))[:1+rng.Intn(2)] {
			b.home[Agencies[j]] = true
			for _, k := range agencyKeywords[Agencies[j]] {
				b.focus[k] = true
			}
		}
		bidders[i] = b
	}

	w := &World{Histories: make(map[string][]models.CompanyHistoryRecord)}
	var wins, bids float64
	competitors := make(map[string][]float64)

	for i := 0; i < 160; i++ {
		agency := Agencies[rng.Intn(len(Agencies))]
		pool := agencyKeywords[agency]
		var keywords []string
		for _, j := range rng.Perm(len(pool))[:3] {
			keywords = append(keywords, pool[j])
		}

		value := math.Exp(math.Log(20_000) + rng.Float64()*(math.Log(20_000_000)-math.Log(20_000)))
		days := 5 + rng.Intn(56)
		posted := Reference.AddDate(0, 0, -400+2*i)
		due := posted.AddDate(0, 0, days)
		closed := due.AddDate(0, 0, 30)

		opp := models.Opportunity{
			ID:             fmt.Sprintf("hist-%03d", i),
			Title:          fmt.Sprintf("%s support %d", agency, i),
			Description:    "Synthetic opportunity",
			Agency:         agency,
			EstimatedValue: decimal.NewFromFloat(math.Round(value)),
			PostedAt:       &posted,
			ResponseDueAt:  &due,
			Keywords:       keywords,
			ClosedAt:       &closed,
		}
		w.Opportunities = append(w.Opportunities, opp)

		nBids := 3 + rng.Intn(3)
		outcomeWon := false
		for n, bi := range pickBidders(rng, bidders, agency, nBids) {
			b := bidders[bi]
			homeFactor := 0.2
			if b.home[agency] {
				homeFactor = 1
			}
			var overlap float64
			for _, k := range keywords {
				if b.focus[k] {
					overlap++
				}
			}
			overlap /= float64(len(keywords))

			p := 0.05 + 0.75*b.skill*homeFactor + 0.1*overlap
			if days < 14 {
				p -= 0.2
			}
			if value > 1_000_000 {
				p -= 0.1
			}
			p = math.Min(0.95, math.Max(0.02, p))

			won := rng.Float64() < p
			if won {
				wins++
			}
			bids++
			if n == 0 {
				outcomeWon = won
			}

			w.Histories[b.id] = append(w.Histories[b.id], models.CompanyHistoryRecord{
				ID:            fmt.Sprintf("%s-%s", opp.ID, b.id),
				BidderID:      b.id,
				OpportunityID: opp.ID,
				Agency:        agency,
				ContractValue: opp.EstimatedValue,
				Won:           won,
				AwardedAt:     closed,
				Keywords:      keywords,
			})
		}

		competitors[agency] = append(competitors[agency], float64(nBids))
		w.Outcomes = append(w.Outcomes, models.HistoricalOutcome{
			OpportunityID:   opp.ID,
			Agency:          agency,
			Value:           opp.EstimatedValue,
			Won:             outcomeWon,
			TimelineDays:    days,
			CompetitorCount: nBids,
			Keywords:        keywords,
			ClosedAt:        closed,
		})
	}

	w.BaseRate = wins / bids
	w.Market = buildMarket(rng, competitors)
	return w
}

// pickBidders draws n distinct bidders, favoring those whose home agency matches
func pickBidders(rng *rand.Rand, bidders []bidder, agency string, n int) []int {
	picked := make([]int, 0, n)
	seen := make(map[int]bool)
	for len(picked) < n {
		i := rng.Intn(len(bidders))
		if seen[i] {
			continue
		}
		if !bidders[i].home[agency] && rng.Float64() < 0.5 {
			continue
		}
		seen[i] = true
		picked = append(picked, i)
	}
	return picked
}

func buildMarket(rng *rand.Rand, competitors map[string][]float64) *models.MarketData {
	m := &models.MarketData{
		Agencies:        make(map[string]models.AgencyStats),
		Buckets:         make(map[string]models.BucketStats),
		KeywordScores:   make(map[string]float64),
		SeasonalByMonth: make(map[int]float64),
		RefreshedAt:     Reference,
	}
	for _, agency := range Agencies {
		counts := competitors[agency]
		var sum float64
		for _, c := range counts {
			sum += c
		}
		avg := 4.0
		if len(counts) > 0 {
			avg = sum / float64(len(counts))
		}
		m.Agencies[agency] = models.AgencyStats{
			AvgCompetitors:    avg,
			WinRateVariance:   0.05,
			ContractsPerMonth: float64(len(counts)) / 12,
		}
		for _, k := range agencyKeywords[agency] {
			if _, ok := m.KeywordScores[k]; !ok {
				m.KeywordScores[k] = 0.3 + 0.5*rng.Float64()
			}
		}
	}
	for month := 1; month <= 12; month++ {
		m.SeasonalByMonth[month] = 0.9 + 0.2*rng.Float64()
	}
	return m
}
