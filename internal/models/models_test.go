package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestOpportunityIsOpen(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		opp  Opportunity
		want bool
	}{
		{name: "no dates", opp: Opportunity{ID: "a"}, want: true},
		{name: "due in future", opp: Opportunity{ID: "b", ResponseDueAt: timePtr(now.Add(time.Hour))}, want: true},
		{name: "due now", opp: Opportunity{ID: "c", ResponseDueAt: timePtr(now)}, want: true},
		{name: "due in past", opp: Opportunity{ID: "d", ResponseDueAt: timePtr(now.Add(-time.Hour))}, want: false},
		{name: "closed now", opp: Opportunity{ID: "e", ClosedAt: timePtr(now)}, want: false},
		{name: "closes later", opp: Opportunity{ID: "f", ClosedAt: timePtr(now.Add(time.Hour))}, want: true},
		{
			name: "closed with future due date",
			opp:  Opportunity{ID: "g", ClosedAt: timePtr(now.Add(-time.Hour)), ResponseDueAt: timePtr(now.Add(time.Hour))},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opp.IsOpen(now))
		})
	}
}

func TestNormalizeKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: []string{}},
		{name: "lowercases and trims", in: []string{" Cloud ", "GRID"}, want: []string{"cloud", "grid"}},
		{name: "drops blanks", in: []string{"", "  ", "radar"}, want: []string{"radar"}},
		{name: "keeps first appearance", in: []string{"radar", "Cloud", "RADAR", "cloud"}, want: []string{"radar", "cloud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKeywords(tt.in))
		})
	}

	opp := Opportunity{Keywords: []string{"B", "a", "b"}}
	assert.Equal(t, []string{"b", "a"}, opp.NormalizedKeywords())
	assert.Equal(t, []string{"B", "a", "b"}, opp.Keywords)
}

func TestSameAgency(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"NASA", "nasa", true},
		{" Department of Energy", "department of energy ", true},
		{"NASA", "Department of Energy", false},
		{"", "", false},
		{"NASA", " ", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SameAgency(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Opportunity{ID: "opp-1"}))

	err := Validate(Opportunity{Title: "missing id"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "Opportunity.ID (required)")

	err = Validate(CompanyHistoryRecord{ID: "rec-1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExcludeOpportunity(t *testing.T) {
	history := []CompanyHistoryRecord{
		{ID: "1", BidderID: "acme", OpportunityID: "opp-1"},
		{ID: "2", BidderID: "acme", OpportunityID: "opp-2"},
		{ID: "3", BidderID: "acme", OpportunityID: "opp-1"},
		{ID: "4", BidderID: "acme"},
	}
	original := append([]CompanyHistoryRecord(nil), history...)

	out := ExcludeOpportunity(history, "opp-1")
	require.Len(t, out, 2)
	assert.Equal(t, "2", out[0].ID)
	assert.Equal(t, "4", out[1].ID)
	assert.Equal(t, original, history)

	out[0].ID = "changed"
	assert.Equal(t, "2", history[1].ID)

	assert.Equal(t, history, ExcludeOpportunity(history, ""))
}

func TestMarketDataAgency(t *testing.T) {
	m := &MarketData{Agencies: map[string]AgencyStats{
		"NASA": {AvgCompetitors: 4},
		"nasa": {AvgCompetitors: 9},
		"Nasa": {AvgCompetitors: 6},
	}}
	m.Agencies["Department of Energy"] = AgencyStats{AvgCompetitors: 3}

	stats, ok := m.Agency("nasa")
	require.True(t, ok)
	assert.Equal(t, 9.0, stats.AvgCompetitors)

	for i := 0; i < 50; i++ {
		stats, ok = m.Agency("NaSa")
		require.True(t, ok)
		assert.Equal(t, 4.0, stats.AvgCompetitors)
	}

	stats, ok = m.Agency(" department of energy ")
	require.True(t, ok)
	assert.Equal(t, 3.0, stats.AvgCompetitors)

	_, ok = m.Agency("Department of Defense")
	assert.False(t, ok)

	var empty *MarketData
	_, ok = empty.Agency("NASA")
	assert.False(t, ok)
	assert.True(t, empty.IsEmpty())
}
