package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompanyHistoryRecord represents one past bid outcome for a bidder
type CompanyHistoryRecord struct {
	ID            string          `db:"id" json:"id"`
	BidderID      string          `db:"bidder_id" json:"bidder_id" validate:"required"`
	OpportunityID string          `db:"opportunity_id" json:"opportunity_id,omitempty"`
	Agency        string          `db:"agency" json:"agency"`
	ContractValue decimal.Decimal `db:"contract_value" json:"contract_value"`
	Won           bool            `db:"won" json:"won"`
	AwardedAt     time.Time       `db:"awarded_at" json:"awarded_at"`
	Keywords      []string        `db:"keywords" json:"keywords"`
}

// ExcludeOpportunity returns the history without records for the given opportunity.
// The input slice is never modified.
func ExcludeOpportunity(history []CompanyHistoryRecord, opportunityID string) []CompanyHistoryRecord {
	if opportunityID == "" {
		return history
	}
	out := make([]CompanyHistoryRecord, 0, len(history))
	for _, rec := range history {
		if rec.OpportunityID == opportunityID {
			continue
		}
		out = append(out, rec)
	}
	return out
}
