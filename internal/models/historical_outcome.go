package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoricalOutcome represents a closed, labeled past opportunity
type HistoricalOutcome struct {
	OpportunityID   string          `db:"opportunity_id" json:"opportunity_id"`
	Agency          string          `db:"agency" json:"agency"`
	Value           decimal.Decimal `db:"value" json:"value"`
	Won             bool            `db:"won" json:"won"`
	TimelineDays    int             `db:"timeline_days" json:"timeline_days"`
	CompetitorCount int             `db:"competitor_count" json:"competitor_count"`
	Keywords        []string        `db:"keywords" json:"keywords"`
	ClosedAt        time.Time       `db:"closed_at" json:"closed_at"`
}
