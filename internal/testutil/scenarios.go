package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/win-probability/internal/models"
)

// MaterialMargin is the relative distance from a world's base rate that the
// strong and weak scenarios are expected to clear.
const MaterialMargin = 0.25

// Scenario is one opportunity/bidder pair with its inputs
type Scenario struct {
	BidderID    string
	Opportunity models.Opportunity
	History     []models.CompanyHistoryRecord
}

// History builds wins then losses against one agency with shared keywords
func History(bidderID, agency string, wins, losses int, value int64, keywords []string) []models.CompanyHistoryRecord {
	var out []models.CompanyHistoryRecord
	for i := 0; i < wins+losses; i++ {
		out = append(out, models.CompanyHistoryRecord{
			ID:            fmt.Sprintf("%s-past-%02d", bidderID, i),
			BidderID:      bidderID,
			Agency:        agency,
			ContractValue: decimal.NewFromInt(value),
			Won:           i < wins,
			AwardedAt:     Reference.AddDate(0, -i-1, 0),
			Keywords:      keywords,
		})
	}
	return out
}

// Opportunity builds an open opportunity posted at Reference
func Opportunity(id, agency string, value int64, days int, keywords []string) models.Opportunity {
	posted := Reference
	due := posted.AddDate(0, 0, days)
	return models.Opportunity{
		ID:             id,
		Title:          fmt.Sprintf("%s requirement %s", agency, id),
		Description:    "Open solicitation",
		Agency:         agency,
		EstimatedValue: decimal.NewFromInt(value),
		PostedAt:       &posted,
		ResponseDueAt:  &due,
		Keywords:       keywords,
	}
}

var energyKeywords = []string{"grid", "cloud", "modeling"}

// StrongScenario is a bidder with 8 wins and 2 losses at the opportunity's agency,
// bidding on a $500K opportunity with matching keywords and a 45 day timeline.
func StrongScenario() Scenario {
	return Scenario{
		BidderID:    "strong-bidder",
		Opportunity: Opportunity("open-strong", "Department of Energy", 500_000, 45, energyKeywords),
		History:     History("strong-bidder", "Department of Energy", 8, 2, 600_000, energyKeywords),
	}
}

// MediumScenario is a bidder with a mixed record at the agency on a moderately
// sized opportunity with a three week timeline.
func MediumScenario() Scenario {
	return Scenario{
		BidderID:    "medium-bidder",
		Opportunity: Opportunity("open-medium", "Department of Energy", 800_000, 21, energyKeywords),
		History:     History("medium-bidder", "Department of Energy", 3, 4, 400_000, []string{"grid", "security"}),
	}
}

// WeakScenario is a bidder with 0 wins and 5 losses at a different agency, bidding
// on a $3M opportunity with a 7 day timeline.
func WeakScenario() Scenario {
	return Scenario{
		BidderID:    "weak-bidder",
		Opportunity: Opportunity("open-weak", "Department of Energy", 3_000_000, 7, energyKeywords),
		History:     History("weak-bidder", "NASA", 0, 5, 200_000, []string{"satellite", "telemetry"}),
	}
}

// TimePtr returns a pointer to t
func TimePtr(t time.Time) *time.Time {
	return &t
}
