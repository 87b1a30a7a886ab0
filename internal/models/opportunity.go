package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Opportunity represents a competitive contract opportunity snapshot
type Opportunity struct {
	ID             string          `db:"id" json:"id" validate:"required"`
	Title          string          `db:"title" json:"title"`
	Description    string          `db:"description" json:"description"`
	Agency         string          `db:"agency" json:"agency"`
	EstimatedValue decimal.Decimal `db:"estimated_value" json:"estimated_value"`
	PostedAt       *time.Time      `db:"posted_at" json:"posted_at"`
	ResponseDueAt  *time.Time      `db:"response_due_at" json:"response_due_at"`
	Keywords       []string        `db:"keywords" json:"keywords"`
	ClosedAt       *time.Time      `db:"closed_at" json:"closed_at,omitempty"`
}

// IsOpen reports whether the opportunity still accepts responses at the given time
func (o *Opportunity) IsOpen(at time.Time) bool {
	if o.ClosedAt != nil && !o.ClosedAt.After(at) {
		return false
	}
	if o.ResponseDueAt != nil && o.ResponseDueAt.Before(at) {
		return false
	}
	return true
}

// NormalizedKeywords returns the lowercased, de-duplicated keyword set
func (o *Opportunity) NormalizedKeywords() []string {
	return NormalizeKeywords(o.Keywords)
}

// NormalizeKeywords lowercases and trims keywords, dropping blanks and duplicates.
// Order of first appearance is kept.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// SameAgency compares agency names ignoring case and surrounding whitespace
func SameAgency(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
