package service

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/yourusername/win-probability/internal/metrics"
	"github.com/yourusername/win-probability/internal/models"
)

// Probability bands
const (
	BandHigh   = "high"
	BandMedium = "medium"
	BandLow    = "low"

	highBandThreshold   = 0.6
	mediumBandThreshold = 0.3
)

// Band classifies a win probability
func Band(probability float64) string {
	switch {
	case probability >= highBandThreshold:
		return BandHigh
	case probability >= mediumBandThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Insight pairs a prediction with a readable summary
type Insight struct {
	Prediction     *models.WinPrediction `json:"prediction"`
	Band           string                `json:"band"`
	Recommendation string                `json:"recommendation"`
	Summary        string                `json:"summary"`
}

const maxNarrativeFactors = 3

var insightTemplate = template.Must(template.New("insight").Funcs(template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
}).Parse(`{{.BidderID}} has a {{.Band}} chance ({{pct .Probability}}) of winning {{.OpportunityID}}, confidence {{pct .Confidence}}.
{{- if .Strengths}}
Strengths:
{{- range .Strengths}}
  - {{.Text}}
{{- end}}
{{- end}}
{{- if .Risks}}
Risks:
{{- range .Risks}}
  - [{{.Severity}}] {{.Text}}
{{- end}}
{{- end}}
Recommendation: {{.Recommendation}}
`))

type insightView struct {
	BidderID       string
	OpportunityID  string
	Band           string
	Probability    float64
	Confidence     float64
	Strengths      []models.Factor
	Risks          []models.Factor
	Recommendation string
}

// Insights predicts the pair and renders a narrative summary of the result
func (s *WinProbabilityService) Insights(ctx context.Context, opportunityID, bidderID string) (*Insight, error) {
	start := time.Now()
	insight, err := s.insights(ctx, opportunityID, bidderID)
	metrics.RecordRequest("insights", err, time.Since(start))
	return insight, err
}

func (s *WinProbabilityService) insights(ctx context.Context, opportunityID, bidderID string) (*Insight, error) {
	pred, err := s.predict(ctx, opportunityID, bidderID)
	if err != nil {
		return nil, err
	}

	band := Band(pred.WinProbability)
	view := insightView{
		BidderID:       pred.BidderID,
		OpportunityID:  pred.OpportunityID,
		Band:           band,
		Probability:    pred.WinProbability,
		Confidence:     pred.ConfidenceScore,
		Strengths:      firstFactors(pred.SuccessFactors),
		Risks:          firstFactors(pred.RiskFactors),
		Recommendation: recommend(band, pred),
	}

	var sb strings.Builder
	if err := insightTemplate.Execute(&sb, view); err != nil {
		return nil, fmt.Errorf("failed to render insight: %w", err)
	}
	return &Insight{
		Prediction:     pred,
		Band:           band,
		Recommendation: view.Recommendation,
		Summary:        sb.String(),
	}, nil
}

func recommend(band string, pred *models.WinPrediction) string {
	highRisk := false
	for _, f := range pred.RiskFactors {
		if f.Severity == models.SeverityHigh {
			highRisk = true
			break
		}
	}

	switch {
	case band == BandHigh && !highRisk:
		return "Pursue. The bid profile fits this opportunity well."
	case band == BandHigh:
		return "Pursue, but address the high severity risks in the proposal."
	case band == BandMedium:
		return "Qualify further before committing bid resources."
	case pred.ConfidenceScore < 0.4:
		return "Low odds on thin data. Gather more history before deciding."
	default:
		return "Consider passing unless there is strategic value."
	}
}

func firstFactors(fs []models.Factor) []models.Factor {
	if len(fs) > maxNarrativeFactors {
		return fs[:maxNarrativeFactors]
	}
	return fs
}
