package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// FeatureImportance pairs a feature name with its normalized importance
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ModelPerformance holds evaluation results for one trained backend
type ModelPerformance struct {
	Backend           string              `json:"backend"`
	AUCROC            float64             `json:"auc_roc"`
	Accuracy          float64             `json:"accuracy"`
	TrainRows         int                 `json:"train_rows"`
	HoldoutRows       int                 `json:"holdout_rows"`
	FeatureImportance []FeatureImportance `json:"feature_importance,omitempty"`
	Error             string              `json:"error,omitempty"`
}

// Accepted reports whether the backend made it into the live ensemble
func (p ModelPerformance) Accepted() bool {
	return p.Error == ""
}

// ModelArtifact represents a persisted, versioned trained ensemble
type ModelArtifact struct {
	ID          uuid.UUID                   `db:"id" json:"id"`
	Version     string                      `db:"version" json:"version" validate:"required"`
	TrainedAt   time.Time                   `db:"trained_at" json:"trained_at" validate:"required"`
	Performance map[string]ModelPerformance `db:"performance" json:"performance"`
	Payload     json.RawMessage             `db:"payload" json:"payload"`
	Active      bool                        `db:"active" json:"active"`
	CreatedAt   time.Time                   `db:"created_at" json:"created_at"`
}

// IsActive checks if the artifact is the currently served model
func (m *ModelArtifact) IsActive() bool {
	return m.Active
}

// BackendNames returns the accepted backends in name order
func (m *ModelArtifact) BackendNames() []string {
	names := make([]string, 0, len(m.Performance))
	for name, perf := range m.Performance {
		if perf.Accepted() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
