package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/win-probability/internal/database"
	"github.com/yourusername/win-probability/internal/models"
)

const predictionColumns = `id, opportunity_id, bidder_id, win_probability, confidence_score,
	risk_factors, success_factors, model_version, features, predicted_at`

// PostgresPredictionRepository implements PredictionRepository for PostgreSQL
type PostgresPredictionRepository struct {
	db *database.DB
}

// NewPostgresPredictionRepository creates a new prediction repository
func NewPostgresPredictionRepository(db *database.DB) *PostgresPredictionRepository {
	return &PostgresPredictionRepository{db: db}
}

// Upsert stores a prediction, superseding any earlier one for the same pair.
// The stored row keeps its original ID.
func (r *PostgresPredictionRepository) Upsert(ctx context.Context, p *models.WinPrediction) error {
	if err := models.Validate(p); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	risks, err := json.Marshal(factorsOrEmpty(p.RiskFactors))
	if err != nil {
		return fmt.Errorf("failed to encode risk factors: %w", err)
	}
	successes, err := json.Marshal(factorsOrEmpty(p.SuccessFactors))
	if err != nil {
		return fmt.Errorf("failed to encode success factors: %w", err)
	}
	feats, err := p.FeaturesJSON()
	if err != nil {
		return fmt.Errorf("failed to encode features: %w", err)
	}

	query := `
		INSERT INTO predictions (` + predictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (opportunity_id, bidder_id) DO UPDATE SET
			win_probability = EXCLUDED.win_probability,
			confidence_score = EXCLUDED.confidence_score,
			risk_factors = EXCLUDED.risk_factors,
			success_factors = EXCLUDED.success_factors,
			model_version = EXCLUDED.model_version,
			features = EXCLUDED.features,
			predicted_at = EXCLUDED.predicted_at
		RETURNING id
	`

	err = r.db.GetPool().QueryRow(ctx, query,
		p.ID, p.OpportunityID, p.BidderID, p.WinProbability, p.ConfidenceScore,
		risks, successes, p.ModelVersion, []byte(feats), p.PredictedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert prediction: %w", err)
	}
	return nil
}

// GetByPair retrieves the stored prediction for one opportunity/bidder pair
func (r *PostgresPredictionRepository) GetByPair(ctx context.Context, opportunityID, bidderID string) (*models.WinPrediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE opportunity_id = $1 AND bidder_id = $2`

	p, err := scanPrediction(r.db.GetPool().QueryRow(ctx, query, opportunityID, bidderID))
	if err != nil {
		return nil, notFound(err, "prediction "+opportunityID+"/"+bidderID)
	}
	return &p, nil
}

// ListSince retrieves predictions made at or after the given time, newest first
func (r *PostgresPredictionRepository) ListSince(ctx context.Context, since time.Time) ([]models.WinPrediction, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE predicted_at >= $1
		ORDER BY predicted_at DESC, id ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var preds []models.WinPrediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func scanPrediction(row pgx.Row) (models.WinPrediction, error) {
	var (
		p                         models.WinPrediction
		risks, successes, featRaw []byte
	)
	err := row.Scan(
		&p.ID, &p.OpportunityID, &p.BidderID, &p.WinProbability, &p.ConfidenceScore,
		&risks, &successes, &p.ModelVersion, &featRaw, &p.PredictedAt,
	)
	if err != nil {
		return p, err
	}
	if err := decodeJSON(risks, &p.RiskFactors); err != nil {
		return p, fmt.Errorf("risk factors: %w", err)
	}
	if err := decodeJSON(successes, &p.SuccessFactors); err != nil {
		return p, fmt.Errorf("success factors: %w", err)
	}
	if err := decodeJSON(featRaw, &p.Features); err != nil {
		return p, fmt.Errorf("features: %w", err)
	}
	return p, nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func factorsOrEmpty(fs []models.Factor) []models.Factor {
	if fs == nil {
		return []models.Factor{}
	}
	return fs
}
