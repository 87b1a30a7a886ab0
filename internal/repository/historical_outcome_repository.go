package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/win-probability/internal/database"
	"github.com/yourusername/win-probability/internal/models"
)

// PostgresHistoricalOutcomeRepository implements HistoricalOutcomeRepository for PostgreSQL
type PostgresHistoricalOutcomeRepository struct {
	db *database.DB
}

// NewPostgresHistoricalOutcomeRepository creates a new historical outcome repository
func NewPostgresHistoricalOutcomeRepository(db *database.DB) *PostgresHistoricalOutcomeRepository {
	return &PostgresHistoricalOutcomeRepository{db: db}
}

// ListRecent retrieves the most recently closed outcomes, newest first
func (r *PostgresHistoricalOutcomeRepository) ListRecent(ctx context.Context, limit int) ([]models.HistoricalOutcome, error) {
	query := `
		SELECT opportunity_id, agency, value, won, timeline_days, competitor_count, keywords, closed_at
		FROM historical_outcomes
		ORDER BY closed_at DESC, opportunity_id ASC
		LIMIT $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []models.HistoricalOutcome{}
	for rows.Next() {
		var o models.HistoricalOutcome
		err := rows.Scan(
			&o.OpportunityID, &o.Agency, &o.Value, &o.Won,
			&o.TimelineDays, &o.CompetitorCount, &o.Keywords, &o.ClosedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan historical outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// Insert stores or replaces one outcome
func (r *PostgresHistoricalOutcomeRepository) Insert(ctx context.Context, o *models.HistoricalOutcome) error {
	query := `
		INSERT INTO historical_outcomes (opportunity_id, agency, value, won, timeline_days, competitor_count, keywords, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (opportunity_id) DO UPDATE SET
			agency = EXCLUDED.agency,
			value = EXCLUDED.value,
			won = EXCLUDED.won,
			timeline_days = EXCLUDED.timeline_days,
			competitor_count = EXCLUDED.competitor_count,
			keywords = EXCLUDED.keywords,
			closed_at = EXCLUDED.closed_at
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		o.OpportunityID, o.Agency, o.Value, o.Won,
		o.TimelineDays, o.CompetitorCount, keywordsOrEmpty(o.Keywords), o.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert historical outcome: %w", err)
	}
	return nil
}
