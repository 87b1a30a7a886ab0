package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/win-probability/internal/database"
	"github.com/yourusername/win-probability/internal/models"
)

// PostgresMarketDataRepository stores market snapshots as JSON documents.
// The newest snapshot is the current one.
type PostgresMarketDataRepository struct {
	db *database.DB
}

// NewPostgresMarketDataRepository creates a new market data repository
func NewPostgresMarketDataRepository(db *database.DB) *PostgresMarketDataRepository {
	return &PostgresMarketDataRepository{db: db}
}

// GetSnapshot retrieves the most recent market snapshot
func (r *PostgresMarketDataRepository) GetSnapshot(ctx context.Context) (*models.MarketData, error) {
	query := `
		SELECT payload, refreshed_at
		FROM market_snapshots
		ORDER BY refreshed_at DESC, id DESC
		LIMIT 1
	`

	var (
		payload     []byte
		refreshedAt time.Time
	)
	if err := r.db.GetPool().QueryRow(ctx, query).Scan(&payload, &refreshedAt); err != nil {
		return nil, notFound(err, "market snapshot")
	}

	var snapshot models.MarketData
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode market snapshot: %w", err)
	}
	snapshot.RefreshedAt = refreshedAt
	return &snapshot, nil
}

// SaveSnapshot appends a market snapshot
func (r *PostgresMarketDataRepository) SaveSnapshot(ctx context.Context, snapshot *models.MarketData) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode market snapshot: %w", err)
	}

	refreshedAt := snapshot.RefreshedAt
	if refreshedAt.IsZero() {
		refreshedAt = time.Now().UTC()
	}

	_, err = r.db.GetPool().Exec(ctx,
		`INSERT INTO market_snapshots (payload, refreshed_at) VALUES ($1, $2)`,
		payload, refreshedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save market snapshot: %w", err)
	}
	return nil
}
