// Package repository provides PostgreSQL-backed stores for the win probability service.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/win-probability/internal/database"
	"github.com/yourusername/win-probability/internal/models"
)

// Repositories holds all repository implementations
type Repositories struct {
	Opportunity       OpportunityRepository
	CompanyHistory    CompanyHistoryRepository
	MarketData        *PostgresMarketDataRepository
	HistoricalOutcome HistoricalOutcomeRepository
	Prediction        PredictionRepository
	ModelArtifact     ModelArtifactRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Opportunity:       NewPostgresOpportunityRepository(db),
		CompanyHistory:    NewPostgresCompanyHistoryRepository(db),
		MarketData:        NewPostgresMarketDataRepository(db),
		HistoricalOutcome: NewPostgresHistoricalOutcomeRepository(db),
		Prediction:        NewPostgresPredictionRepository(db),
		ModelArtifact:     NewPostgresModelArtifactRepository(db),
	}, nil
}

// notFound maps pgx.ErrNoRows to models.ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
