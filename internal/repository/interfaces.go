package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/win-probability/internal/models"
)

// OpportunityRepository defines the interface for opportunity data access
type OpportunityRepository interface {
	GetByID(ctx context.Context, id string) (*models.Opportunity, error)
	ListOpen(ctx context.Context, at time.Time) ([]models.Opportunity, error)
	ListClosed(ctx context.Context) ([]models.Opportunity, error)
	Upsert(ctx context.Context, opp *models.Opportunity) error
}

// CompanyHistoryRepository defines the interface for bidder history access
type CompanyHistoryRepository interface {
	GetByBidder(ctx context.Context, bidderID string) ([]models.CompanyHistoryRecord, error)
	ListAll(ctx context.Context) (map[string][]models.CompanyHistoryRecord, error)
	Insert(ctx context.Context, rec *models.CompanyHistoryRecord) error
}

// MarketDataRepository defines the interface for market snapshot access
type MarketDataRepository interface {
	GetSnapshot(ctx context.Context) (*models.MarketData, error)
}

// MarketDataArchive stores fetched market snapshots
type MarketDataArchive interface {
	SaveSnapshot(ctx context.Context, snapshot *models.MarketData) error
}

// HistoricalOutcomeRepository defines the interface for closed opportunity outcomes
type HistoricalOutcomeRepository interface {
	ListRecent(ctx context.Context, limit int) ([]models.HistoricalOutcome, error)
}

// PredictionRepository defines the interface for prediction storage.
// At most one prediction is kept per opportunity/bidder pair.
type PredictionRepository interface {
	Upsert(ctx context.Context, prediction *models.WinPrediction) error
	GetByPair(ctx context.Context, opportunityID, bidderID string) (*models.WinPrediction, error)
	ListSince(ctx context.Context, since time.Time) ([]models.WinPrediction, error)
}

// ModelArtifactRepository defines the interface for persisted ensembles
type ModelArtifactRepository interface {
	Create(ctx context.Context, artifact *models.ModelArtifact) error
	Activate(ctx context.Context, id uuid.UUID) error
	CreateActive(ctx context.Context, artifact *models.ModelArtifact) error
	GetActive(ctx context.Context) (*models.ModelArtifact, error)
	GetLatest(ctx context.Context) (*models.ModelArtifact, error)
}
