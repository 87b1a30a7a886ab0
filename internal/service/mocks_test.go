package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/win-probability/internal/models"
)

type MockOpportunityRepository struct {
	mock.Mock
}

func (m *MockOpportunityRepository) GetByID(ctx context.Context, id string) (*models.Opportunity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Opportunity), args.Error(1)
}

func (m *MockOpportunityRepository) ListOpen(ctx context.Context, at time.Time) ([]models.Opportunity, error) {
	args := m.Called(ctx, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Opportunity), args.Error(1)
}

func (m *MockOpportunityRepository) ListClosed(ctx context.Context) ([]models.Opportunity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Opportunity), args.Error(1)
}

func (m *MockOpportunityRepository) Upsert(ctx context.Context, opp *models.Opportunity) error {
	args := m.Called(ctx, opp)
	return args.Error(0)
}

type MockCompanyHistoryRepository struct {
	mock.Mock
}

func (m *MockCompanyHistoryRepository) GetByBidder(ctx context.Context, bidderID string) ([]models.CompanyHistoryRecord, error) {
	args := m.Called(ctx, bidderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CompanyHistoryRecord), args.Error(1)
}

func (m *MockCompanyHistoryRepository) ListAll(ctx context.Context) (map[string][]models.CompanyHistoryRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]models.CompanyHistoryRecord), args.Error(1)
}

func (m *MockCompanyHistoryRepository) Insert(ctx context.Context, rec *models.CompanyHistoryRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

type MockMarketDataRepository struct {
	mock.Mock
}

func (m *MockMarketDataRepository) GetSnapshot(ctx context.Context) (*models.MarketData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketData), args.Error(1)
}

type MockMarketDataArchive struct {
	mock.Mock
}

func (m *MockMarketDataArchive) SaveSnapshot(ctx context.Context, snapshot *models.MarketData) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

type MockHistoricalOutcomeRepository struct {
	mock.Mock
}

func (m *MockHistoricalOutcomeRepository) ListRecent(ctx context.Context, limit int) ([]models.HistoricalOutcome, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HistoricalOutcome), args.Error(1)
}

type MockPredictionRepository struct {
	mock.Mock
}

func (m *MockPredictionRepository) Upsert(ctx context.Context, prediction *models.WinPrediction) error {
	args := m.Called(ctx, prediction)
	return args.Error(0)
}

func (m *MockPredictionRepository) GetByPair(ctx context.Context, opportunityID, bidderID string) (*models.WinPrediction, error) {
	args := m.Called(ctx, opportunityID, bidderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WinPrediction), args.Error(1)
}

func (m *MockPredictionRepository) ListSince(ctx context.Context, since time.Time) ([]models.WinPrediction, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WinPrediction), args.Error(1)
}

type MockModelArtifactRepository struct {
	mock.Mock
}

func (m *MockModelArtifactRepository) Create(ctx context.Context, artifact *models.ModelArtifact) error {
	args := m.Called(ctx, artifact)
	return args.Error(0)
}

func (m *MockModelArtifactRepository) Activate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockModelArtifactRepository) CreateActive(ctx context.Context, artifact *models.ModelArtifact) error {
	args := m.Called(ctx, artifact)
	return args.Error(0)
}

func (m *MockModelArtifactRepository) GetActive(ctx context.Context) (*models.ModelArtifact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModelArtifact), args.Error(1)
}

func (m *MockModelArtifactRepository) GetLatest(ctx context.Context) (*models.ModelArtifact, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModelArtifact), args.Error(1)
}
