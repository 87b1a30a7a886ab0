package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/win-probability/internal/database"
	"github.com/yourusername/win-probability/internal/models"
)

const historyColumns = `id, bidder_id, opportunity_id, agency, contract_value, won, awarded_at, keywords`

// PostgresCompanyHistoryRepository implements CompanyHistoryRepository for PostgreSQL
type PostgresCompanyHistoryRepository struct {
	db *database.DB
}

// NewPostgresCompanyHistoryRepository creates a new company history repository
func NewPostgresCompanyHistoryRepository(db *database.DB) *PostgresCompanyHistoryRepository {
	return &PostgresCompanyHistoryRepository{db: db}
}

func scanHistoryRecord(row pgx.Row) (models.CompanyHistoryRecord, error) {
	var rec models.CompanyHistoryRecord
	err := row.Scan(
		&rec.ID, &rec.BidderID, &rec.OpportunityID, &rec.Agency,
		&rec.ContractValue, &rec.Won, &rec.AwardedAt, &rec.Keywords,
	)
	return rec, err
}

// GetByBidder retrieves every past bid outcome of a bidder, newest first.
// An unknown bidder yields an empty history, not an error.
func (r *PostgresCompanyHistoryRepository) GetByBidder(ctx context.Context, bidderID string) ([]models.CompanyHistoryRecord, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM company_history
		WHERE bidder_id = $1
		ORDER BY awarded_at DESC, id ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, bidderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query company history: %w", err)
	}
	defer rows.Close()

	history := []models.CompanyHistoryRecord{}
	for rows.Next() {
		rec, err := scanHistoryRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company history: %w", err)
		}
		history = append(history, rec)
	}
	return history, rows.Err()
}

// ListAll retrieves every history record grouped by bidder
func (r *PostgresCompanyHistoryRepository) ListAll(ctx context.Context) (map[string][]models.CompanyHistoryRecord, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM company_history
		ORDER BY bidder_id ASC, awarded_at DESC, id ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query company history: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]models.CompanyHistoryRecord)
	for rows.Next() {
		rec, err := scanHistoryRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company history: %w", err)
		}
		grouped[rec.BidderID] = append(grouped[rec.BidderID], rec)
	}
	return grouped, rows.Err()
}

// Insert stores one bid outcome, assigning an ID when none is set
func (r *PostgresCompanyHistoryRepository) Insert(ctx context.Context, rec *models.CompanyHistoryRecord) error {
	if err := models.Validate(rec); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	query := `INSERT INTO company_history (` + historyColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`

	_, err := r.db.GetPool().Exec(ctx, query,
		rec.ID, rec.BidderID, rec.OpportunityID, rec.Agency,
		rec.ContractValue, rec.Won, rec.AwardedAt, keywordsOrEmpty(rec.Keywords),
	)
	if err != nil {
		return fmt.Errorf("failed to insert company history: %w", err)
	}
	return nil
}
