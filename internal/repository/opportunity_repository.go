package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/win-probability/internal/database"
	"github.com/yourusername/win-probability/internal/models"
)

const opportunityColumns = `id, title, description, agency, estimated_value, posted_at, response_due_at, keywords, closed_at`

// PostgresOpportunityRepository implements OpportunityRepository for PostgreSQL
type PostgresOpportunityRepository struct {
	db *database.DB
}

// NewPostgresOpportunityRepository creates a new opportunity repository
func NewPostgresOpportunityRepository(db *database.DB) *PostgresOpportunityRepository {
	return &PostgresOpportunityRepository{db: db}
}

func scanOpportunity(row pgx.Row) (models.Opportunity, error) {
	var o models.Opportunity
	err := row.Scan(
		&o.ID, &o.Title, &o.Description, &o.Agency, &o.EstimatedValue,
		&o.PostedAt, &o.ResponseDueAt, &o.Keywords, &o.ClosedAt,
	)
	return o, err
}

// GetByID retrieves an opportunity by ID
func (r *PostgresOpportunityRepository) GetByID(ctx context.Context, id string) (*models.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = $1`

	opp, err := scanOpportunity(r.db.GetPool().QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "opportunity "+id)
	}
	return &opp, nil
}

// ListOpen retrieves opportunities still accepting responses at the given time
func (r *PostgresOpportunityRepository) ListOpen(ctx context.Context, at time.Time) ([]models.Opportunity, error) {
	query := `
		SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE (closed_at IS NULL OR closed_at > $1)
		  AND (response_due_at IS NULL OR response_due_at >= $1)
		ORDER BY id ASC
	`
	return r.list(ctx, query, at)
}

// ListClosed retrieves opportunities that have been awarded or closed
func (r *PostgresOpportunityRepository) ListClosed(ctx context.Context) ([]models.Opportunity, error) {
	query := `
		SELECT ` + opportunityColumns + `
		FROM opportunities
		WHERE closed_at IS NOT NULL
		ORDER BY closed_at ASC, id ASC
	`
	return r.list(ctx, query)
}

func (r *PostgresOpportunityRepository) list(ctx context.Context, query string, args ...any) ([]models.Opportunity, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}

// Upsert inserts or replaces an opportunity snapshot
func (r *PostgresOpportunityRepository) Upsert(ctx context.Context, opp *models.Opportunity) error {
	if err := models.Validate(opp); err != nil {
		return err
	}

	query := `
		INSERT INTO opportunities (` + opportunityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			agency = EXCLUDED.agency,
			estimated_value = EXCLUDED.estimated_value,
			posted_at = EXCLUDED.posted_at,
			response_due_at = EXCLUDED.response_due_at,
			keywords = EXCLUDED.keywords,
			closed_at = EXCLUDED.closed_at
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		opp.ID, opp.Title, opp.Description, opp.Agency, opp.EstimatedValue,
		opp.PostedAt, opp.ResponseDueAt, keywordsOrEmpty(opp.Keywords), opp.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert opportunity: %w", err)
	}
	return nil
}

func keywordsOrEmpty(k []string) []string {
	if k == nil {
		return []string{}
	}
	return k
}
