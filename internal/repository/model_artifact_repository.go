package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/win-probability/internal/database"
	"github.com/yourusername/win-probability/internal/models"
)

const artifactColumns = `id, version, trained_at, performance, payload, active, created_at`

// PostgresModelArtifactRepository implements ModelArtifactRepository for PostgreSQL
type PostgresModelArtifactRepository struct {
	db *database.DB
}

// NewPostgresModelArtifactRepository creates a new model artifact repository
func NewPostgresModelArtifactRepository(db *database.DB) *PostgresModelArtifactRepository {
	return &PostgresModelArtifactRepository{db: db}
}

// rowQuerier is satisfied by both the pool and a transaction
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Create inserts a new, inactive model artifact
func (r *PostgresModelArtifactRepository) Create(ctx context.Context, a *models.ModelArtifact) error {
	return insertArtifact(ctx, r.db.GetPool(), a)
}

// Activate marks one artifact active and deactivates every other
func (r *PostgresModelArtifactRepository) Activate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return activateArtifact(ctx, tx, id)
	})
}

// CreateActive inserts an artifact and makes it the only active one in a single
// transaction. On any failure nothing is stored and the previous active artifact stays.
func (r *PostgresModelArtifactRepository) CreateActive(ctx context.Context, a *models.ModelArtifact) error {
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := insertArtifact(ctx, tx, a); err != nil {
			return err
		}
		return activateArtifact(ctx, tx, a.ID)
	})
	if err != nil {
		a.Active = false
		return err
	}
	a.Active = true
	return nil
}

func insertArtifact(ctx context.Context, q rowQuerier, a *models.ModelArtifact) error {
	if err := models.Validate(a); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	perf, err := json.Marshal(a.Performance)
	if err != nil {
		return fmt.Errorf("failed to encode performance: %w", err)
	}

	query := `
		INSERT INTO model_artifacts (id, version, trained_at, performance, payload, active)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING created_at
	`

	err = q.QueryRow(ctx, query,
		a.ID, a.Version, a.TrainedAt, perf, []byte(a.Payload),
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create model artifact: %w", err)
	}
	a.Active = false
	return nil
}

func activateArtifact(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, err := tx.Exec(ctx, `UPDATE model_artifacts SET active = FALSE WHERE active AND id <> $1`, id); err != nil {
		return fmt.Errorf("failed to deactivate model artifacts: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE model_artifacts SET active = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to activate model artifact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("model artifact %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// GetActive retrieves the artifact currently marked active
func (r *PostgresModelArtifactRepository) GetActive(ctx context.Context) (*models.ModelArtifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM model_artifacts WHERE active LIMIT 1`
	return r.get(ctx, query, "active model artifact")
}

// GetLatest retrieves the most recently trained artifact
func (r *PostgresModelArtifactRepository) GetLatest(ctx context.Context) (*models.ModelArtifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM model_artifacts ORDER BY trained_at DESC, created_at DESC LIMIT 1`
	return r.get(ctx, query, "latest model artifact")
}

func (r *PostgresModelArtifactRepository) get(ctx context.Context, query, what string) (*models.ModelArtifact, error) {
	var (
		a       models.ModelArtifact
		perfRaw []byte
		payload []byte
	)
	err := r.db.GetPool().QueryRow(ctx, query).Scan(
		&a.ID, &a.Version, &a.TrainedAt, &perfRaw, &payload, &a.Active, &a.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, what)
	}
	if err := decodeJSON(perfRaw, &a.Performance); err != nil {
		return nil, fmt.Errorf("failed to decode performance: %w", err)
	}
	a.Payload = json.RawMessage(payload)
	return &a, nil
}
