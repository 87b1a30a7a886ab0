package database

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/win-probability/internal/config"
)

// Initialize creates a database connection pool and brings the schema up to date
func Initialize(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := db.ApplyMigrations(ctx, log); err != nil {
		db.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"host":     cfg.Database.Host,
		"database": cfg.Database.Name,
	}).Info("Database ready")

	return db, nil
}
