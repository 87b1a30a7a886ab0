package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigrationFilesOrdered tests that embedded migrations are discovered in apply order
func TestMigrationFilesOrdered(t *testing.T) {
	files, err := MigrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_initial_schema.sql", files[0])
	assert.IsIncreasing(t, files)
}

// TestMigrationsApply tests the schema against a live database
func TestMigrationsApply(t *testing.T) {
	db := SetupTestDB(t)

	var count int
	err := db.GetPool().QueryRow(context.Background(), "SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)
}
