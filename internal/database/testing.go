package database

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// TestDatabaseURLEnv names the DSN used by integration tests
const TestDatabaseURLEnv = "WIN_PROBABILITY_TEST_DATABASE_URL"

// SetupTestDB connects to the integration database and applies migrations.
// The test is skipped when WIN_PROBABILITY_TEST_DATABASE_URL is unset.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv(TestDatabaseURLEnv)
	if dsn == "" {
		t.Skipf("integration test - set %s to run", TestDatabaseURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Open(ctx, dsn, 4, 1)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	if err := db.ApplyMigrations(ctx, log); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}

// TruncateTables empties the given tables between integration tests
func TruncateTables(t *testing.T, db *DB, tables ...string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, table := range tables {
		if _, err := db.pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}
