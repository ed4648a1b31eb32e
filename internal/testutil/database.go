package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/WailSalutem-Health-Care/preauth-service/internal/db"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetupTestDB connects to the test database named by TEST_DB_* (local
// defaults) and makes sure the schema exists.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	opts := db.Options{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "5432"),
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		Name:     envOr("TEST_DB_NAME", "preauth_test"),
	}

	conn, err := db.Connect(context.Background(), opts, NopLogger())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.EnsureSchema(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to prepare test schema: %v", err)
	}

	return conn
}

// CleanupTestDB removes rows written by a test.
func CleanupTestDB(t *testing.T, conn *sql.DB) {
	t.Helper()

	for _, table := range []string{"handoff_snapshots", "preauth_submissions"} {
		if _, err := conn.Exec("TRUNCATE TABLE " + table); err != nil {
			t.Logf("Warning: Failed to clean up %s: %v", table, err)
		}
	}
}
