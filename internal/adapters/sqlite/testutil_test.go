// Package sqlite_test contains integration tests for SQLite repositories.
//
// Tests load the authoritative schema via db.GetSchemaSQL() instead of
// hardcoding CREATE TABLE statements, so repository code referencing a
// column that does not exist fails immediately with "no such column".
package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/modmail/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every pooled connection gets its own :memory: database; pin to one.
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// statsRow reads the raw counters for one staff member.
func statsRow(t *testing.T, database *sql.DB, staffID string) (claimed, closed, ratingCount, ratingSum int) {
	t.Helper()
	err := database.QueryRow(
		"SELECT claimed, closed, rating_count, rating_sum FROM staff_stats WHERE staff_id = ?",
		staffID,
	).Scan(&claimed, &closed, &ratingCount, &ratingSum)
	if err != nil {
		t.Fatalf("failed to read stats row for %s: %v", staffID, err)
	}
	return claimed, closed, ratingCount, ratingSum
}
