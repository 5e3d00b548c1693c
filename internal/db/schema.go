package db

// SchemaSQL is the complete schema for fresh installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All repository
// tests load it via GetSchemaSQL() instead of hardcoding CREATE TABLE
// statements, so a column referenced by repository code but missing here
// fails immediately with "no such column".
//
// The partial unique index on tickets enforces the one-open-ticket-per-user
// invariant at the storage layer: a second INSERT for a user with an open
// ticket fails with a constraint violation, regardless of in-process locking.
const SchemaSQL = `
-- Tickets (one per platform thread, never deleted)
CREATE TABLE IF NOT EXISTS tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	thread_id TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL,
	created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	first_reply DATETIME,
	claimed_by TEXT,
	closed INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_active_user
	ON tickets(user_id) WHERE closed = 0;

-- Staff stats (lazy row per staff member, counters only ever grow)
CREATE TABLE IF NOT EXISTS staff_stats (
	staff_id TEXT PRIMARY KEY,
	claimed INTEGER NOT NULL DEFAULT 0,
	closed INTEGER NOT NULL DEFAULT 0,
	rating_count INTEGER NOT NULL DEFAULT 0,
	rating_sum INTEGER NOT NULL DEFAULT 0
);
`

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
