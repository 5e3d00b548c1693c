// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/example/modmail/internal/ports/secondary"
)

// TicketRepository implements secondary.TicketRepository with SQLite.
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository creates a new SQLite ticket repository.
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = "id, user_id, thread_id, category, created, first_reply, claimed_by, closed"

// Create persists a new open ticket. The partial unique index on
// tickets(user_id) WHERE closed = 0 turns a concurrent duplicate into
// ErrActiveTicketExists.
func (r *TicketRepository) Create(ctx context.Context, ticket *secondary.TicketRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tickets (user_id, thread_id, category, created) VALUES (?, ?, ?, ?)",
		ticket.UserID, ticket.ThreadID, ticket.Category, time.Now().UTC(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return secondary.ErrActiveTicketExists
		}
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// GetByThread retrieves the ticket backing a thread.
func (r *TicketRepository) GetByThread(ctx context.Context, threadID string) (*secondary.TicketRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE thread_id = ?", threadID)

	record, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, secondary.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return record, nil
}

// GetActiveByUser retrieves the user's open ticket, or (nil, nil) when there
// is none.
func (r *TicketRepository) GetActiveByUser(ctx context.Context, userID string) (*secondary.TicketRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE user_id = ? AND closed = 0", userID)

	record, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active ticket: %w", err)
	}
	return record, nil
}

// Claim assigns the ticket, sets first_reply if unset, and bumps the staff
// member's claimed counter. All three statements run in one transaction so a
// crash cannot leave a claimed ticket without its counter.
func (r *TicketRepository) Claim(ctx context.Context, threadID, staffID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE tickets SET claimed_by = ?, first_reply = COALESCE(first_reply, ?) WHERE thread_id = ? AND closed = 0",
			staffID, time.Now().UTC(), threadID,
		)
		if err != nil {
			return fmt.Errorf("failed to claim ticket: %w", err)
		}
		if err := requireOpenRow(ctx, tx, res, threadID); err != nil {
			return err
		}
		return bumpCounter(ctx, tx, staffID, "claimed")
	})
}

// Transfer reassigns the ticket without touching first_reply or counters.
func (r *TicketRepository) Transfer(ctx context.Context, threadID, staffID string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tickets SET claimed_by = ? WHERE thread_id = ? AND closed = 0",
		staffID, threadID,
	)
	if err != nil {
		return fmt.Errorf("failed to transfer ticket: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return secondary.ErrTicketNotFound
	}
	return nil
}

// Close marks the ticket closed and bumps the staff member's closed counter
// in one transaction. A ticket that is already closed yields ErrTicketClosed
// and no counter change, making close idempotent at the data level.
func (r *TicketRepository) Close(ctx context.Context, threadID, staffID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE tickets SET closed = 1 WHERE thread_id = ? AND closed = 0", threadID)
		if err != nil {
			return fmt.Errorf("failed to close ticket: %w", err)
		}
		if err := requireOpenRow(ctx, tx, res, threadID); err != nil {
			return err
		}
		return bumpCounter(ctx, tx, staffID, "closed")
	})
}

// ListOpen retrieves all open tickets, oldest first.
func (r *TicketRepository) ListOpen(ctx context.Context) ([]*secondary.TicketRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE closed = 0 ORDER BY created ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list open tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*secondary.TicketRecord
	for rows.Next() {
		record, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, record)
	}
	return tickets, rows.Err()
}

func (r *TicketRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// requireOpenRow distinguishes "no such ticket" from "ticket already closed"
// after an UPDATE ... WHERE closed = 0 touched nothing.
func requireOpenRow(ctx context.Context, tx *sql.Tx, res sql.Result, threadID string) error {
	rows, _ := res.RowsAffected()
	if rows > 0 {
		return nil
	}
	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tickets WHERE thread_id = ?", threadID).Scan(&count); err != nil {
		return fmt.Errorf("failed to check ticket existence: %w", err)
	}
	if count == 0 {
		return secondary.ErrTicketNotFound
	}
	return secondary.ErrTicketClosed
}

func bumpCounter(ctx context.Context, tx *sql.Tx, staffID, column string) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO staff_stats (staff_id) VALUES (?)", staffID); err != nil {
		return fmt.Errorf("failed to ensure stats row: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE staff_stats SET "+column+" = "+column+" + 1 WHERE staff_id = ?", staffID); err != nil {
		return fmt.Errorf("failed to increment %s counter: %w", column, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*secondary.TicketRecord, error) {
	var (
		created    time.Time
		firstReply sql.NullTime
		claimedBy  sql.NullString
		closedInt  int
	)

	record := &secondary.TicketRecord{}
	err := row.Scan(&record.ID, &record.UserID, &record.ThreadID, &record.Category,
		&created, &firstReply, &claimedBy, &closedInt)
	if err != nil {
		return nil, err
	}

	record.Created = created.Format(time.RFC3339)
	if firstReply.Valid {
		record.FirstReply = firstReply.Time.Format(time.RFC3339)
	}
	record.ClaimedBy = claimedBy.String
	record.Closed = closedInt == 1

	return record, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

// Ensure TicketRepository implements the interface.
var _ secondary.TicketRepository = (*TicketRepository)(nil)
