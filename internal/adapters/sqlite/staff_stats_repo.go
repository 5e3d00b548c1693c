package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/modmail/internal/ports/secondary"
)

// StaffStatsRepository implements secondary.StaffStatsRepository with SQLite.
type StaffStatsRepository struct {
	db *sql.DB
}

// NewStaffStatsRepository creates a new SQLite staff stats repository.
func NewStaffStatsRepository(db *sql.DB) *StaffStatsRepository {
	return &StaffStatsRepository{db: db}
}

// AddRating records a rating for a staff member. Row creation, count
// increment and sum addition happen in one transaction.
func (r *StaffStatsRepository) AddRating(ctx context.Context, staffID string, rating int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO staff_stats (staff_id) VALUES (?)", staffID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to ensure stats row: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE staff_stats SET rating_count = rating_count + 1, rating_sum = rating_sum + ? WHERE staff_id = ?",
		rating, staffID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record rating: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List retrieves all staff stats ordered by claimed count descending.
func (r *StaffStatsRepository) List(ctx context.Context) ([]*secondary.StaffStatRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT staff_id, claimed, closed, rating_count, rating_sum FROM staff_stats ORDER BY claimed DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list staff stats: %w", err)
	}
	defer rows.Close()

	var stats []*secondary.StaffStatRecord
	for rows.Next() {
		record := &secondary.StaffStatRecord{}
		if err := rows.Scan(&record.StaffID, &record.Claimed, &record.Closed,
			&record.RatingCount, &record.RatingSum); err != nil {
			return nil, fmt.Errorf("failed to scan staff stats: %w", err)
		}
		stats = append(stats, record)
	}
	return stats, rows.Err()
}

// Ensure StaffStatsRepository implements the interface.
var _ secondary.StaffStatsRepository = (*StaffStatsRepository)(nil)
