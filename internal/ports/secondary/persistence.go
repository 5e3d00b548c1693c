// Package secondary defines the secondary ports (driven adapters) for the bot.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
)

// Domain conditions the repositories report. Callers branch on these with
// errors.Is; anything else is an infrastructure failure.
var (
	// ErrTicketNotFound is returned when no ticket matches the lookup.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketClosed is returned when a mutation targets a closed ticket.
	ErrTicketClosed = errors.New("ticket already closed")
	// ErrActiveTicketExists is returned when a create would give a user a
	// second open ticket. Enforced by the storage layer, not in-process locks.
	ErrActiveTicketExists = errors.New("user already has an open ticket")
)

// TicketRepository defines the secondary port for ticket persistence.
type TicketRepository interface {
	// Create persists a new open ticket. Returns ErrActiveTicketExists when
	// the requester already has an open ticket.
	Create(ctx context.Context, ticket *TicketRecord) error

	// GetByThread retrieves the ticket backing a thread.
	// Returns ErrTicketNotFound when no ticket exists for the thread.
	GetByThread(ctx context.Context, threadID string) (*TicketRecord, error)

	// GetActiveByUser retrieves the user's open ticket, or (nil, nil) when
	// the user has none.
	GetActiveByUser(ctx context.Context, userID string) (*TicketRecord, error)

	// Claim assigns the ticket to a staff member, sets first_reply if it was
	// never set, and increments the staff member's claimed counter, all in
	// one transaction.
	Claim(ctx context.Context, threadID, staffID string) error

	// Transfer reassigns the ticket to another staff member. first_reply is
	// not touched.
	Transfer(ctx context.Context, threadID, staffID string) error

	// Close marks the ticket closed and increments the staff member's closed
	// counter in one transaction. Returns ErrTicketClosed when the ticket is
	// already closed; the counter is not incremented in that case.
	Close(ctx context.Context, threadID, staffID string) error

	// ListOpen retrieves all open tickets, oldest first.
	ListOpen(ctx context.Context) ([]*TicketRecord, error)
}

// TicketRecord represents a ticket as stored in persistence.
type TicketRecord struct {
	ID         int64
	UserID     string
	ThreadID   string
	Category   string
	Created    string // RFC3339
	FirstReply string // RFC3339, empty until the first claim
	ClaimedBy  string // empty until claimed
	Closed     bool
}

// StaffStatsRepository defines the secondary port for the staff ledger.
type StaffStatsRepository interface {
	// AddRating records a rating for a staff member, creating the row lazily.
	// Count increment and sum addition happen in one transaction.
	AddRating(ctx context.Context, staffID string, rating int) error

	// List retrieves all staff stats ordered by claimed count descending.
	List(ctx context.Context) ([]*StaffStatRecord, error)
}

// StaffStatRecord represents a staff member's aggregate counters.
type StaffStatRecord struct {
	StaffID     string
	Claimed     int
	Closed      int
	RatingCount int
	RatingSum   int
}
