// Package primary defines the primary ports (driving interfaces) for the bot.
// These are the interfaces through which adapters drive the application.
package primary

import (
	"context"
	"errors"
	"time"
)

// DeniedError is a user-facing rejection: a guard said no, or a lookup the
// actor triggered found nothing. Adapters show Reason verbatim (ephemeral)
// and must not log it as a failure.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return e.Reason
}

// Denied builds a DeniedError.
func Denied(reason string) *DeniedError {
	return &DeniedError{Reason: reason}
}

// IsDenied reports whether err is a user-facing rejection.
func IsDenied(err error) bool {
	var denied *DeniedError
	return errors.As(err, &denied)
}

// Ticket is a support conversation as exposed to adapters.
type Ticket struct {
	ID         int64
	UserID     string
	ThreadID   string
	Category   string
	Created    string
	FirstReply string
	ClaimedBy  string
	Closed     bool
}

// StaffMember is a transfer candidate.
type StaffMember struct {
	ID   string
	Name string
}

// CreateTicketRequest carries a category-menu selection.
type CreateTicketRequest struct {
	UserID       string
	UserName     string
	MenuUserID   string // user the menu was issued to
	Category     string
	MenuIssuedAt time.Time
}

// CreateTicketResponse reports the created ticket's thread.
type CreateTicketResponse struct {
	ThreadID string
}

// ClaimTicketRequest carries a claim button press.
type ClaimTicketRequest struct {
	ThreadID      string
	ActorID       string
	ActorTag      string
	ActorRoleName string
	ActorRoles    []string
}

// TransferTargetsRequest asks for the transfer menu of a ticket.
type TransferTargetsRequest struct {
	ThreadID   string
	ActorID    string
	ActorRoles []string
}

// TransferTicketRequest carries a transfer-menu selection.
type TransferTicketRequest struct {
	ThreadID   string
	ActorID    string
	ActorTag   string
	ActorRoles []string
	TargetID   string
}

// CloseTicketRequest carries a close button press.
type CloseTicketRequest struct {
	ThreadID   string
	ActorID    string
	ActorTag   string
	ActorRoles []string
}

// SubmitRatingRequest carries a rating-menu selection from a closing DM.
type SubmitRatingRequest struct {
	ThreadID string
	ActorID  string
	ActorTag string
	Rating   int
	IssuedAt time.Time // decoded from the control
}

// TicketService is the primary port for the ticket lifecycle engine.
type TicketService interface {
	// CreateTicket creates a ticket from a category selection: thread,
	// ticket row, intro message with lifecycle controls, staff ping, audit
	// log. A guard rejection or an existing open ticket yields a DeniedError.
	CreateTicket(ctx context.Context, req CreateTicketRequest) (*CreateTicketResponse, error)

	// ClaimTicket assigns the ticket to the actor and notifies everyone
	// involved.
	ClaimTicket(ctx context.Context, req ClaimTicketRequest) error

	// TransferTargets validates that the actor may transfer the ticket and
	// returns the selectable staff members.
	TransferTargets(ctx context.Context, req TransferTargetsRequest) ([]*StaffMember, error)

	// TransferTicket reassigns the ticket to the chosen staff member.
	TransferTicket(ctx context.Context, req TransferTicketRequest) error

	// CloseTicket runs the close workflow: transcript, close transaction,
	// requester DM with rating control, in-thread notice, archive, delayed
	// delete. Best-effort steps never abort the workflow.
	CloseTicket(ctx context.Context, req CloseTicketRequest) error

	// SubmitRating records a 1-5 score for the claiming staff member.
	SubmitRating(ctx context.Context, req SubmitRatingRequest) error

	// OpenTickets lists all open tickets (startup restore).
	OpenTickets(ctx context.Context) ([]*Ticket, error)
}
