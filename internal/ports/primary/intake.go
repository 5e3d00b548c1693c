package primary

import "context"

// DirectMessageEvent is an inbound direct message from a non-bot user.
type DirectMessageEvent struct {
	UserID   string
	UserName string
	Content  string
}

// ThreadMessageEvent is an inbound message posted inside a ticket thread.
type ThreadMessageEvent struct {
	ThreadID       string
	AuthorID       string
	AuthorTag      string
	AuthorRoleName string
	Content        string
}

// IntakeService is the primary port for the inbound message router.
type IntakeService interface {
	// HandleDirectMessage forwards the message into the sender's open ticket,
	// or starts the category-selection flow when they have none.
	HandleDirectMessage(ctx context.Context, evt DirectMessageEvent) error

	// HandleThreadMessage forwards a staff reply to the requester by direct
	// message, falling back to an in-thread warning when DMs are blocked.
	HandleThreadMessage(ctx context.Context, evt ThreadMessageEvent) error
}
