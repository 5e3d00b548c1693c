package secondary

import (
	"context"
	"errors"
	"time"
)

// ErrDirectBlocked is returned when a direct message cannot be delivered,
// typically because the recipient has disabled them.
var ErrDirectBlocked = errors.New("direct message blocked by recipient")

// ControlKind identifies the interactive control attached to a message.
type ControlKind int

const (
	// ControlNone attaches no control.
	ControlNone ControlKind = iota
	// ControlLifecycle attaches the claim/transfer/close buttons.
	ControlLifecycle
	// ControlCategorySelect attaches the category-selection menu.
	ControlCategorySelect
	// ControlTransferSelect attaches the transfer-target menu.
	ControlTransferSelect
	// ControlRatingSelect attaches the 1-5 rating menu.
	ControlRatingSelect
)

// SelectOption is one entry of a select-menu control.
type SelectOption struct {
	Label string
	Value string
}

// Control describes an interactive control for the platform adapter to
// render. IssuedAt is encoded into the control so validity windows survive
// process restarts.
type Control struct {
	Kind     ControlKind
	ThreadID string // rating and transfer controls are bound to a thread
	UserID   string // category menus are bound to the user they were sent to
	Options  []SelectOption
	IssuedAt time.Time
}

// Message is a platform-agnostic outbound message. Title and Body render as
// an embed; FilePath, when set, is attached as a file.
type Message struct {
	Title    string
	Body     string
	FilePath string
	Control  Control
}

// StaffMember is a resolved holder of a staff role.
type StaffMember struct {
	ID          string
	DisplayName string
}

// ThreadHistoryMessage is one message of a thread's history.
type ThreadHistoryMessage struct {
	AuthorID      string
	AuthorTag     string
	Content       string
	Timestamp     time.Time
	HasAttachment bool
}

// NameResolver resolves a platform user ID to a display name.
type NameResolver interface {
	UserName(ctx context.Context, userID string) (string, error)
}

// ChatPlatform defines the secondary port for the chat platform. Every call
// is fallible and never retried; callers decide per the error policy whether
// a failure is surfaced, logged, or swallowed.
type ChatPlatform interface {
	NameResolver

	// CreateThread opens a new ticket thread in the intake channel and
	// returns its ID.
	CreateThread(ctx context.Context, name string) (string, error)

	// SendThread posts a message into a thread.
	SendThread(ctx context.Context, threadID string, msg Message) error

	// SendDirect delivers a message to a user's direct channel.
	// Returns ErrDirectBlocked when the recipient cannot be reached.
	SendDirect(ctx context.Context, userID string, msg Message) error

	// SendChannel posts a message to a fixed channel (audit log, ratings).
	SendChannel(ctx context.Context, channelID string, msg Message) error

	// MentionRoles posts a role ping into a thread.
	MentionRoles(ctx context.Context, threadID string, roleIDs []string) error

	// ArchiveThread archives a thread.
	ArchiveThread(ctx context.Context, threadID string) error

	// DeleteThread deletes a thread entirely.
	DeleteThread(ctx context.Context, threadID string) error

	// StaffMembers lists all current holders of a staff role.
	StaffMembers(ctx context.Context) ([]StaffMember, error)

	// ThreadHistory returns a thread's full message history, oldest first.
	ThreadHistory(ctx context.Context, threadID string) ([]ThreadHistoryMessage, error)
}

// TranscriptExporter defines the secondary port for transcript export.
type TranscriptExporter interface {
	// Export writes the thread's transcript to disk and returns the file
	// path. Callers treat failure as non-fatal and proceed without the file.
	Export(ctx context.Context, threadID string) (string, error)
}
