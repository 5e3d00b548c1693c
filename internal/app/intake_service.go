package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/modmail/internal/config"
	"github.com/example/modmail/internal/core/ticket"
	"github.com/example/modmail/internal/ports/primary"
	"github.com/example/modmail/internal/ports/secondary"
)

// IntakeServiceImpl implements the IntakeService interface: the router for
// inbound direct messages and ticket-thread messages.
type IntakeServiceImpl struct {
	cfg      *config.Config
	tickets  secondary.TicketRepository
	platform secondary.ChatPlatform
	sessions *SessionStore
	log      *slog.Logger
}

// NewIntakeService creates a new IntakeService with injected dependencies.
func NewIntakeService(
	cfg *config.Config,
	tickets secondary.TicketRepository,
	platform secondary.ChatPlatform,
	sessions *SessionStore,
	log *slog.Logger,
) *IntakeServiceImpl {
	return &IntakeServiceImpl{
		cfg:      cfg,
		tickets:  tickets,
		platform: platform,
		sessions: sessions,
		log:      log,
	}
}

// HandleDirectMessage forwards the message into the sender's open ticket, or
// starts the category-selection flow. The per-user session lock serializes
// the check-then-send-menu window so back-to-back messages from a brand-new
// user produce exactly one menu.
func (s *IntakeServiceImpl) HandleDirectMessage(ctx context.Context, evt primary.DirectMessageEvent) error {
	active, err := s.tickets.GetActiveByUser(ctx, evt.UserID)
	if err != nil {
		return fmt.Errorf("failed to look up active ticket: %w", err)
	}
	if active != nil {
		forward := secondary.Message{Title: "📨 Message", Body: evt.Content}
		if err := s.platform.SendThread(ctx, active.ThreadID, forward); err != nil {
			return fmt.Errorf("failed to forward message to thread: %w", err)
		}
		return nil
	}

	sess := s.sessions.entry(evt.UserID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Double-check under the lock: a concurrent message may have just
	// created the ticket.
	active, err = s.tickets.GetActiveByUser(ctx, evt.UserID)
	if err != nil {
		return fmt.Errorf("failed to re-check active ticket: %w", err)
	}
	if active != nil {
		return nil
	}

	now := time.Now()
	if sess.menuOutstanding(now, ticket.MenuValidity) {
		return nil
	}
	sess.menuSentAt = now

	options := make([]secondary.SelectOption, 0, len(s.cfg.CategoryRoles))
	for _, name := range s.cfg.CategoryNames() {
		options = append(options, secondary.SelectOption{Label: name, Value: name})
	}
	menu := secondary.Message{
		Title: "📬 Support",
		Body:  "Choose a category:",
		Control: secondary.Control{
			Kind:     secondary.ControlCategorySelect,
			UserID:   evt.UserID,
			Options:  options,
			IssuedAt: now,
		},
	}
	if err := s.platform.SendDirect(ctx, evt.UserID, menu); err != nil {
		// Undeliverable menu: forget it was sent so a later message retries.
		sess.menuSentAt = time.Time{}
		return fmt.Errorf("failed to send category menu: %w", err)
	}
	return nil
}

// HandleThreadMessage forwards a staff reply from a ticket thread to the
// requester by direct message. A blocked DM degrades to an in-thread warning.
func (s *IntakeServiceImpl) HandleThreadMessage(ctx context.Context, evt primary.ThreadMessageEvent) error {
	rec, err := s.tickets.GetByThread(ctx, evt.ThreadID)
	if errors.Is(err, secondary.ErrTicketNotFound) {
		return nil // not a ticket thread
	}
	if err != nil {
		return fmt.Errorf("failed to look up ticket: %w", err)
	}

	reply := secondary.Message{
		Title: "💬 Reply",
		Body:  fmt.Sprintf("**%s (%s)**\n\n%s", evt.AuthorTag, evt.AuthorRoleName, evt.Content),
	}
	if err := s.platform.SendDirect(ctx, rec.UserID, reply); err != nil {
		s.log.Warn("reply undeliverable, warning in thread", "user", rec.UserID, "error", err)
		warning := secondary.Message{Body: "⚠️ Could not deliver this reply: the user's DMs are closed."}
		if werr := s.platform.SendThread(ctx, evt.ThreadID, warning); werr != nil {
			s.log.Warn("thread warning failed", "thread", evt.ThreadID, "error", werr)
		}
	}
	return nil
}

// Ensure IntakeServiceImpl implements the interface.
var _ primary.IntakeService = (*IntakeServiceImpl)(nil)
