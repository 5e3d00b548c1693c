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

// defaultDeleteDelay is how long a closed thread stays visible before the
// delayed delete.
const defaultDeleteDelay = 2 * time.Second

// TicketServiceImpl implements the TicketService interface.
//
// Every workflow follows the same shape: load the ticket, evaluate the pure
// guard, run the state mutation, then fire the notifications. Notification
// failures are logged and never abort the workflow; mutations and guard
// rejections are the only errors callers see.
type TicketServiceImpl struct {
	cfg         *config.Config
	tickets     secondary.TicketRepository
	stats       secondary.StaffStatsRepository
	platform    secondary.ChatPlatform
	transcripts secondary.TranscriptExporter
	sessions    *SessionStore
	log         *slog.Logger

	deleteDelay time.Duration
}

// NewTicketService creates a new TicketService with injected dependencies.
func NewTicketService(
	cfg *config.Config,
	tickets secondary.TicketRepository,
	stats secondary.StaffStatsRepository,
	platform secondary.ChatPlatform,
	transcripts secondary.TranscriptExporter,
	sessions *SessionStore,
	log *slog.Logger,
) *TicketServiceImpl {
	return &TicketServiceImpl{
		cfg:         cfg,
		tickets:     tickets,
		stats:       stats,
		platform:    platform,
		transcripts: transcripts,
		sessions:    sessions,
		log:         log,
		deleteDelay: defaultDeleteDelay,
	}
}

// CreateTicket creates a ticket from a category-menu selection.
func (s *TicketServiceImpl) CreateTicket(ctx context.Context, req primary.CreateTicketRequest) (*primary.CreateTicketResponse, error) {
	guard := ticket.CanSelectCategory(ticket.MenuSelectContext{
		ActorID:    req.UserID,
		MenuUserID: req.MenuUserID,
		IssuedAt:   req.MenuIssuedAt,
		Now:        time.Now(),
	})
	if !guard.Allowed {
		return nil, primary.Denied(guard.Reason)
	}
	if !s.cfg.HasCategory(req.Category) {
		return nil, primary.Denied("unknown category")
	}

	active, err := s.tickets.GetActiveByUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active ticket: %w", err)
	}
	if active != nil {
		return nil, primary.Denied("you already have an open ticket")
	}

	threadID, err := s.platform.CreateThread(ctx, fmt.Sprintf("%s-%s", req.Category, req.UserName))
	if err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	err = s.tickets.Create(ctx, &secondary.TicketRecord{
		UserID:   req.UserID,
		ThreadID: threadID,
		Category: req.Category,
	})
	if err != nil {
		// The thread exists but its ticket row does not; remove the orphan.
		if derr := s.platform.DeleteThread(ctx, threadID); derr != nil {
			s.log.Warn("orphan thread cleanup failed", "thread", threadID, "error", derr)
		}
		if errors.Is(err, secondary.ErrActiveTicketExists) {
			return nil, primary.Denied("you already have an open ticket")
		}
		return nil, err
	}
	s.sessions.Evict(req.UserID)

	intro := secondary.Message{
		Title: "📩 New ticket",
		Body:  fmt.Sprintf("**User:** %s (%s)\n**Category:** %s", req.UserName, req.UserID, req.Category),
		Control: secondary.Control{
			Kind:     secondary.ControlLifecycle,
			ThreadID: threadID,
		},
	}
	if err := s.platform.SendThread(ctx, threadID, intro); err != nil {
		s.log.Warn("intro message failed", "thread", threadID, "error", err)
	}
	if err := s.platform.MentionRoles(ctx, threadID, s.cfg.NotifyRoles(req.Category)); err != nil {
		s.log.Warn("staff ping failed", "thread", threadID, "error", err)
	}
	s.audit(ctx, "📩 Ticket opened", fmt.Sprintf("%s → %s", req.UserName, req.Category))

	return &primary.CreateTicketResponse{ThreadID: threadID}, nil
}

// ClaimTicket assigns the ticket to the actor.
func (s *TicketServiceImpl) ClaimTicket(ctx context.Context, req primary.ClaimTicketRequest) error {
	rec, err := s.loadTicket(ctx, req.ThreadID)
	if err != nil {
		return err
	}

	guard := ticket.CanClaim(ticket.ClaimContext{
		ActorRoles:    req.ActorRoles,
		StaffRoles:    s.cfg.StaffRoleIDs,
		CategoryRoles: s.cfg.ClaimRoles(rec.Category),
		Closed:        rec.Closed,
	})
	if !guard.Allowed {
		return primary.Denied(guard.Reason)
	}

	if err := s.tickets.Claim(ctx, req.ThreadID, req.ActorID); err != nil {
		if errors.Is(err, secondary.ErrTicketClosed) {
			return primary.Denied("this ticket is already closed")
		}
		return fmt.Errorf("failed to claim ticket: %w", err)
	}

	confirmation := secondary.Message{
		Title: "📌 Claimed",
		Body:  fmt.Sprintf("%s (**%s**) took this ticket.", req.ActorTag, req.ActorRoleName),
	}
	if err := s.platform.SendThread(ctx, req.ThreadID, confirmation); err != nil {
		s.log.Warn("claim confirmation failed", "thread", req.ThreadID, "error", err)
	}
	s.audit(ctx, "📌 Claim", fmt.Sprintf("%s claimed ticket %s", req.ActorTag, req.ThreadID))

	notice := secondary.Message{
		Title: "✅ In progress",
		Body:  fmt.Sprintf("**%s** took charge of your ticket (**%s**).", req.ActorTag, rec.Category),
	}
	if err := s.platform.SendDirect(ctx, rec.UserID, notice); err != nil {
		s.log.Warn("claim notice undeliverable", "user", rec.UserID, "error", err)
	}

	return nil
}

// TransferTargets validates the transfer and returns the selectable staff.
func (s *TicketServiceImpl) TransferTargets(ctx context.Context, req primary.TransferTargetsRequest) ([]*primary.StaffMember, error) {
	rec, err := s.loadTicket(ctx, req.ThreadID)
	if err != nil {
		return nil, err
	}
	if guard := s.ownerGuard(ticket.CanTransfer, rec, req.ActorID, req.ActorRoles); !guard.Allowed {
		return nil, primary.Denied(guard.Reason)
	}

	members, err := s.platform.StaffMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff members: %w", err)
	}
	if len(members) == 0 {
		return nil, primary.Denied("no staff members found")
	}

	targets := make([]*primary.StaffMember, len(members))
	for i, m := range members {
		targets[i] = &primary.StaffMember{ID: m.ID, Name: m.DisplayName}
	}
	return targets, nil
}

// TransferTicket reassigns the ticket to the chosen staff member.
func (s *TicketServiceImpl) TransferTicket(ctx context.Context, req primary.TransferTicketRequest) error {
	rec, err := s.loadTicket(ctx, req.ThreadID)
	if err != nil {
		return err
	}
	if guard := s.ownerGuard(ticket.CanTransfer, rec, req.ActorID, req.ActorRoles); !guard.Allowed {
		return primary.Denied(guard.Reason)
	}
	if !s.isStaffMember(ctx, req.TargetID) {
		return primary.Denied("the chosen member is not staff")
	}

	if err := s.tickets.Transfer(ctx, req.ThreadID, req.TargetID); err != nil {
		return fmt.Errorf("failed to transfer ticket: %w", err)
	}

	targetName := s.resolveName(ctx, req.TargetID)
	s.audit(ctx, "🔁 Transfer", fmt.Sprintf("%s → ticket %s → %s", req.ActorTag, req.ThreadID, targetName))

	notice := secondary.Message{
		Title: "🔄 Ticket transferred",
		Body:  fmt.Sprintf("Your ticket was transferred to **%s**.", targetName),
	}
	if err := s.platform.SendDirect(ctx, rec.UserID, notice); err != nil {
		s.log.Warn("transfer notice undeliverable", "user", rec.UserID, "error", err)
	}

	return nil
}

// CloseTicket runs the close workflow. Transcript export, notifications,
// archive and delete are best-effort; only the close transaction itself can
// fail the call.
func (s *TicketServiceImpl) CloseTicket(ctx context.Context, req primary.CloseTicketRequest) error {
	rec, err := s.loadTicket(ctx, req.ThreadID)
	if err != nil {
		return err
	}
	if guard := s.ownerGuard(ticket.CanClose, rec, req.ActorID, req.ActorRoles); !guard.Allowed {
		return primary.Denied(guard.Reason)
	}

	transcriptPath, err := s.transcripts.Export(ctx, req.ThreadID)
	if err != nil {
		s.log.Warn("transcript export failed", "thread", req.ThreadID, "error", err)
		transcriptPath = ""
	}

	if err := s.tickets.Close(ctx, req.ThreadID, req.ActorID); err != nil {
		if errors.Is(err, secondary.ErrTicketClosed) {
			return primary.Denied("this ticket is already closed")
		}
		return fmt.Errorf("failed to close ticket: %w", err)
	}

	closing := secondary.Message{
		Title:    "🔒 Ticket closed",
		Body:     fmt.Sprintf("Your ticket (**%s**) was closed by **%s**.", rec.Category, req.ActorTag),
		FilePath: transcriptPath,
		Control: secondary.Control{
			Kind:     secondary.ControlRatingSelect,
			ThreadID: req.ThreadID,
			IssuedAt: time.Now(),
		},
	}
	if err := s.platform.SendDirect(ctx, rec.UserID, closing); err != nil {
		s.log.Warn("closing notice undeliverable", "user", rec.UserID, "error", err)
	}

	notice := secondary.Message{
		Title: "🔒 Closed",
		Body:  fmt.Sprintf("Closed by %s.", req.ActorTag),
	}
	if err := s.platform.SendThread(ctx, req.ThreadID, notice); err != nil {
		s.log.Warn("closing thread notice failed", "thread", req.ThreadID, "error", err)
	}
	s.audit(ctx, "🔒 Closed", fmt.Sprintf("%s closed ticket %s", req.ActorTag, req.ThreadID))

	if err := s.platform.ArchiveThread(ctx, req.ThreadID); err != nil {
		s.log.Warn("thread archive failed", "thread", req.ThreadID, "error", err)
	}
	time.Sleep(s.deleteDelay)
	if err := s.platform.DeleteThread(ctx, req.ThreadID); err != nil {
		s.log.Warn("thread delete failed", "thread", req.ThreadID, "error", err)
	}

	return nil
}

// SubmitRating records a score for the staff member who owned the ticket.
func (s *TicketServiceImpl) SubmitRating(ctx context.Context, req primary.SubmitRatingRequest) error {
	rec, err := s.loadTicket(ctx, req.ThreadID)
	if err != nil {
		return err
	}

	guard := ticket.CanSubmitRating(ticket.RatingContext{
		ActorID:     req.ActorID,
		RequesterID: rec.UserID,
		ClaimedBy:   rec.ClaimedBy,
		Rating:      req.Rating,
		IssuedAt:    req.IssuedAt,
		Now:         time.Now(),
	})
	if !guard.Allowed {
		return primary.Denied(guard.Reason)
	}

	if err := s.stats.AddRating(ctx, rec.ClaimedBy, req.Rating); err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}

	staffName := s.resolveName(ctx, rec.ClaimedBy)
	announcement := secondary.Message{
		Title: "⭐ New rating",
		Body: fmt.Sprintf("**Score:** %d/5\n**Staff:** %s (%s)\n**Rated by:** %s (%s)",
			req.Rating, staffName, rec.ClaimedBy, req.ActorTag, req.ActorID),
	}
	if err := s.platform.SendChannel(ctx, s.cfg.RatingsChannelID, announcement); err != nil {
		s.log.Warn("rating announcement failed", "error", err)
	}

	return nil
}

// OpenTickets lists all open tickets for startup restore.
func (s *TicketServiceImpl) OpenTickets(ctx context.Context) ([]*primary.Ticket, error) {
	records, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open tickets: %w", err)
	}

	tickets := make([]*primary.Ticket, len(records))
	for i, r := range records {
		tickets[i] = recordToTicket(r)
	}
	return tickets, nil
}

// Helper methods

func (s *TicketServiceImpl) loadTicket(ctx context.Context, threadID string) (*secondary.TicketRecord, error) {
	rec, err := s.tickets.GetByThread(ctx, threadID)
	if errors.Is(err, secondary.ErrTicketNotFound) {
		return nil, primary.Denied("no ticket is attached to this thread")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	return rec, nil
}

func (s *TicketServiceImpl) ownerGuard(
	guard func(ticket.OwnerContext) ticket.GuardResult,
	rec *secondary.TicketRecord,
	actorID string,
	actorRoles []string,
) ticket.GuardResult {
	return guard(ticket.OwnerContext{
		ActorID:    actorID,
		ActorRoles: actorRoles,
		StaffRoles: s.cfg.StaffRoleIDs,
		ClaimedBy:  rec.ClaimedBy,
		Closed:     rec.Closed,
	})
}

func (s *TicketServiceImpl) isStaffMember(ctx context.Context, userID string) bool {
	members, err := s.platform.StaffMembers(ctx)
	if err != nil {
		s.log.Warn("staff member check failed", "error", err)
		return false
	}
	for _, m := range members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

func (s *TicketServiceImpl) resolveName(ctx context.Context, userID string) string {
	name, err := s.platform.UserName(ctx, userID)
	if err != nil || name == "" {
		return "ID:" + userID
	}
	return name
}

func (s *TicketServiceImpl) audit(ctx context.Context, title, body string) {
	err := s.platform.SendChannel(ctx, s.cfg.LogChannelID, secondary.Message{Title: title, Body: body})
	if err != nil {
		s.log.Warn("audit log failed", "error", err)
	}
}

func recordToTicket(r *secondary.TicketRecord) *primary.Ticket {
	return &primary.Ticket{
		ID:         r.ID,
		UserID:     r.UserID,
		ThreadID:   r.ThreadID,
		Category:   r.Category,
		Created:    r.Created,
		FirstReply: r.FirstReply,
		ClaimedBy:  r.ClaimedBy,
		Closed:     r.Closed,
	}
}

// Ensure TicketServiceImpl implements the interface.
var _ primary.TicketService = (*TicketServiceImpl)(nil)
