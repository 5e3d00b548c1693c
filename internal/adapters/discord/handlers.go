package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/example/modmail/internal/config"
	"github.com/example/modmail/internal/ports/primary"
)

// maxSelectOptions is Discord's hard limit on select-menu entries.
const maxSelectOptions = 25

const fallbackRoleName = "Staff"

// Handlers routes gateway events to the primary services.
type Handlers struct {
	cfg     *config.Config
	tickets primary.TicketService
	intake  primary.IntakeService
	stats   primary.StatsService
	log     *slog.Logger
}

// NewHandlers creates the gateway event router.
func NewHandlers(
	cfg *config.Config,
	tickets primary.TicketService,
	intake primary.IntakeService,
	stats primary.StatsService,
	log *slog.Logger,
) *Handlers {
	return &Handlers{cfg: cfg, tickets: tickets, intake: intake, stats: stats, log: log}
}

// Register attaches all handlers to the session.
func (h *Handlers) Register(s *discordgo.Session) {
	s.AddHandler(h.onReady)
	s.AddHandler(h.onMessageCreate)
	s.AddHandler(h.onInteractionCreate)
}

// onReady restores state after a (re)connect: open tickets stay usable
// because every control carries its context in the custom ID, so all that is
// left is reporting and presence.
func (h *Handlers) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	ctx := context.Background()
	open, err := h.tickets.OpenTickets(ctx)
	if err != nil {
		h.log.Error("failed to restore open tickets", "error", err)
		return
	}
	h.log.Info("gateway ready", "open_tickets", len(open))

	status := fmt.Sprintf("%d open tickets", len(open))
	if err := s.UpdateWatchStatus(0, status); err != nil {
		h.log.Warn("failed to set presence", "error", err)
	}
}

func (h *Handlers) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	ctx := context.Background()

	// No guild means a DM: the requester side of a ticket.
	if m.GuildID == "" {
		err := h.intake.HandleDirectMessage(ctx, primary.DirectMessageEvent{
			UserID:   m.Author.ID,
			UserName: m.Author.Username,
			Content:  m.Content,
		})
		if err != nil {
			h.log.Error("direct message handling failed", "user", m.Author.ID, "error", err)
		}
		return
	}

	if m.Member == nil {
		return
	}

	if strings.TrimSpace(m.Content) == h.cfg.CommandPrefix+"stats" {
		if h.cfg.IsStaff(m.Member.Roles) {
			h.handleStatsCommand(ctx, s, m.ChannelID)
		}
		return
	}

	// Every non-bot message in a ticket thread is relayed, staff or not;
	// the router drops messages from channels that back no ticket.
	err := h.intake.HandleThreadMessage(ctx, primary.ThreadMessageEvent{
		ThreadID:       m.ChannelID,
		AuthorID:       m.Author.ID,
		AuthorTag:      m.Author.String(),
		AuthorRoleName: h.topRoleName(s, m.GuildID, m.Member.Roles),
		Content:        m.Content,
	})
	if err != nil {
		h.log.Error("thread message handling failed", "thread", m.ChannelID, "error", err)
	}
}

func (h *Handlers) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	data := i.MessageComponentData()
	id, ok := parseCustomID(data.CustomID)
	if !ok {
		return
	}

	ctx := context.Background()
	actor, roles := interactionActor(i)
	if actor == nil {
		return
	}

	var err error
	var done string
	switch id.Action {
	case actionClaim:
		err = h.tickets.ClaimTicket(ctx, primary.ClaimTicketRequest{
			ThreadID:      i.ChannelID,
			ActorID:       actor.ID,
			ActorTag:      actor.String(),
			ActorRoleName: h.topRoleName(s, i.GuildID, roles),
			ActorRoles:    roles,
		})
		done = "Ticket claimed."

	case actionTransfer:
		h.respondTransferMenu(ctx, s, i, actor, roles)
		return

	case actionTransferPick:
		if len(data.Values) == 0 {
			return
		}
		err = h.tickets.TransferTicket(ctx, primary.TransferTicketRequest{
			ThreadID:   i.ChannelID,
			ActorID:    actor.ID,
			ActorTag:   actor.String(),
			ActorRoles: roles,
			TargetID:   data.Values[0],
		})
		done = "Ticket transferred."

	case actionClose:
		// Closing exports the transcript and waits out the delete delay,
		// which does not fit the initial-response deadline.
		h.respondDeferred(s, i)
		err = h.tickets.CloseTicket(ctx, primary.CloseTicketRequest{
			ThreadID:   i.ChannelID,
			ActorID:    actor.ID,
			ActorTag:   actor.String(),
			ActorRoles: roles,
		})
		h.followupOutcome(s, i, actionClose, err, "Ticket closed.")
		return

	case actionCategory:
		if len(data.Values) == 0 {
			return
		}
		_, err = h.tickets.CreateTicket(ctx, primary.CreateTicketRequest{
			UserID:       actor.ID,
			UserName:     actor.Username,
			MenuUserID:   id.Arg,
			Category:     data.Values[0],
			MenuIssuedAt: id.IssuedAt,
		})
		done = "Your ticket is open. Keep writing here; staff will answer shortly."

	case actionRate:
		if len(data.Values) == 0 {
			return
		}
		rating, aerr := strconv.Atoi(data.Values[0])
		if aerr != nil {
			return
		}
		err = h.tickets.SubmitRating(ctx, primary.SubmitRatingRequest{
			ThreadID: id.Arg,
			ActorID:  actor.ID,
			ActorTag: actor.String(),
			Rating:   rating,
			IssuedAt: id.IssuedAt,
		})
		done = "Thanks for the feedback!"

	default:
		return
	}

	h.respondOutcome(s, i, id.Action, err, done)
}

// respondTransferMenu answers the transfer button with an ephemeral staff
// picker.
func (h *Handlers) respondTransferMenu(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, actor *discordgo.User, roles []string) {
	targets, err := h.tickets.TransferTargets(ctx, primary.TransferTargetsRequest{
		ThreadID:   i.ChannelID,
		ActorID:    actor.ID,
		ActorRoles: roles,
	})
	if err != nil {
		h.respondOutcome(s, i, actionTransfer, err, "")
		return
	}

	options := make([]discordgo.SelectMenuOption, 0, maxSelectOptions)
	for _, t := range targets {
		if t.ID == actor.ID {
			continue
		}
		options = append(options, discordgo.SelectMenuOption{Label: t.Name, Value: t.ID})
		if len(options) == maxSelectOptions {
			break
		}
	}
	if len(options) == 0 {
		h.respondEphemeral(s, i, "Nobody to transfer to.")
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Transfer this ticket to:",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						MenuType:    discordgo.StringSelectMenu,
						CustomID:    encodeCustomID(actionTransferPick),
						Placeholder: "Choose a staff member",
						Options:     options,
					},
				},
			}},
		},
	})
	if err != nil {
		h.log.Warn("transfer menu response failed", "error", err)
	}
}

// respondOutcome maps a workflow result to the interaction response: denials
// show their reason, internal errors show a generic notice and get logged.
func (h *Handlers) respondOutcome(s *discordgo.Session, i *discordgo.InteractionCreate, action string, err error, done string) {
	switch {
	case err == nil:
		h.respondEphemeral(s, i, done)
	case primary.IsDenied(err):
		h.respondEphemeral(s, i, "❌ "+deniedReason(err))
	default:
		h.log.Error("interaction failed", "action", action, "error", err)
		h.respondEphemeral(s, i, "Something went wrong. Try again later.")
	}
}

// respondDeferred acknowledges the interaction immediately; the outcome
// arrives later as an ephemeral followup.
func (h *Handlers) respondDeferred(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		h.log.Warn("deferred response failed", "error", err)
	}
}

func (h *Handlers) followupOutcome(s *discordgo.Session, i *discordgo.InteractionCreate, action string, err error, done string) {
	content := done
	switch {
	case err == nil:
	case primary.IsDenied(err):
		content = "❌ " + deniedReason(err)
	default:
		h.log.Error("interaction failed", "action", action, "error", err)
		content = "Something went wrong. Try again later."
	}
	if _, ferr := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: content}); ferr != nil {
		h.log.Warn("interaction followup failed", "error", ferr)
	}
}

func (h *Handlers) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.log.Warn("interaction response failed", "error", err)
	}
}

func (h *Handlers) handleStatsCommand(ctx context.Context, s *discordgo.Session, channelID string) {
	stats, err := h.stats.StaffStats(ctx)
	if err != nil {
		h.log.Error("stats command failed", "error", err)
		return
	}

	var b strings.Builder
	if len(stats) == 0 {
		b.WriteString("Nothing recorded yet.")
	}
	for _, st := range stats {
		fmt.Fprintf(&b, "**%s** — %d claimed, %d closed", st.Name, st.Claimed, st.Closed)
		if st.RatingCount > 0 {
			fmt.Fprintf(&b, ", ⭐ %.2f (%d ratings)", st.Average, st.RatingCount)
		}
		b.WriteString("\n")
	}

	_, err = s.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       "📊 Staff statistics",
		Description: b.String(),
		Color:       embedColor,
	})
	if err != nil {
		h.log.Warn("stats message failed", "error", err)
	}
}

// topRoleName resolves the highest-positioned staff role a member holds, for
// the role tag shown in relayed replies and claim confirmations. Vanity roles
// do not count; members with no staff role are tagged with the fallback.
func (h *Handlers) topRoleName(s *discordgo.Session, guildID string, memberRoles []string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil || guild == nil {
		return fallbackRoleName
	}

	best := fallbackRoleName
	bestPos := -1
	for _, role := range guild.Roles {
		if role.Position <= bestPos || !h.cfg.IsStaff([]string{role.ID}) {
			continue
		}
		for _, held := range memberRoles {
			if held == role.ID {
				best = role.Name
				bestPos = role.Position
				break
			}
		}
	}
	return best
}

// interactionActor returns the invoking user and their guild roles; roles are
// empty for DM interactions.
func interactionActor(i *discordgo.InteractionCreate) (*discordgo.User, []string) {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User, i.Member.Roles
	}
	return i.User, nil
}

func deniedReason(err error) string {
	var denied *primary.DeniedError
	if errors.As(err, &denied) {
		return denied.Reason
	}
	return err.Error()
}
