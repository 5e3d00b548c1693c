package discord

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/example/modmail/internal/config"
	"github.com/example/modmail/internal/ports/primary"
)

func handlersTestConfig() *config.Config {
	return &config.Config{
		Token:            "token",
		GuildID:          "guild-1",
		IntakeChannelID:  "200",
		LogChannelID:     "300",
		RatingsChannelID: "400",
		StaffRoleIDs:     []string{"role-mod", "role-admin"},
		CategoryRoles:    map[string][]string{"GENERAL": nil},
		CommandPrefix:    "!",
	}
}

// mockIntakeService records routed events.
type mockIntakeService struct {
	directs []primary.DirectMessageEvent
	threads []primary.ThreadMessageEvent
}

func (m *mockIntakeService) HandleDirectMessage(ctx context.Context, evt primary.DirectMessageEvent) error {
	m.directs = append(m.directs, evt)
	return nil
}

func (m *mockIntakeService) HandleThreadMessage(ctx context.Context, evt primary.ThreadMessageEvent) error {
	m.threads = append(m.threads, evt)
	return nil
}

// mockLifecycleService satisfies primary.TicketService where handlers only
// need a stub.
type mockLifecycleService struct{}

func (mockLifecycleService) CreateTicket(ctx context.Context, req primary.CreateTicketRequest) (*primary.CreateTicketResponse, error) {
	return &primary.CreateTicketResponse{}, nil
}
func (mockLifecycleService) ClaimTicket(ctx context.Context, req primary.ClaimTicketRequest) error {
	return nil
}
func (mockLifecycleService) TransferTargets(ctx context.Context, req primary.TransferTargetsRequest) ([]*primary.StaffMember, error) {
	return nil, nil
}
func (mockLifecycleService) TransferTicket(ctx context.Context, req primary.TransferTicketRequest) error {
	return nil
}
func (mockLifecycleService) CloseTicket(ctx context.Context, req primary.CloseTicketRequest) error {
	return nil
}
func (mockLifecycleService) SubmitRating(ctx context.Context, req primary.SubmitRatingRequest) error {
	return nil
}
func (mockLifecycleService) OpenTickets(ctx context.Context) ([]*primary.Ticket, error) {
	return nil, nil
}

// mockStatsService counts invocations.
type mockStatsService struct {
	calls int
}

func (m *mockStatsService) StaffStats(ctx context.Context) ([]*primary.StaffStat, error) {
	m.calls++
	return nil, nil
}

type handlersFixture struct {
	handlers *Handlers
	intake   *mockIntakeService
	stats    *mockStatsService
	session  *discordgo.Session
}

// newHandlersFixture builds the router plus an offline session whose state
// holds one guild with a staff role and a higher-positioned vanity role.
func newHandlersFixture(t *testing.T) *handlersFixture {
	t.Helper()

	session, err := discordgo.New("Bot test")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	err = session.State.GuildAdd(&discordgo.Guild{
		ID: "guild-1",
		Roles: []*discordgo.Role{
			{ID: "role-mod", Name: "Moderator", Position: 1},
			{ID: "role-admin", Name: "Admin", Position: 2},
			{ID: "role-party", Name: "Event Winner", Position: 5},
		},
	})
	if err != nil {
		t.Fatalf("failed to seed guild state: %v", err)
	}

	intake := &mockIntakeService{}
	stats := &mockStatsService{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &handlersFixture{
		handlers: NewHandlers(handlersTestConfig(), mockLifecycleService{}, intake, stats, log),
		intake:   intake,
		stats:    stats,
		session:  session,
	}
}

func guildMessage(author string, roles []string, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		GuildID:   "guild-1",
		ChannelID: "t-1",
		Content:   content,
		Author:    &discordgo.User{ID: author, Username: author},
		Member:    &discordgo.Member{Roles: roles},
	}}
}

func TestOnMessageCreate_RoutesDMs(t *testing.T) {
	f := newHandlersFixture(t)

	f.handlers.onMessageCreate(f.session, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID: "dm-1",
		Content:   "help me",
		Author:    &discordgo.User{ID: "user-1", Username: "alice"},
	}})

	if len(f.intake.directs) != 1 || f.intake.directs[0].UserID != "user-1" {
		t.Fatalf("expected 1 direct-message event for user-1, got %+v", f.intake.directs)
	}
	if len(f.intake.threads) != 0 {
		t.Error("a DM must not take the thread path")
	}
}

func TestOnMessageCreate_NonStaffThreadAuthorRelayed(t *testing.T) {
	f := newHandlersFixture(t)

	f.handlers.onMessageCreate(f.session, guildMessage("user-2", []string{"role-party"}, "me too, same issue"))

	if len(f.intake.threads) != 1 {
		t.Fatalf("expected the non-staff thread message to reach the router, got %d events", len(f.intake.threads))
	}
	evt := f.intake.threads[0]
	if evt.ThreadID != "t-1" || evt.Content != "me too, same issue" {
		t.Errorf("unexpected event %+v", evt)
	}
	if evt.AuthorRoleName != fallbackRoleName {
		t.Errorf("non-staff author must be tagged %q, got %q", fallbackRoleName, evt.AuthorRoleName)
	}
}

func TestOnMessageCreate_BotMessagesIgnored(t *testing.T) {
	f := newHandlersFixture(t)

	msg := guildMessage("bot-1", []string{"role-mod"}, "automated notice")
	msg.Author.Bot = true
	f.handlers.onMessageCreate(f.session, msg)

	if len(f.intake.threads) != 0 || len(f.intake.directs) != 0 {
		t.Error("bot messages must not be routed")
	}
}

func TestOnMessageCreate_StatsCommandStaffOnly(t *testing.T) {
	f := newHandlersFixture(t)

	f.handlers.onMessageCreate(f.session, guildMessage("user-2", []string{"role-party"}, "!stats"))

	if f.stats.calls != 0 {
		t.Error("non-staff must not trigger the stats command")
	}
	if len(f.intake.threads) != 0 {
		t.Error("a command attempt must not be relayed to the requester")
	}
}

func TestTopRoleName_HighestStaffRole(t *testing.T) {
	f := newHandlersFixture(t)

	name := f.handlers.topRoleName(f.session, "guild-1", []string{"role-mod", "role-admin"})
	if name != "Admin" {
		t.Errorf("expected highest staff role Admin, got %q", name)
	}
}

func TestTopRoleName_IgnoresVanityRoles(t *testing.T) {
	f := newHandlersFixture(t)

	// The vanity role outranks the staff role; only staff roles count for
	// the tag.
	name := f.handlers.topRoleName(f.session, "guild-1", []string{"role-mod", "role-party"})
	if name != "Moderator" {
		t.Errorf("expected staff role Moderator, got %q", name)
	}
}

func TestTopRoleName_Fallbacks(t *testing.T) {
	f := newHandlersFixture(t)

	if name := f.handlers.topRoleName(f.session, "guild-1", []string{"role-party"}); name != fallbackRoleName {
		t.Errorf("member with no staff role: expected %q, got %q", fallbackRoleName, name)
	}
	if name := f.handlers.topRoleName(f.session, "guild-404", []string{"role-mod"}); name != fallbackRoleName {
		t.Errorf("unknown guild: expected %q, got %q", fallbackRoleName, name)
	}
}
