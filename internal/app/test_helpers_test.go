package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/example/modmail/internal/config"
	"github.com/example/modmail/internal/ports/secondary"
)

func testConfig() *config.Config {
	return &config.Config{
		Token:            "token",
		GuildID:          "100",
		IntakeChannelID:  "200",
		LogChannelID:     "300",
		RatingsChannelID: "400",
		StaffRoleIDs:     []string{"r-mod", "r-admin"},
		CategoryRoles: map[string][]string{
			"BILLING": {"r-admin"},
			"GENERAL": nil,
		},
		DBPath:         ":memory:",
		TranscriptsDir: "transcripts",
		CommandPrefix:  "!",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ============================================================================
// Mock Implementations
// ============================================================================

// Ensure the mocks implement the interfaces.
var (
	_ secondary.TicketRepository     = (*mockTicketRepository)(nil)
	_ secondary.StaffStatsRepository = (*mockStatsRepository)(nil)
	_ secondary.ChatPlatform         = (*mockPlatform)(nil)
	_ secondary.TranscriptExporter   = (*mockExporter)(nil)
)

// mockTicketRepository implements secondary.TicketRepository in memory,
// including the one-open-ticket-per-user storage invariant.
type mockTicketRepository struct {
	mu        sync.Mutex
	byThread  map[string]*secondary.TicketRecord
	nextID    int64
	createErr error
	getErr    error
	claimErr  error
	closeErr  error
}

func newMockTicketRepository() *mockTicketRepository {
	return &mockTicketRepository{byThread: make(map[string]*secondary.TicketRecord)}
}

func (m *mockTicketRepository) Create(ctx context.Context, ticket *secondary.TicketRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, t := range m.byThread {
		if t.UserID == ticket.UserID && !t.Closed {
			return secondary.ErrActiveTicketExists
		}
	}
	m.nextID++
	stored := *ticket
	stored.ID = m.nextID
	stored.Created = time.Now().UTC().Format(time.RFC3339)
	m.byThread[ticket.ThreadID] = &stored
	return nil
}

func (m *mockTicketRepository) GetByThread(ctx context.Context, threadID string) (*secondary.TicketRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if t, ok := m.byThread[threadID]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, secondary.ErrTicketNotFound
}

func (m *mockTicketRepository) GetActiveByUser(ctx context.Context, userID string) (*secondary.TicketRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, t := range m.byThread {
		if t.UserID == userID && !t.Closed {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockTicketRepository) Claim(ctx context.Context, threadID, staffID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimErr != nil {
		return m.claimErr
	}
	t, ok := m.byThread[threadID]
	if !ok {
		return secondary.ErrTicketNotFound
	}
	if t.Closed {
		return secondary.ErrTicketClosed
	}
	t.ClaimedBy = staffID
	if t.FirstReply == "" {
		t.FirstReply = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

func (m *mockTicketRepository) Transfer(ctx context.Context, threadID, staffID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byThread[threadID]
	if !ok || t.Closed {
		return secondary.ErrTicketNotFound
	}
	t.ClaimedBy = staffID
	return nil
}

func (m *mockTicketRepository) Close(ctx context.Context, threadID, staffID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeErr != nil {
		return m.closeErr
	}
	t, ok := m.byThread[threadID]
	if !ok {
		return secondary.ErrTicketNotFound
	}
	if t.Closed {
		return secondary.ErrTicketClosed
	}
	t.Closed = true
	return nil
}

func (m *mockTicketRepository) ListOpen(ctx context.Context) ([]*secondary.TicketRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var open []*secondary.TicketRecord
	for _, t := range m.byThread {
		if !t.Closed {
			copied := *t
			open = append(open, &copied)
		}
	}
	return open, nil
}

// seed inserts a ticket directly, bypassing invariants.
func (m *mockTicketRepository) seed(t *secondary.TicketRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byThread[t.ThreadID] = t
}

// mockStatsRepository implements secondary.StaffStatsRepository in memory.
type mockStatsRepository struct {
	mu      sync.Mutex
	ratings map[string][]int
	listErr error
	addErr  error
	rows    []*secondary.StaffStatRecord
}

func newMockStatsRepository() *mockStatsRepository {
	return &mockStatsRepository{ratings: make(map[string][]int)}
}

func (m *mockStatsRepository) AddRating(ctx context.Context, staffID string, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.ratings[staffID] = append(m.ratings[staffID], rating)
	return nil
}

func (m *mockStatsRepository) List(ctx context.Context) ([]*secondary.StaffStatRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rows, nil
}

// platformCall records one outbound platform operation.
type platformCall struct {
	method string
	target string // thread/channel/user ID depending on method
	msg    secondary.Message
	roles  []string
}

// mockPlatform implements secondary.ChatPlatform and records every call.
type mockPlatform struct {
	mu    sync.Mutex
	calls []platformCall

	nextThreadID    int
	createThreadErr error
	sendDirectErr   error
	sendThreadErr   error
	staff           []secondary.StaffMember
	staffErr        error
	names           map[string]string
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{names: make(map[string]string)}
}

func (m *mockPlatform) record(call platformCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// callsTo returns all recorded calls for one method.
func (m *mockPlatform) callsTo(method string) []platformCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []platformCall
	for _, c := range m.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockPlatform) CreateThread(ctx context.Context, name string) (string, error) {
	if m.createThreadErr != nil {
		return "", m.createThreadErr
	}
	m.mu.Lock()
	m.nextThreadID++
	id := m.nextThreadID
	m.mu.Unlock()
	threadID := "thread-" + name + "-" + strconv.Itoa(id)
	m.record(platformCall{method: "CreateThread", target: threadID})
	return threadID, nil
}

func (m *mockPlatform) SendThread(ctx context.Context, threadID string, msg secondary.Message) error {
	if m.sendThreadErr != nil {
		return m.sendThreadErr
	}
	m.record(platformCall{method: "SendThread", target: threadID, msg: msg})
	return nil
}

func (m *mockPlatform) SendDirect(ctx context.Context, userID string, msg secondary.Message) error {
	if m.sendDirectErr != nil {
		return m.sendDirectErr
	}
	m.record(platformCall{method: "SendDirect", target: userID, msg: msg})
	return nil
}

func (m *mockPlatform) SendChannel(ctx context.Context, channelID string, msg secondary.Message) error {
	m.record(platformCall{method: "SendChannel", target: channelID, msg: msg})
	return nil
}

func (m *mockPlatform) MentionRoles(ctx context.Context, threadID string, roleIDs []string) error {
	m.record(platformCall{method: "MentionRoles", target: threadID, roles: roleIDs})
	return nil
}

func (m *mockPlatform) ArchiveThread(ctx context.Context, threadID string) error {
	m.record(platformCall{method: "ArchiveThread", target: threadID})
	return nil
}

func (m *mockPlatform) DeleteThread(ctx context.Context, threadID string) error {
	m.record(platformCall{method: "DeleteThread", target: threadID})
	return nil
}

func (m *mockPlatform) UserName(ctx context.Context, userID string) (string, error) {
	if name, ok := m.names[userID]; ok {
		return name, nil
	}
	return "", errors.New("user not found")
}

func (m *mockPlatform) StaffMembers(ctx context.Context) ([]secondary.StaffMember, error) {
	if m.staffErr != nil {
		return nil, m.staffErr
	}
	return m.staff, nil
}

func (m *mockPlatform) ThreadHistory(ctx context.Context, threadID string) ([]secondary.ThreadHistoryMessage, error) {
	return nil, nil
}

// mockExporter implements secondary.TranscriptExporter.
type mockExporter struct {
	path string
	err  error
}

func (m *mockExporter) Export(ctx context.Context, threadID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.path != "" {
		return m.path, nil
	}
	return "transcripts/transcript_" + threadID + ".txt", nil
}

// ============================================================================
// Service constructors for tests
// ============================================================================

type ticketServiceFixture struct {
	service  *TicketServiceImpl
	tickets  *mockTicketRepository
	stats    *mockStatsRepository
	platform *mockPlatform
	exporter *mockExporter
	sessions *SessionStore
}

func newTestTicketService() *ticketServiceFixture {
	tickets := newMockTicketRepository()
	stats := newMockStatsRepository()
	platform := newMockPlatform()
	exporter := &mockExporter{}
	sessions := NewSessionStore()

	service := NewTicketService(testConfig(), tickets, stats, platform, exporter, sessions, testLogger())
	service.deleteDelay = 0

	return &ticketServiceFixture{
		service:  service,
		tickets:  tickets,
		stats:    stats,
		platform: platform,
		exporter: exporter,
		sessions: sessions,
	}
}

func newTestIntakeService() (*IntakeServiceImpl, *mockTicketRepository, *mockPlatform, *SessionStore) {
	tickets := newMockTicketRepository()
	platform := newMockPlatform()
	sessions := NewSessionStore()
	service := NewIntakeService(testConfig(), tickets, platform, sessions, testLogger())
	return service, tickets, platform, sessions
}
