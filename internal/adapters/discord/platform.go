// Package discord contains the Discord adapter: the gateway session, the
// event handlers and the ChatPlatform implementation over discordgo.
package discord

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/example/modmail/internal/config"
	"github.com/example/modmail/internal/ports/secondary"
)

const (
	embedColor = 0x5865F2

	threadArchiveMinutes = 10080 // 7 days
	memberPageSize       = 1000
	historyPageSize      = 100
)

// Platform implements secondary.ChatPlatform over a discordgo session.
type Platform struct {
	session *discordgo.Session
	cfg     *config.Config
}

// NewPlatform creates a new Platform bound to the configured guild.
func NewPlatform(session *discordgo.Session, cfg *config.Config) *Platform {
	return &Platform{session: session, cfg: cfg}
}

// CreateThread opens a public thread in the intake channel.
func (p *Platform) CreateThread(ctx context.Context, name string) (string, error) {
	thread, err := p.session.ThreadStart(
		p.cfg.IntakeChannelID, name,
		discordgo.ChannelTypeGuildPublicThread, threadArchiveMinutes,
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start thread: %w", err)
	}
	return thread.ID, nil
}

// SendThread posts a message into a thread.
func (p *Platform) SendThread(ctx context.Context, threadID string, msg secondary.Message) error {
	return p.send(ctx, threadID, msg)
}

// SendDirect delivers a message to a user's DM channel. Returns
// ErrDirectBlocked when the recipient's DMs are closed.
func (p *Platform) SendDirect(ctx context.Context, userID string, msg secondary.Message) error {
	channel, err := p.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	if err := p.send(ctx, channel.ID, msg); err != nil {
		if isDMBlocked(err) {
			return secondary.ErrDirectBlocked
		}
		return err
	}
	return nil
}

// SendChannel posts a message to a fixed channel.
func (p *Platform) SendChannel(ctx context.Context, channelID string, msg secondary.Message) error {
	return p.send(ctx, channelID, msg)
}

func (p *Platform) send(ctx context.Context, channelID string, msg secondary.Message) error {
	data := &discordgo.MessageSend{
		Components: componentsFor(msg.Control),
	}
	if msg.Title != "" || msg.Body != "" {
		data.Embeds = []*discordgo.MessageEmbed{{
			Title:       msg.Title,
			Description: msg.Body,
			Color:       embedColor,
		}}
	}

	if msg.FilePath != "" {
		f, err := os.Open(msg.FilePath)
		if err != nil {
			return fmt.Errorf("failed to open attachment: %w", err)
		}
		defer f.Close()
		data.Files = []*discordgo.File{{
			Name:        filepath.Base(msg.FilePath),
			ContentType: "text/plain",
			Reader:      f,
		}}
	}

	if _, err := p.session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// MentionRoles posts a plain role ping into a thread so the roles actually
// get notified; embeds do not trigger mentions.
func (p *Platform) MentionRoles(ctx context.Context, threadID string, roleIDs []string) error {
	if len(roleIDs) == 0 {
		return nil
	}
	mentions := make([]string, len(roleIDs))
	for i, id := range roleIDs {
		mentions[i] = "<@&" + id + ">"
	}
	_, err := p.session.ChannelMessageSendComplex(threadID, &discordgo.MessageSend{
		Content:         strings.Join(mentions, " "),
		AllowedMentions: &discordgo.MessageAllowedMentions{Roles: roleIDs},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to mention roles: %w", err)
	}
	return nil
}

// ArchiveThread archives a thread.
func (p *Platform) ArchiveThread(ctx context.Context, threadID string) error {
	archived := true
	_, err := p.session.ChannelEditComplex(threadID, &discordgo.ChannelEdit{
		Archived: &archived,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to archive thread: %w", err)
	}
	return nil
}

// DeleteThread deletes a thread entirely.
func (p *Platform) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := p.session.ChannelDelete(threadID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// UserName resolves a user ID to a display name.
func (p *Platform) UserName(ctx context.Context, userID string) (string, error) {
	user, err := p.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to fetch user: %w", err)
	}
	if user.GlobalName != "" {
		return user.GlobalName, nil
	}
	return user.Username, nil
}

// StaffMembers lists every guild member holding a staff role.
func (p *Platform) StaffMembers(ctx context.Context) ([]secondary.StaffMember, error) {
	var staff []secondary.StaffMember
	after := ""
	for {
		page, err := p.session.GuildMembers(p.cfg.GuildID, after, memberPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list guild members: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			if m.User == nil || m.User.Bot {
				continue
			}
			if hasAnyRole(m.Roles, p.cfg.StaffRoleIDs) {
				staff = append(staff, secondary.StaffMember{
					ID:          m.User.ID,
					DisplayName: m.DisplayName(),
				})
			}
		}
		after = page[len(page)-1].User.ID
		if len(page) < memberPageSize {
			break
		}
	}
	return staff, nil
}

// ThreadHistory returns the thread's full message history, oldest first.
func (p *Platform) ThreadHistory(ctx context.Context, threadID string) ([]secondary.ThreadHistoryMessage, error) {
	var history []secondary.ThreadHistoryMessage
	before := ""
	for {
		page, err := p.session.ChannelMessages(threadID, historyPageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch thread messages: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			history = append(history, secondary.ThreadHistoryMessage{
				AuthorID:      m.Author.ID,
				AuthorTag:     m.Author.String(),
				Content:       m.Content,
				Timestamp:     m.Timestamp,
				HasAttachment: len(m.Attachments) > 0,
			})
		}
		before = page[len(page)-1].ID
		if len(page) < historyPageSize {
			break
		}
	}

	// The API returns newest first.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// isDMBlocked reports whether the REST error means the recipient's DMs are
// closed.
func isDMBlocked(err error) bool {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil {
		return rest.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser
	}
	return false
}

func hasAnyRole(held, wanted []string) bool {
	for _, h := range held {
		for _, w := range wanted {
			if h == w {
				return true
			}
		}
	}
	return false
}

// Ensure Platform implements the interface.
var _ secondary.ChatPlatform = (*Platform)(nil)
