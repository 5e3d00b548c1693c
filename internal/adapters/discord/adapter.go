package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// NewSession builds a configured but unconnected gateway session. The
// message-content intent is required to read DM and thread text.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	return session, nil
}

// Run opens the gateway connection and blocks until the context is
// cancelled.
func Run(ctx context.Context, session *discordgo.Session, log *slog.Logger) error {
	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	log.Info("gateway connection open")

	<-ctx.Done()

	log.Info("shutting down")
	if err := session.Close(); err != nil {
		return fmt.Errorf("failed to close gateway connection: %w", err)
	}
	return nil
}
