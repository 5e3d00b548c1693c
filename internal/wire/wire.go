// Package wire provides dependency injection for the modmail application.
// It assembles the full service graph from a validated configuration.
package wire

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/example/modmail/internal/adapters/discord"
	"github.com/example/modmail/internal/adapters/sqlite"
	"github.com/example/modmail/internal/adapters/transcript"
	"github.com/example/modmail/internal/app"
	"github.com/example/modmail/internal/config"
	"github.com/example/modmail/internal/db"
	"github.com/example/modmail/internal/ports/primary"
)

// App is the assembled application graph.
type App struct {
	Cfg     *config.Config
	Log     *slog.Logger
	DB      *sql.DB
	Session *discordgo.Session

	Tickets primary.TicketService
	Intake  primary.IntakeService
	Stats   primary.StatsService
}

// Build opens the database and the (unconnected) gateway session and wires
// every adapter and service together.
func Build(cfg *config.Config, log *slog.Logger) (*App, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	session, err := discord.NewSession(cfg.Token)
	if err != nil {
		database.Close()
		return nil, err
	}

	platform := discord.NewPlatform(session, cfg)
	ticketRepo := sqlite.NewTicketRepository(database)
	statsRepo := sqlite.NewStaffStatsRepository(database)
	exporter := transcript.NewFileExporter(platform, cfg.TranscriptsDir)
	sessions := app.NewSessionStore()

	tickets := app.NewTicketService(cfg, ticketRepo, statsRepo, platform, exporter, sessions, log)
	intake := app.NewIntakeService(cfg, ticketRepo, platform, sessions, log)
	stats := app.NewStatsService(statsRepo, platform)

	a := &App{
		Cfg:     cfg,
		Log:     log,
		DB:      database,
		Session: session,
		Tickets: tickets,
		Intake:  intake,
		Stats:   stats,
	}
	discord.NewHandlers(cfg, tickets, intake, stats, log).Register(session)
	return a, nil
}

// BuildStats assembles only the stats reader over the local database, for
// CLI use without a gateway connection. Names fall back to raw IDs.
func BuildStats(dbPath string) (primary.StatsService, *sql.DB, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	statsRepo := sqlite.NewStaffStatsRepository(database)
	return app.NewStatsService(statsRepo, offlineResolver{}), database, nil
}

// Close releases everything Build opened.
func (a *App) Close() error {
	return a.DB.Close()
}

// offlineResolver never resolves, forcing the ID fallback.
type offlineResolver struct{}

func (offlineResolver) UserName(ctx context.Context, userID string) (string, error) {
	return "", errors.New("no gateway connection")
}
