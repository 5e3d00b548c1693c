package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/modmail/internal/adapters/discord"
	"github.com/example/modmail/internal/config"
	"github.com/example/modmail/internal/wire"
)

// RunCmd returns the run command: connect to the gateway and serve tickets
// until interrupted.
func RunCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve modmail tickets",
		Long: `Connects the bot to the Discord gateway and runs until interrupted.

Configuration is read from the environment (and an optional .env file in the
working directory). Run 'modmail doctor' to verify the setup first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			log := newLogger(debug)
			app, err := wire.Build(cfg, log)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("starting modmail",
				"guild", cfg.GuildID,
				"categories", cfg.CategoryNames(),
				"db", cfg.DBPath,
			)
			return discord.Run(ctx, app.Session, log)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
