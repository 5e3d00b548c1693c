package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/modmail/internal/cli"
	"github.com/example/modmail/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "modmail",
		Short:   "Modmail - Discord support tickets over DMs",
		Version: version.String(),
		Long: `Modmail turns direct messages to the bot into staff support tickets.
Each ticket lives in a thread where staff claim, transfer and close it;
requesters get transcripts and can rate the support they received.`,
	}

	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.StatsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
