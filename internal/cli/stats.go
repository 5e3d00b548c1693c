package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/modmail/internal/wire"
)

// StatsCmd returns the stats command: print the staff ledger from the local
// database, no gateway connection needed.
func StatsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print staff statistics from the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = os.Getenv("MODMAIL_DB_PATH")
				if dbPath == "" {
					dbPath = "modmail.db"
				}
			}

			service, database, err := wire.BuildStats(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			stats, err := service.StaffStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read staff stats: %w", err)
			}

			if len(stats) == 0 {
				fmt.Println("No staff activity recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "STAFF\tCLAIMED\tCLOSED\tRATINGS\tAVERAGE")
			fmt.Fprintln(w, "-----\t-------\t------\t-------\t-------")
			for _, st := range stats {
				average := "-"
				if st.RatingCount > 0 {
					average = fmt.Sprintf("%.2f", st.Average)
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
					st.Name, st.Claimed, st.Closed, st.RatingCount, average)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database (default $MODMAIL_DB_PATH or modmail.db)")
	return cmd
}
