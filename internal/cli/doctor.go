package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/modmail/internal/config"
	"github.com/example/modmail/internal/db"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the modmail environment",
		Long: `Health check for the modmail setup.

Validates:
- Environment configuration (.env or process environment)
- Category definitions (CATEGORY_* entries)
- SQLite database (opens it and applies the schema)
- Transcripts directory writability

Examples:
  modmail doctor          # Run full health check
  modmail doctor --quiet  # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := []CheckResult{}
			hasErrors := false

			cfg, cfgResult := checkConfig()
			results = append(results, cfgResult)
			if cfg != nil {
				results = append(results, checkCategories(cfg))
				results = append(results, checkDatabase(cfg))
				results = append(results, checkTranscriptsDir(cfg))
			}

			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
					break
				}
			}

			if !quiet {
				fmt.Println()
				fmt.Println("Check              Status")
				fmt.Println("─────────────────────────")
				for _, r := range results {
					fmt.Printf("%-18s %s\n", r.Name, colorStatus(r.Status))
				}
				fmt.Println()

				hasDetails := false
				for _, r := range results {
					if r.Status != "✓" && r.Details != "" {
						if !hasDetails {
							fmt.Println("Details:")
							hasDetails = true
						}
						fmt.Printf("\n%s:\n%s\n", r.Name, r.Details)
					}
				}

				if hasErrors {
					fmt.Println("\n⚠ Issues found. Fix the environment and re-run.")
				} else {
					fmt.Println("All checks passed.")
				}
			}

			if hasErrors {
				return fmt.Errorf("environment validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Exit code only, no output")
	return cmd
}

func colorStatus(status string) string {
	switch status {
	case "✓":
		return color.GreenString(status)
	case "⚠":
		return color.YellowString(status)
	default:
		return color.RedString(status)
	}
}

func checkConfig() (*config.Config, CheckResult) {
	cfg, err := config.Load()
	if err != nil {
		return nil, CheckResult{
			Name:    "Configuration",
			Status:  "✗",
			Details: err.Error(),
		}
	}
	return cfg, CheckResult{Name: "Configuration", Status: "✓"}
}

func checkCategories(cfg *config.Config) CheckResult {
	names := cfg.CategoryNames()
	if len(names) == 0 {
		return CheckResult{
			Name:    "Categories",
			Status:  "✗",
			Details: "No CATEGORY_* entries found. Define at least one, e.g. CATEGORY_GENERAL=",
		}
	}
	return CheckResult{
		Name:   "Categories",
		Status: "✓",
	}
}

func checkDatabase(cfg *config.Config) CheckResult {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return CheckResult{
			Name:    "Database",
			Status:  "✗",
			Details: fmt.Sprintf("Cannot open %s: %v", cfg.DBPath, err),
		}
	}
	defer database.Close()

	var count int
	err = database.QueryRow(`SELECT COUNT(*) FROM tickets WHERE closed = 0`).Scan(&count)
	if err != nil {
		return CheckResult{
			Name:    "Database",
			Status:  "✗",
			Details: fmt.Sprintf("Schema check failed: %v", err),
		}
	}
	return CheckResult{Name: "Database", Status: "✓"}
}

func checkTranscriptsDir(cfg *config.Config) CheckResult {
	if err := os.MkdirAll(cfg.TranscriptsDir, 0o755); err != nil {
		return CheckResult{
			Name:    "Transcripts dir",
			Status:  "✗",
			Details: fmt.Sprintf("Cannot create %s: %v", cfg.TranscriptsDir, err),
		}
	}

	probe := filepath.Join(cfg.TranscriptsDir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return CheckResult{
			Name:    "Transcripts dir",
			Status:  "✗",
			Details: fmt.Sprintf("Not writable: %v", err),
		}
	}
	os.Remove(probe)

	if !strings.HasPrefix(cfg.TranscriptsDir, "/") {
		// Relative directories depend on the working directory the bot is
		// started from; worth a heads-up, not a failure.
		return CheckResult{
			Name:    "Transcripts dir",
			Status:  "⚠",
			Details: fmt.Sprintf("%q is relative to the working directory", cfg.TranscriptsDir),
		}
	}
	return CheckResult{Name: "Transcripts dir", Status: "✓"}
}
