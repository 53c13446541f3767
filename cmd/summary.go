package cmd

import (
	"fmt"
	"time"

	"github.com/petra/ttsync/internal/dateparse"
	"github.com/petra/ttsync/internal/output"
	"github.com/petra/ttsync/internal/tempo"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [start] [end]",
	Short: "Show logged Tempo hours per day against the expected daily hours",
	Long: `Fetch the user's Tempo worklogs for a date range and print the logged
hours per day next to the expected daily hours. Weekends expect zero hours.
With no arguments the last seven days are shown.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Tempo.APIKey == "" || cfg.Tempo.AccountID == "" {
			return fmt.Errorf("config missing tempo credentials")
		}

		start := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
		end := time.Now().Format("2006-01-02")
		if len(args) > 0 {
			if start, err = dateparse.ParseDate(args[0]); err != nil {
				return err
			}
			end = start
		}
		if len(args) > 1 {
			if end, err = dateparse.ParseDate(args[1]); err != nil {
				return err
			}
		}
		if end < start {
			return fmt.Errorf("end date %s is before start date %s", end, start)
		}

		tempoClient := tempo.New(cfg.Tempo.AccountID, cfg.Tempo.APIKey)
		worklogs, err := tempoClient.UserWorklogs(start, end)
		if err != nil {
			return fmt.Errorf("fetch worklogs: %w", err)
		}

		perDay := make(map[string]int64)
		for _, wl := range worklogs {
			perDay[wl.Date] += wl.Seconds
		}

		startDay, err := time.Parse("2006-01-02", start)
		if err != nil {
			return err
		}
		endDay, err := time.Parse("2006-01-02", end)
		if err != nil {
			return err
		}

		expectedPerDay := int64(cfg.Sync.ExpectedDailyHours * 3600)
		var totalLogged, totalExpected int64
		for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
			date := day.Format("2006-01-02")
			logged := perDay[date]

			expected := expectedPerDay
			if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
				expected = 0
			}
			totalLogged += logged
			totalExpected += expected

			line := fmt.Sprintf("%s %s  %8s  %s", date, day.Weekday().String()[:3],
				output.FormatDuration(logged), formatDelta(logged-expected))
			if expected == 0 && logged == 0 {
				output.Subtle("%s", line)
			} else {
				output.Info("%s", line)
			}
		}

		output.Info("")
		output.Info("Total: %s logged, %s expected (%s)",
			output.FormatDuration(totalLogged), output.FormatDuration(totalExpected),
			formatDelta(totalLogged-totalExpected))
		return nil
	},
}

// formatDelta renders a signed duration difference, always carrying an
// explicit sign.
func formatDelta(seconds int64) string {
	if seconds < 0 {
		return "-" + output.FormatDuration(-seconds)
	}
	return "+" + output.FormatDuration(seconds)
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
