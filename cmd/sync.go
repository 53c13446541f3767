package cmd

import (
	"fmt"
	"time"

	"github.com/petra/ttsync/internal/dateparse"
	"github.com/petra/ttsync/internal/entry"
	"github.com/petra/ttsync/internal/jira"
	"github.com/petra/ttsync/internal/output"
	"github.com/petra/ttsync/internal/prompt"
	"github.com/petra/ttsync/internal/syncer"
	"github.com/petra/ttsync/internal/tempo"
	"github.com/petra/ttsync/internal/toggl"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [start] [end]",
	Short: "Sync Toggl time entries to Tempo",
	Long: `Fetch Toggl time entries for a date range, group them into worklogs, and
submit each one to Tempo. Dates accept YYYY-MM-DD, "today", "yesterday",
"last-working-day", and relative offsets like "-3d". With no arguments the
start date is prompted for, defaulting to the last working day. A missing
end date means a single-day sync.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w (run 'ttsync config init' to create one)", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		terminal := prompt.Terminal{}

		var startInput string
		if len(args) > 0 {
			startInput = args[0]
		} else {
			startInput, err = terminal.Input("Sync from date", dateparse.LastWorkingDay(time.Now()).Format("2006-01-02"))
			if err != nil {
				return err
			}
		}
		start, err := dateparse.ParseDate(startInput)
		if err != nil {
			return err
		}

		end := start
		if len(args) > 1 {
			end, err = dateparse.ParseDate(args[1])
			if err != nil {
				return err
			}
		}
		if end < start {
			return fmt.Errorf("end date %s is before start date %s", end, start)
		}

		togglClient := toggl.New(cfg.Toggl.APIKey)

		output.Info("Fetching Toggl entries for %s..%s", start, end)
		raw, err := togglClient.TimeEntries(start, end)
		if err != nil {
			return fmt.Errorf("fetch time entries: %w", err)
		}

		opts := entry.FilterOptions{
			SkipSubstring: cfg.Sync.SkipSubstring,
			ExcludeTags:   cfg.Sync.ExcludeTags,
			IncludeTags:   cfg.Sync.IncludeTags,
		}
		if len(cfg.Sync.ExcludeProjects) > 0 {
			projects, err := togglClient.Projects(cfg.Sync.ExcludeProjects)
			if err != nil {
				return fmt.Errorf("resolve excluded projects: %w", err)
			}
			for _, p := range projects {
				opts.ExcludeProjectIDs = append(opts.ExcludeProjectIDs, p.ID)
			}
		}

		entries := entry.Group(entry.Filter(raw, opts))
		entry.RoundAll(entries, cfg.Sync.RoundToSeconds)
		if len(entries) == 0 {
			output.Info("No entries to sync for %s..%s", start, end)
			return nil
		}
		output.Info("%d worklog(s) to submit", len(entries))

		recordStore, err := openStore()
		if err != nil {
			return fmt.Errorf("open sync record store: %w", err)
		}
		defer recordStore.Close()

		s := &syncer.Syncer{
			Issues:   jira.New(cfg.Jira.Subdomain, cfg.Jira.Email, cfg.Jira.APIToken),
			Worklogs: tempo.New(cfg.Tempo.AccountID, cfg.Tempo.APIKey),
			Store:    recordStore,
			Prompt:   terminal,
		}

		sum, runErr := s.Run(entries)
		output.Info("")
		output.Success("Submitted: %d", sum.Submitted)
		if sum.SkippedDuplicate > 0 {
			output.Subtle("Already synced: %d", sum.SkippedDuplicate)
		}
		if sum.SkippedByUser > 0 {
			output.Warning("Skipped: %d", sum.SkippedByUser)
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
