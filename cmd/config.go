package cmd

import (
	"fmt"
	"os"

	"github.com/petra/ttsync/internal/config"
	"github.com/petra/ttsync/internal/output"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the ttsync configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config skeleton to fill in",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			path, err = config.DefaultPath()
			if err != nil {
				return err
			}
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		skeleton := &config.Config{
			Sync: config.SyncConfig{
				RoundToSeconds:     config.DefaultRoundToSeconds,
				ExpectedDailyHours: config.DefaultExpectedDailyHours,
				SkipSubstring:      "SKIP",
			},
		}
		if err := config.Save(path, skeleton); err != nil {
			return err
		}
		output.Success("Wrote %s", path)
		output.Info("Fill in the toggl, tempo, and jira credentials before syncing.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		output.Info("Toggl API key:        %s", maskSecret(cfg.Toggl.APIKey))
		output.Info("Tempo API key:        %s", maskSecret(cfg.Tempo.APIKey))
		output.Info("Tempo account:        %s", cfg.Tempo.AccountID)
		output.Info("Jira subdomain:       %s", cfg.Jira.Subdomain)
		output.Info("Jira email:           %s", cfg.Jira.Email)
		output.Info("Jira API token:       %s", maskSecret(cfg.Jira.APIToken))
		output.Info("Round to:             %ds", cfg.Sync.RoundToSeconds)
		output.Info("Expected daily hours: %.1f", cfg.Sync.ExpectedDailyHours)
		if cfg.Sync.SkipSubstring != "" {
			output.Info("Skip substring:       %q", cfg.Sync.SkipSubstring)
		}
		if len(cfg.Sync.ExcludeTags) > 0 {
			output.Info("Exclude tags:         %v", cfg.Sync.ExcludeTags)
		}
		if len(cfg.Sync.IncludeTags) > 0 {
			output.Info("Include tags:         %v", cfg.Sync.IncludeTags)
		}
		if len(cfg.Sync.ExcludeProjects) > 0 {
			output.Info("Exclude projects:     %v", cfg.Sync.ExcludeProjects)
		}
		return nil
	},
}

func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
