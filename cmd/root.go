package cmd

import (
	"os"

	"github.com/petra/ttsync/internal/config"
	"github.com/petra/ttsync/internal/output"
	"github.com/petra/ttsync/internal/store"
	"github.com/spf13/cobra"
)

var (
	version    string
	configPath string
	dbPath     string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "ttsync",
	Short: "Sync Toggl Track time entries to Tempo worklogs",
	Long: `ttsync - Reconcile Toggl Track time entries against Tempo worklogs on Jira issues.

Entries are grouped, rounded, and submitted interactively. Every completed
submission is recorded in a local database so re-running a sync never
submits the same entries twice.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.ttsync/config.json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sync record database (default ~/.ttsync/sync_records.db)")
}

// loadConfig reads the config from --config or the default location.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

// openStore opens the sync record database at --db or the default location.
func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		var err error
		path, err = config.DefaultStorePath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}
