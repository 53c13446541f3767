// Package config loads and saves the ttsync configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const appDir = ".ttsync"

// Defaults applied when the corresponding field is unset.
const (
	DefaultRoundToSeconds     = 60
	DefaultExpectedDailyHours = 8.0
)

// TogglConfig holds Toggl Track API credentials.
type TogglConfig struct {
	APIKey string `json:"api_key"`
}

// TempoConfig holds Tempo API credentials.
type TempoConfig struct {
	APIKey    string `json:"api_key"`
	AccountID string `json:"account_id"`
}

// JiraConfig holds Jira Cloud credentials.
type JiraConfig struct {
	Subdomain string `json:"subdomain"`
	Email     string `json:"email"`
	APIToken  string `json:"api_token"`
}

// SyncConfig holds entry filtering and shaping options.
type SyncConfig struct {
	RoundToSeconds     int64    `json:"round_to_seconds,omitempty"`
	SkipSubstring      string   `json:"skip_substring,omitempty"`
	ExcludeTags        []string `json:"exclude_tags,omitempty"`
	IncludeTags        []string `json:"include_tags,omitempty"`
	ExcludeProjects    []string `json:"exclude_projects,omitempty"`
	ExpectedDailyHours float64  `json:"expected_daily_hours,omitempty"`
}

// Config is the full on-disk configuration.
type Config struct {
	Toggl TogglConfig `json:"toggl"`
	Tempo TempoConfig `json:"tempo"`
	Jira  JiraConfig  `json:"jira"`
	Sync  SyncConfig  `json:"sync"`
}

// DefaultPath returns the default config file location under the user's
// home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDir, "config.json"), nil
}

// DefaultStorePath returns the default sync record database location.
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDir, "sync_records.db"), nil
}

// Load reads the config from the given path and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the config to disk using atomic write (temp file + rename)
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// Validate checks that the credentials required for syncing are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Toggl.APIKey == "" {
		missing = append(missing, "toggl.api_key")
	}
	if c.Tempo.APIKey == "" {
		missing = append(missing, "tempo.api_key")
	}
	if c.Tempo.AccountID == "" {
		missing = append(missing, "tempo.account_id")
	}
	if c.Jira.Subdomain == "" {
		missing = append(missing, "jira.subdomain")
	}
	if c.Jira.Email == "" {
		missing = append(missing, "jira.email")
	}
	if c.Jira.APIToken == "" {
		missing = append(missing, "jira.api_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config missing required fields: %v", missing)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Sync.RoundToSeconds == 0 {
		c.Sync.RoundToSeconds = DefaultRoundToSeconds
	}
	if c.Sync.ExpectedDailyHours == 0 {
		c.Sync.ExpectedDailyHours = DefaultExpectedDailyHours
	}
}
