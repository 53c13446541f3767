package models

import (
	"time"
)

// RawEntry is a single ungrouped time entry as returned by Toggl Track.
type RawEntry struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	Duration    int64    `json:"duration"` // seconds
	Start       string   `json:"start"`    // ISO 8601 timestamp
	Tags        []string `json:"tags"`
	ProjectID   int64    `json:"project_id"`
}

// StartDate returns the calendar-date portion (YYYY-MM-DD) of the entry's
// start timestamp.
func (e RawEntry) StartDate() string {
	if len(e.Start) >= 10 {
		return e.Start[:10]
	}
	return e.Start
}

// LogicalEntry is a grouped, rounded unit of work destined for one issue on
// one date. It is the unit of deduplication: its identity tuple (sorted
// source ids, issue key, description, duration, date) feeds the fingerprint.
type LogicalEntry struct {
	SourceIDs       []int64 `json:"source_ids"` // raw entry ids merged into this unit
	IssueKey        string  `json:"issue_key"`
	Description     string  `json:"description"` // free text after the "--" delimiter
	DurationSeconds int64   `json:"duration_seconds"`
	Date            string  `json:"date"` // YYYY-MM-DD
}

// SyncRecord is the persisted witness that a logical entry was already
// submitted downstream.
type SyncRecord struct {
	Fingerprint     string         `json:"fingerprint"`
	SourceIDs       []int64        `json:"source_ids"`
	IssueKey        string         `json:"issue_key"`
	Description     string         `json:"description,omitempty"`
	DurationSeconds int64          `json:"duration_seconds"`
	Date            string         `json:"date"` // YYYY-MM-DD
	WorklogID       string         `json:"worklog_id,omitempty"`
	RecordedAt      time.Time      `json:"recorded_at"`
	Extra           map[string]any `json:"extra,omitempty"` // audit metadata
}

// Issue is the subset of a Jira issue the sync flow needs.
type Issue struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Summary string `json:"summary"`
}

// Worklog is a single billed interval as reported by Tempo.
type Worklog struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Seconds int64  `json:"seconds"`
}
