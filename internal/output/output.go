// Package output provides styled terminal output helpers (success, error,
// warning, entry and record formatting) using lipgloss.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/petra/ttsync/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Subtle prints a de-emphasized message
func Subtle(format string, args ...interface{}) {
	fmt.Println(subtleStyle.Render(fmt.Sprintf(format, args...)))
}

// FormatDuration renders seconds as H:MM:SS.
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// FormatEntry formats a logical entry's identity for progress and error
// messages.
func FormatEntry(e models.LogicalEntry) string {
	parts := []string{
		keyStyle.Render(e.IssueKey),
		FormatDuration(e.DurationSeconds),
		e.Date,
	}
	if e.Description != "" {
		parts = append(parts, subtleStyle.Render(fmt.Sprintf("%q", e.Description)))
	}
	return strings.Join(parts, "  ")
}

// FormatRecord formats a sync record for the list command.
func FormatRecord(rec models.SyncRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(ShortFingerprint(rec.Fingerprint)), keyStyle.Render(rec.IssueKey))
	fmt.Fprintf(&b, "  Date:       %s\n", rec.Date)
	fmt.Fprintf(&b, "  Duration:   %s (%d seconds)\n", FormatDuration(rec.DurationSeconds), rec.DurationSeconds)
	if rec.Description != "" {
		fmt.Fprintf(&b, "  Description: %s\n", rec.Description)
	}
	fmt.Fprintf(&b, "  Source IDs: %s\n", joinIDs(rec.SourceIDs))
	fmt.Fprintf(&b, "  Recorded:   %s", rec.RecordedAt.Format(time.RFC3339))
	if rec.WorklogID != "" {
		fmt.Fprintf(&b, "\n  Worklog:    %s", rec.WorklogID)
	}
	return b.String()
}

// ShortFingerprint abbreviates a fingerprint for display.
func ShortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12] + "..."
	}
	return fp
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
