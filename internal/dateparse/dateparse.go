// Package dateparse provides utilities for parsing relative and absolute date strings
// into ISO 8601 (YYYY-MM-DD) format.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDate parses a date input string and returns an ISO 8601 date (YYYY-MM-DD).
// Uses the current time as the reference point.
//
// Supported formats:
//   - Exact dates: "2026-03-01"
//   - Relative days: "-3d" (three days ago), "+1d"
//   - Relative weeks: "-2w"
//   - Day names: "monday", "tuesday", etc. (most recent occurrence)
//   - Keywords: "today", "yesterday", "last-working-day"
func ParseDate(input string) (string, error) {
	return ParseDateFrom(input, time.Now())
}

// ParseDateFrom parses a date input string relative to the given reference time.
// This variant enables deterministic testing with a fixed "now".
func ParseDateFrom(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return "", fmt.Errorf("empty date input")
	}

	// Exact date: YYYY-MM-DD
	if t, err := time.Parse("2006-01-02", input); err == nil {
		return t.Format("2006-01-02"), nil
	}

	// Keywords
	switch input {
	case "today":
		return formatDate(now), nil
	case "yesterday":
		return formatDate(now.AddDate(0, 0, -1)), nil
	case "last-working-day", "lwd":
		return formatDate(LastWorkingDay(now)), nil
	}

	// Relative offsets: -Nd, -Nw, +Nd, +Nw
	if (strings.HasPrefix(input, "-") || strings.HasPrefix(input, "+")) && len(input) >= 3 {
		suffix := input[len(input)-1]
		n, err := strconv.Atoi(input[:len(input)-1])
		if err == nil {
			switch suffix {
			case 'd':
				return formatDate(now.AddDate(0, 0, n)), nil
			case 'w':
				return formatDate(now.AddDate(0, 0, n*7)), nil
			default:
				return "", fmt.Errorf("unknown relative unit %q in %q (use d or w)", string(suffix), input)
			}
		}
	}

	// Day names: most recent occurrence of that weekday
	dayMap := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	if target, ok := dayMap[input]; ok {
		daysBack := (int(now.Weekday()) - int(target) + 7) % 7
		if daysBack == 0 {
			daysBack = 7 // always step back to the previous occurrence
		}
		return formatDate(now.AddDate(0, 0, -daysBack)), nil
	}

	return "", fmt.Errorf("unrecognized date format: %q", input)
}

// LastWorkingDay returns the most recent weekday strictly before the
// reference time. Saturday and Sunday are skipped; holidays are not
// considered.
func LastWorkingDay(now time.Time) time.Time {
	t := now.AddDate(0, 0, -1)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
