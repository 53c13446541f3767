// Package entry turns raw time-tracking entries into logical worklog units:
// filtering, grouping by description and date, duration rounding, and
// issue-key extraction from the description convention
// "KEY-123: title -- free text".
package entry

import (
	"math"
	"sort"
	"strings"

	"github.com/petra/ttsync/internal/models"
)

// FilterOptions narrows the raw entry set before grouping. Each filter is
// independently optional; filters compose with AND semantics, tag sets
// match with OR semantics.
type FilterOptions struct {
	SkipSubstring     string
	ExcludeTags       []string
	IncludeTags       []string
	ExcludeProjectIDs []int64
}

// Filter applies the configured exclusions and inclusions in order:
// substring skip, tag exclusion, project exclusion, tag inclusion.
func Filter(entries []models.RawEntry, opts FilterOptions) []models.RawEntry {
	result := entries

	if opts.SkipSubstring != "" {
		result = keep(result, func(e models.RawEntry) bool {
			return !strings.Contains(e.Description, opts.SkipSubstring)
		})
	}

	if len(opts.ExcludeTags) > 0 {
		result = keep(result, func(e models.RawEntry) bool {
			return !hasAnyTag(e.Tags, opts.ExcludeTags)
		})
	}

	if len(opts.ExcludeProjectIDs) > 0 {
		excluded := make(map[int64]bool, len(opts.ExcludeProjectIDs))
		for _, id := range opts.ExcludeProjectIDs {
			excluded[id] = true
		}
		result = keep(result, func(e models.RawEntry) bool {
			return !excluded[e.ProjectID]
		})
	}

	if len(opts.IncludeTags) > 0 {
		result = keep(result, func(e models.RawEntry) bool {
			return hasAnyTag(e.Tags, opts.IncludeTags)
		})
	}

	return result
}

func keep(entries []models.RawEntry, pred func(models.RawEntry) bool) []models.RawEntry {
	var out []models.RawEntry
	for _, e := range entries {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

func hasAnyTag(tags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range tags {
			if t == w {
				return true
			}
		}
	}
	return false
}

// ParseIdentity splits a raw description into an issue key and free-text
// description. The key is everything before the first colon, trimmed. A
// description without a colon yields the whole string as the key. Without a
// "--" delimiter the free text is empty. This parse is lossy and
// best-effort; it never fails.
func ParseIdentity(rawDescription string) (issueKey, description string) {
	issueKey = rawDescription
	if i := strings.Index(rawDescription, ":"); i >= 0 {
		issueKey = rawDescription[:i]
	}
	issueKey = strings.TrimSpace(issueKey)

	// The free text is the segment between the first and second "--",
	// mirroring the lossy convention the entries are written in.
	if parts := strings.Split(rawDescription, "--"); len(parts) > 1 {
		description = strings.TrimSpace(parts[1])
	}
	return issueKey, description
}

// Group merges raw entries sharing the same (raw description, calendar
// date) into logical entries, summing durations and collecting source ids.
// Raw entries are sorted by id first so output is deterministic; groups
// appear in first-occurrence order of their key.
func Group(entries []models.RawEntry) []models.LogicalEntry {
	sorted := make([]models.RawEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	type group struct {
		ids      []int64
		raw      string
		date     string
		duration int64
	}

	var order []string
	groups := make(map[string]*group)
	for _, e := range sorted {
		date := e.StartDate()
		// Raw (unparsed) description plus date identifies a group.
		key := e.Description + "\x00" + date
		g, ok := groups[key]
		if !ok {
			g = &group{raw: e.Description, date: date}
			groups[key] = g
			order = append(order, key)
		}
		g.ids = append(g.ids, e.ID)
		g.duration += e.Duration
	}

	result := make([]models.LogicalEntry, 0, len(order))
	for _, key := range order {
		g := groups[key]
		issueKey, description := ParseIdentity(g.raw)
		result = append(result, models.LogicalEntry{
			SourceIDs:       g.ids,
			IssueKey:        issueKey,
			Description:     description,
			DurationSeconds: g.duration,
			Date:            g.date,
		})
	}
	return result
}

// RoundDuration rounds seconds to the nearest multiple of granularity,
// half away from zero (round(x/g)*g). Granularity <= 0 leaves the value
// unchanged.
func RoundDuration(seconds, granularity int64) int64 {
	if granularity <= 0 {
		return seconds
	}
	return int64(math.Round(float64(seconds)/float64(granularity))) * granularity
}

// RoundAll rounds every logical entry's duration in place.
func RoundAll(entries []models.LogicalEntry, granularity int64) {
	for i := range entries {
		entries[i].DurationSeconds = RoundDuration(entries[i].DurationSeconds, granularity)
	}
}
