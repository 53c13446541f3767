// Package syncer drives the per-entry submission state machine: dedup
// check against the record store, worklog submission, operator-driven
// failure recovery, and recording of completed submissions under the
// original entry identity.
package syncer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/petra/ttsync/internal/models"
	"github.com/petra/ttsync/internal/output"
	"github.com/petra/ttsync/internal/store"
)

// ErrAborted is returned when the operator ends the run from the recovery
// menu. The run stops before the next entry; an in-flight submission is
// never interrupted.
var ErrAborted = errors.New("sync aborted by user")

// Recovery menu choices shown after a failed submission.
const (
	ChoiceRetry = "Retry"
	ChoiceSkip  = "Skip"
	ChoiceEdit  = "Edit details"
	ChoiceAbort = "Abort"
)

// Soft-validation choices shown when the resolved issue looks stale.
const (
	ChoiceContinue = "Continue anyway"
	ChoiceModify   = "Modify details"
)

// IssueResolver resolves an issue key to its id and summary.
type IssueResolver interface {
	Issue(key string) (*models.Issue, error)
}

// WorklogSubmitter submits one worklog and returns its downstream id.
type WorklogSubmitter interface {
	AddWorklog(issueID string, seconds int64, date, description string) (string, error)
}

// RecordStore is the dedup surface the syncer needs from the record store.
type RecordStore interface {
	Exists(fingerprint string) (bool, error)
	Insert(rec *models.SyncRecord) (string, error)
}

// Prompter blocks for operator input. Implementations must not return
// values outside the offered option set.
type Prompter interface {
	Choose(title string, options []string) (string, error)
	Input(title, defaultValue string) (string, error)
}

// Syncer submits logical entries downstream exactly once each.
type Syncer struct {
	Issues   IssueResolver
	Worklogs WorklogSubmitter
	Store    RecordStore
	Prompt   Prompter
}

// Summary counts per-entry outcomes of a run.
type Summary struct {
	Submitted        int
	SkippedDuplicate int
	SkippedByUser    int
}

type outcome int

const (
	outcomeSubmitted outcome = iota
	outcomeDuplicate
	outcomeSkipped
)

// Run processes entries strictly one at a time. Storage errors and
// operator abort stop the run immediately; the summary covers the entries
// processed up to that point.
func (s *Syncer) Run(entries []models.LogicalEntry) (Summary, error) {
	var sum Summary
	for _, e := range entries {
		result, err := s.syncOne(e)
		if err != nil {
			return sum, err
		}
		switch result {
		case outcomeSubmitted:
			sum.Submitted++
		case outcomeDuplicate:
			sum.SkippedDuplicate++
		case outcomeSkipped:
			sum.SkippedByUser++
		}
	}
	return sum, nil
}

func (s *Syncer) syncOne(original models.LogicalEntry) (outcome, error) {
	// The fingerprint is always taken from the original entry, so edits
	// made during failure recovery cannot cause the same raw entries to
	// be resubmitted on a later run.
	fp := store.Fingerprint(original.SourceIDs, original.IssueKey, original.Description,
		original.DurationSeconds, original.Date)

	exists, err := s.Store.Exists(fp)
	if err != nil {
		return 0, fmt.Errorf("dedup lookup: %w", err)
	}
	if exists {
		output.Subtle("Already synced, skipping: %s", output.FormatEntry(original))
		return outcomeDuplicate, nil
	}

	work := original
	edited := false

	for {
		issue, resolveErr := s.Issues.Issue(work.IssueKey)

		if resolveErr == nil {
			proceed, skip, err := s.softValidate(issue, &work, &edited)
			if err != nil {
				return 0, err
			}
			if skip {
				return outcomeSkipped, nil
			}
			if !proceed {
				// Details changed, resolve the new key.
				continue
			}
		}

		var worklogID string
		submitErr := resolveErr
		if submitErr == nil {
			output.Info("Adding worklog for %s", output.FormatEntry(work))
			worklogID, submitErr = s.Worklogs.AddWorklog(issue.ID, work.DurationSeconds, work.Date, work.Description)
		}

		if submitErr == nil {
			rec := &models.SyncRecord{
				Fingerprint:     fp,
				SourceIDs:       original.SourceIDs,
				IssueKey:        original.IssueKey,
				Description:     original.Description,
				DurationSeconds: original.DurationSeconds,
				Date:            original.Date,
				WorklogID:       worklogID,
				RecordedAt:      time.Now(),
			}
			if edited {
				rec.Extra = map[string]any{
					"manually_modified":   true,
					"submitted_issue_key": work.IssueKey,
					"submitted_duration":  work.DurationSeconds,
					"submitted_date":      work.Date,
					"submitted_desc":      work.Description,
				}
			}
			if _, err := s.Store.Insert(rec); err != nil {
				return 0, fmt.Errorf("record sync: %w", err)
			}
			output.Success("Logged %s", output.FormatEntry(work))
			return outcomeSubmitted, nil
		}

		output.Error("Failed to add worklog for %s: %s", output.FormatEntry(work), truncate(submitErr.Error(), 200))

		choice, err := s.Prompt.Choose("Choose an option:",
			[]string{ChoiceRetry, ChoiceSkip, ChoiceEdit, ChoiceAbort})
		if err != nil {
			return 0, fmt.Errorf("recovery prompt: %w", err)
		}

		switch choice {
		case ChoiceRetry:
			continue
		case ChoiceSkip:
			output.Warning("Skipped %s", output.FormatEntry(work))
			return outcomeSkipped, nil
		case ChoiceEdit:
			// Edits mutate the working copy only; the dedup check is not
			// re-run for the edited values.
			if err := s.editEntry(&work); err != nil {
				return 0, err
			}
			edited = true
			continue
		case ChoiceAbort:
			return 0, ErrAborted
		default:
			return 0, fmt.Errorf("unexpected recovery choice %q", choice)
		}
	}
}

// softValidate pauses before submission when the issue summary suggests the
// issue is stale. Returns proceed=false when the operator modified the
// entry and the issue must be re-resolved.
func (s *Syncer) softValidate(issue *models.Issue, work *models.LogicalEntry, edited *bool) (proceed, skip bool, err error) {
	summary := strings.ToLower(issue.Summary)
	if !strings.Contains(summary, "moved to") && !strings.Contains(summary, "not in use") {
		return true, false, nil
	}

	output.Warning("Issue %s summary looks stale: %q", work.IssueKey, issue.Summary)
	choice, err := s.Prompt.Choose("The target issue may no longer be in use:",
		[]string{ChoiceContinue, ChoiceModify, ChoiceSkip})
	if err != nil {
		return false, false, fmt.Errorf("validation prompt: %w", err)
	}

	switch choice {
	case ChoiceContinue:
		return true, false, nil
	case ChoiceModify:
		if err := s.editEntry(work); err != nil {
			return false, false, err
		}
		*edited = true
		return false, false, nil
	case ChoiceSkip:
		output.Warning("Skipped %s", output.FormatEntry(*work))
		return false, true, nil
	default:
		return false, false, fmt.Errorf("unexpected validation choice %q", choice)
	}
}

// editEntry prompts for replacement values, defaulting each field to the
// current working copy. Invalid numeric or date input is re-prompted.
func (s *Syncer) editEntry(work *models.LogicalEntry) error {
	key, err := s.Prompt.Input("Issue key", work.IssueKey)
	if err != nil {
		return err
	}
	work.IssueKey = strings.TrimSpace(key)

	for {
		raw, err := s.Prompt.Input("Time spent (seconds)", strconv.FormatInt(work.DurationSeconds, 10))
		if err != nil {
			return err
		}
		seconds, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || seconds < 0 {
			output.Error("invalid duration %q", raw)
			continue
		}
		work.DurationSeconds = seconds
		break
	}

	for {
		raw, err := s.Prompt.Input("Date (YYYY-MM-DD)", work.Date)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			output.Error("invalid date %q", raw)
			continue
		}
		work.Date = raw
		break
	}

	desc, err := s.Prompt.Input("Description", work.Description)
	if err != nil {
		return err
	}
	work.Description = desc
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
