package syncer

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/petra/ttsync/internal/models"
	"github.com/petra/ttsync/internal/store"
)

// fakeIssues resolves every key to a numeric id unless listed as missing.
type fakeIssues struct {
	summaries map[string]string
	missing   map[string]bool
	calls     []string
}

func (f *fakeIssues) Issue(key string) (*models.Issue, error) {
	f.calls = append(f.calls, key)
	if f.missing[key] {
		return nil, fmt.Errorf("issue not found: %s", key)
	}
	summary := "Some issue"
	if s, ok := f.summaries[key]; ok {
		summary = s
	}
	return &models.Issue{ID: "10000", Key: key, Summary: summary}, nil
}

// fakeWorklogs records submissions and can fail a configurable number of
// times before succeeding.
type fakeWorklogs struct {
	failures int
	calls    []submission
}

type submission struct {
	issueID     string
	seconds     int64
	date        string
	description string
}

func (f *fakeWorklogs) AddWorklog(issueID string, seconds int64, date, description string) (string, error) {
	f.calls = append(f.calls, submission{issueID, seconds, date, description})
	if f.failures > 0 {
		f.failures--
		return "", errors.New("tempo: HTTP 400: invalid request")
	}
	return "wl-1", nil
}

// scriptedPrompt returns queued answers in order.
type scriptedPrompt struct {
	choices []string
	inputs  []string
	t       *testing.T
}

func (p *scriptedPrompt) Choose(title string, options []string) (string, error) {
	if len(p.choices) == 0 {
		p.t.Fatalf("unexpected Choose(%q)", title)
	}
	c := p.choices[0]
	p.choices = p.choices[1:]
	return c, nil
}

func (p *scriptedPrompt) Input(title, def string) (string, error) {
	if len(p.inputs) == 0 {
		return def, nil
	}
	v := p.inputs[0]
	p.inputs = p.inputs[1:]
	if v == "" {
		return def, nil
	}
	return v, nil
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry() models.LogicalEntry {
	return models.LogicalEntry{
		SourceIDs:       []int64{1001},
		IssueKey:        "OLD-1",
		Description:     "original work",
		DurationSeconds: 3600,
		Date:            "2025-01-15",
	}
}

func TestRunSubmitsAndRecords(t *testing.T) {
	st := testStore(t)
	worklogs := &fakeWorklogs{}
	s := &Syncer{
		Issues:   &fakeIssues{},
		Worklogs: worklogs,
		Store:    st,
		Prompt:   &scriptedPrompt{t: t},
	}

	sum, err := s.Run([]models.LogicalEntry{testEntry()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Submitted != 1 {
		t.Errorf("submitted = %d, want 1", sum.Submitted)
	}
	if len(worklogs.calls) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(worklogs.calls))
	}

	fp := store.Fingerprint([]int64{1001}, "OLD-1", "original work", 3600, "2025-01-15")
	exists, err := st.Exists(fp)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("sync record not written")
	}

	rec, err := st.Get(fp)
	if err != nil || rec == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.WorklogID != "wl-1" {
		t.Errorf("worklog id = %q, want wl-1", rec.WorklogID)
	}
	if rec.Extra != nil {
		t.Errorf("unedited entry should have no audit blob, got %v", rec.Extra)
	}
}

func TestRunSkipsDuplicateWithoutNetworkCall(t *testing.T) {
	st := testStore(t)
	e := testEntry()
	_, err := st.Insert(&models.SyncRecord{
		SourceIDs:       e.SourceIDs,
		IssueKey:        e.IssueKey,
		Description:     e.Description,
		DurationSeconds: e.DurationSeconds,
		Date:            e.Date,
	})
	if err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	issues := &fakeIssues{}
	worklogs := &fakeWorklogs{}
	s := &Syncer{Issues: issues, Worklogs: worklogs, Store: st, Prompt: &scriptedPrompt{t: t}}

	sum, err := s.Run([]models.LogicalEntry{e})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.SkippedDuplicate != 1 {
		t.Errorf("skipped duplicates = %d, want 1", sum.SkippedDuplicate)
	}
	if len(worklogs.calls) != 0 {
		t.Errorf("duplicate entry must not be submitted, got %d calls", len(worklogs.calls))
	}
	if len(issues.calls) != 0 {
		t.Errorf("duplicate entry must not touch the issue API, got %d calls", len(issues.calls))
	}
}

func TestEditThenRecordUsesOriginalIdentity(t *testing.T) {
	st := testStore(t)
	worklogs := &fakeWorklogs{failures: 1}
	prompt := &scriptedPrompt{
		t:       t,
		choices: []string{ChoiceEdit},
		// Issue key, duration, date (default), description (default).
		inputs: []string{"NEW-2", "1800", "", ""},
	}
	s := &Syncer{Issues: &fakeIssues{}, Worklogs: worklogs, Store: st, Prompt: prompt}

	sum, err := s.Run([]models.LogicalEntry{testEntry()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Submitted != 1 {
		t.Errorf("submitted = %d, want 1", sum.Submitted)
	}

	// Submitted with the edited values.
	last := worklogs.calls[len(worklogs.calls)-1]
	if last.seconds != 1800 {
		t.Errorf("submitted duration = %d, want 1800", last.seconds)
	}

	// Recorded under the original identity.
	originalFP := store.Fingerprint([]int64{1001}, "OLD-1", "original work", 3600, "2025-01-15")
	rec, err := st.Get(originalFP)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec == nil {
		t.Fatal("record not keyed by the original fingerprint")
	}
	if rec.IssueKey != "OLD-1" || rec.DurationSeconds != 3600 {
		t.Errorf("record should hold original values, got %+v", rec)
	}
	if v, ok := rec.Extra["manually_modified"].(bool); !ok || !v {
		t.Errorf("audit blob missing manually_modified: %v", rec.Extra)
	}
	if rec.Extra["submitted_issue_key"] != "NEW-2" {
		t.Errorf("audit blob missing submitted key: %v", rec.Extra)
	}

	// A second run over the same raw data skips the entry.
	worklogs2 := &fakeWorklogs{}
	s2 := &Syncer{Issues: &fakeIssues{}, Worklogs: worklogs2, Store: st, Prompt: &scriptedPrompt{t: t}}
	sum2, err := s2.Run([]models.LogicalEntry{testEntry()})
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if sum2.SkippedDuplicate != 1 {
		t.Errorf("second run skipped = %d, want 1", sum2.SkippedDuplicate)
	}
	if len(worklogs2.calls) != 0 {
		t.Error("second run must not resubmit the edited entry")
	}
}

func TestRetryResubmitsUnchanged(t *testing.T) {
	st := testStore(t)
	worklogs := &fakeWorklogs{failures: 1}
	prompt := &scriptedPrompt{t: t, choices: []string{ChoiceRetry}}
	s := &Syncer{Issues: &fakeIssues{}, Worklogs: worklogs, Store: st, Prompt: prompt}

	sum, err := s.Run([]models.LogicalEntry{testEntry()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Submitted != 1 {
		t.Errorf("submitted = %d, want 1", sum.Submitted)
	}
	if len(worklogs.calls) != 2 {
		t.Fatalf("expected 2 submission attempts, got %d", len(worklogs.calls))
	}
	if worklogs.calls[0] != worklogs.calls[1] {
		t.Error("retry must resubmit unchanged values")
	}
}

func TestUserSkipWritesNoRecord(t *testing.T) {
	st := testStore(t)
	worklogs := &fakeWorklogs{failures: 10}
	prompt := &scriptedPrompt{t: t, choices: []string{ChoiceSkip}}
	s := &Syncer{Issues: &fakeIssues{}, Worklogs: worklogs, Store: st, Prompt: prompt}

	sum, err := s.Run([]models.LogicalEntry{testEntry()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.SkippedByUser != 1 {
		t.Errorf("user skips = %d, want 1", sum.SkippedByUser)
	}

	records, err := st.List("", "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("skip must not write a record, got %d", len(records))
	}
}

func TestAbortStopsBeforeNextEntry(t *testing.T) {
	st := testStore(t)
	worklogs := &fakeWorklogs{failures: 10}
	prompt := &scriptedPrompt{t: t, choices: []string{ChoiceAbort}}
	s := &Syncer{Issues: &fakeIssues{}, Worklogs: worklogs, Store: st, Prompt: prompt}

	second := testEntry()
	second.SourceIDs = []int64{2001}
	second.IssueKey = "OTHER-2"

	_, err := s.Run([]models.LogicalEntry{testEntry(), second})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}

	// Only the first entry was ever attempted.
	for _, call := range worklogs.calls {
		if call.seconds != 3600 {
			t.Errorf("second entry must not be submitted after abort: %+v", call)
		}
	}
	if len(worklogs.calls) != 1 {
		t.Errorf("expected exactly 1 attempt before abort, got %d", len(worklogs.calls))
	}
}

func TestInvalidIssueKeyOffersRecovery(t *testing.T) {
	st := testStore(t)
	issues := &fakeIssues{missing: map[string]bool{"OLD-1": true}}
	worklogs := &fakeWorklogs{}
	prompt := &scriptedPrompt{
		t:       t,
		choices: []string{ChoiceEdit},
		inputs:  []string{"GOOD-1", "", "", ""},
	}
	s := &Syncer{Issues: issues, Worklogs: worklogs, Store: st, Prompt: prompt}

	sum, err := s.Run([]models.LogicalEntry{testEntry()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Submitted != 1 {
		t.Errorf("submitted = %d, want 1", sum.Submitted)
	}
	if len(worklogs.calls) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(worklogs.calls))
	}
}

func TestSoftValidationPause(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		choice  string
		want    func(t *testing.T, sum Summary, worklogs *fakeWorklogs)
	}{
		{
			name:    "continue anyway",
			summary: "Moved to PROJ-99",
			choice:  ChoiceContinue,
			want: func(t *testing.T, sum Summary, worklogs *fakeWorklogs) {
				if sum.Submitted != 1 || len(worklogs.calls) != 1 {
					t.Errorf("expected submission, got %+v, %d calls", sum, len(worklogs.calls))
				}
			},
		},
		{
			name:    "skip",
			summary: "NOT IN USE - see the new board",
			choice:  ChoiceSkip,
			want: func(t *testing.T, sum Summary, worklogs *fakeWorklogs) {
				if sum.SkippedByUser != 1 || len(worklogs.calls) != 0 {
					t.Errorf("expected skip without submission, got %+v, %d calls", sum, len(worklogs.calls))
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := testStore(t)
			issues := &fakeIssues{summaries: map[string]string{"OLD-1": tc.summary}}
			worklogs := &fakeWorklogs{}
			prompt := &scriptedPrompt{t: t, choices: []string{tc.choice}}
			s := &Syncer{Issues: issues, Worklogs: worklogs, Store: st, Prompt: prompt}

			sum, err := s.Run([]models.LogicalEntry{testEntry()})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			tc.want(t, sum, worklogs)
		})
	}
}

func TestSoftValidationModify(t *testing.T) {
	st := testStore(t)
	issues := &fakeIssues{summaries: map[string]string{"OLD-1": "moved to NEW-2"}}
	worklogs := &fakeWorklogs{}
	prompt := &scriptedPrompt{
		t:       t,
		choices: []string{ChoiceModify},
		inputs:  []string{"NEW-2", "", "", ""},
	}
	s := &Syncer{Issues: issues, Worklogs: worklogs, Store: st, Prompt: prompt}

	sum, err := s.Run([]models.LogicalEntry{testEntry()})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Submitted != 1 {
		t.Errorf("submitted = %d, want 1", sum.Submitted)
	}
	// Re-resolved under the new key after the edit.
	if issues.calls[len(issues.calls)-1] != "NEW-2" {
		t.Errorf("issue calls = %v, want final call for NEW-2", issues.calls)
	}
	// Still recorded under the original identity.
	fp := store.Fingerprint([]int64{1001}, "OLD-1", "original work", 3600, "2025-01-15")
	if exists, _ := st.Exists(fp); !exists {
		t.Error("record not keyed by original fingerprint after modify")
	}
}

// failingStore simulates a storage-engine failure, which must be fatal.
type failingStore struct{}

func (failingStore) Exists(string) (bool, error) {
	return false, errors.New("disk I/O error")
}

func (failingStore) Insert(*models.SyncRecord) (string, error) {
	return "", errors.New("disk I/O error")
}

func TestStorageErrorIsFatal(t *testing.T) {
	s := &Syncer{
		Issues:   &fakeIssues{},
		Worklogs: &fakeWorklogs{},
		Store:    failingStore{},
		Prompt:   &scriptedPrompt{t: t},
	}

	_, err := s.Run([]models.LogicalEntry{testEntry()})
	if err == nil {
		t.Fatal("storage error must terminate the run")
	}
}
