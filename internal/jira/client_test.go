package jira

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("example", "me@example.com", "token")
	c.BaseURL = srv.URL
	return c
}

func TestIssue(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/issue/TEST-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if _, _, ok := r.BasicAuth(); !ok {
			t.Error("missing basic auth")
		}
		w.Write([]byte(`{"id": "12345", "key": "TEST-123", "fields": {"summary": "Test issue"}}`))
	})

	issue, err := c.Issue("TEST-123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if issue.ID != "12345" || issue.Summary != "Test issue" {
		t.Errorf("unexpected issue: %+v", issue)
	}
}

func TestIssueNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
	})

	_, err := c.Issue("NOPE-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIssueServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Issue("TEST-1")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected generic HTTP error, got %v", err)
	}
}
