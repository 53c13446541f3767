// Package jira resolves issue keys to ids and summaries via the Jira Cloud
// REST API.
package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/petra/ttsync/internal/models"
)

// ErrNotFound indicates the issue key does not resolve to an issue.
var ErrNotFound = errors.New("issue not found")

// Client is an HTTP client for the Jira Cloud REST API v3.
type Client struct {
	BaseURL  string // e.g. https://example.atlassian.net
	Email    string
	APIToken string
	HTTP     *http.Client
}

// New creates a Jira client for the given subdomain, authenticated with
// the user's email and API token.
func New(subdomain, email, apiToken string) *Client {
	return &Client{
		BaseURL:  fmt.Sprintf("https://%s.atlassian.net", subdomain),
		Email:    email,
		APIToken: apiToken,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Issue fetches an issue's id and summary by key. Unknown keys return
// ErrNotFound.
func (c *Client) Issue(key string) (*models.Issue, error) {
	req, err := http.NewRequest("GET", c.BaseURL+"/rest/api/3/issue/"+key+"?fields=summary", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.Email, c.APIToken)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("jira: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal issue: %w", err)
	}

	return &models.Issue{ID: payload.ID, Key: payload.Key, Summary: payload.Fields.Summary}, nil
}
