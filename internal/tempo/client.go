// Package tempo submits worklogs to the Tempo Cloud API and reads back a
// user's logged time.
package tempo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/petra/ttsync/internal/models"
)

const defaultBaseURL = "https://api.tempo.io/4"

// maxWorklogPages bounds the pagination loop so a misbehaving API cannot
// keep the client following next-page links forever.
const maxWorklogPages = 100

// HTTPError is a non-2xx response from the Tempo API, carrying the status
// code and response body for the operator-facing recovery menu.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tempo: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for the Tempo API.
type Client struct {
	BaseURL   string
	AccountID string // Atlassian account id the worklogs are authored as
	APIToken  string
	HTTP      *http.Client
}

// New creates a Tempo client authenticated with a bearer token.
func New(accountID, apiToken string) *Client {
	return &Client{
		BaseURL:   defaultBaseURL,
		AccountID: accountID,
		APIToken:  apiToken,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

type worklogRequest struct {
	AuthorAccountID  string `json:"authorAccountId"`
	IssueID          int64  `json:"issueId"`
	TimeSpentSeconds int64  `json:"timeSpentSeconds"`
	StartDate        string `json:"startDate"`
	Description      string `json:"description"`
}

// AddWorklog submits one worklog against the given Jira issue id and
// returns the Tempo worklog id when the API reports one.
func (c *Client) AddWorklog(issueID string, seconds int64, date, description string) (string, error) {
	numericID, err := strconv.ParseInt(issueID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("issue id %q is not numeric: %w", issueID, err)
	}

	reqBody := worklogRequest{
		AuthorAccountID:  c.AccountID,
		IssueID:          numericID,
		TimeSpentSeconds: seconds,
		StartDate:        date,
		Description:      description,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal worklog: %w", err)
	}

	req, err := http.NewRequest("POST", c.BaseURL+"/worklogs", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		TempoWorklogID int64 `json:"tempoWorklogId"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal worklog response: %w", err)
	}
	if result.TempoWorklogID == 0 {
		return "", nil
	}
	return strconv.FormatInt(result.TempoWorklogID, 10), nil
}

type worklogPage struct {
	Results []struct {
		TimeSpentSeconds int64  `json:"timeSpentSeconds"`
		StartDate        string `json:"startDate"`
	} `json:"results"`
	Metadata struct {
		Next string `json:"next"`
	} `json:"metadata"`
}

// UserWorklogs fetches all worklogs authored by the configured account in
// the inclusive date range, following offset pagination page by page up to
// maxWorklogPages.
func (c *Client) UserWorklogs(from, to string) ([]models.Worklog, error) {
	const limit = 1000

	var entries []models.Worklog
	offset := 0
	for page := 0; page < maxWorklogPages; page++ {
		params := url.Values{}
		params.Set("from", from)
		params.Set("to", to)
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))

		req, err := http.NewRequest("GET", c.BaseURL+"/worklogs/user/"+c.AccountID+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		var result worklogPage
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("unmarshal worklogs: %w", err)
		}

		for _, log := range result.Results {
			entries = append(entries, models.Worklog{Date: log.StartDate, Seconds: log.TimeSpentSeconds})
		}

		if result.Metadata.Next == "" {
			return entries, nil
		}
		offset += limit
	}

	return nil, fmt.Errorf("worklog pagination exceeded %d pages", maxWorklogPages)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
}
