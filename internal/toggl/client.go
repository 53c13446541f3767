// Package toggl is a minimal Toggl Track API v9 client covering time-entry
// and project reads.
package toggl

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/petra/ttsync/internal/models"
)

const defaultBaseURL = "https://api.track.toggl.com/api/v9"

// HTTPError is a non-2xx response from the Toggl API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("toggl: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is an HTTP client for the Toggl Track API.
type Client struct {
	BaseURL  string
	APIToken string
	HTTP     *http.Client
}

// New creates a Toggl client authenticated with an API token.
func New(apiToken string) *Client {
	return &Client{
		BaseURL:  defaultBaseURL,
		APIToken: apiToken,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Project is a Toggl project as needed for name-to-id resolution.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TimeEntries fetches the raw time entries between start and end
// (YYYY-MM-DD, both inclusive). The API treats end_date as exclusive, so
// one day is added to the requested end; when end equals start the result
// is additionally narrowed to that single calendar day.
func (c *Client) TimeEntries(start, end string) ([]models.RawEntry, error) {
	if end == "" {
		end = start
	}

	endDay, err := time.Parse("2006-01-02", end)
	if err != nil {
		return nil, fmt.Errorf("parse end date %q: %w", end, err)
	}

	params := url.Values{}
	params.Set("start_date", start)
	params.Set("end_date", endDay.AddDate(0, 0, 1).Format("2006-01-02"))

	var entries []models.RawEntry
	if err := c.get("/me/time_entries?"+params.Encode(), &entries); err != nil {
		return nil, err
	}

	// Keep only entries starting within the requested range; the widened
	// end_date can leak entries from the following day.
	var filtered []models.RawEntry
	for _, e := range entries {
		d := e.StartDate()
		if d >= start && d <= end {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Projects returns the user's projects whose names are in filterNames;
// an empty filter returns all projects.
func (c *Client) Projects(filterNames []string) ([]Project, error) {
	var projects []Project
	if err := c.get("/me/projects", &projects); err != nil {
		return nil, err
	}

	if len(filterNames) == 0 {
		return projects, nil
	}

	wanted := make(map[string]bool, len(filterNames))
	for _, name := range filterNames {
		wanted[name] = true
	}
	var filtered []Project
	for _, p := range projects {
		if wanted[p.Name] {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (c *Client) get(path string, result any) error {
	req, err := http.NewRequest("GET", c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.APIToken, "api_token")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
