package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meltforce/vitalsync/internal/models"
)

// HTTPClient implements DataSource by calling the VitalSync REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: *HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Sync runs can take a while on large histories.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// DaysInRange queries daily rollups. The server resolves the requesting user
// from the tailnet connection, so userID is not sent on the wire.
func (c *HTTPClient) DaysInRange(ctx context.Context, userID int, from, to time.Time) ([]models.DayRecord, error) {
	params := url.Values{}
	params.Set("start", from.Format(time.RFC3339))
	params.Set("end", to.Format(time.RFC3339))

	body, err := c.get(ctx, "/api/v1/rollup/day", params)
	if err != nil {
		return nil, err
	}

	var days []models.DayRecord
	if err := json.Unmarshal(body, &days); err != nil {
		return nil, fmt.Errorf("httpclient: decode days: %w", err)
	}
	return days, nil
}

func (c *HTTPClient) Weeks(ctx context.Context, userID int) ([]models.WeekRecord, error) {
	body, err := c.get(ctx, "/api/v1/rollup/week", nil)
	if err != nil {
		return nil, err
	}

	var weeks []models.WeekRecord
	if err := json.Unmarshal(body, &weeks); err != nil {
		return nil, fmt.Errorf("httpclient: decode weeks: %w", err)
	}
	return weeks, nil
}

func (c *HTTPClient) Months(ctx context.Context, userID int) ([]models.MonthRecord, error) {
	body, err := c.get(ctx, "/api/v1/rollup/month", nil)
	if err != nil {
		return nil, err
	}

	var months []models.MonthRecord
	if err := json.Unmarshal(body, &months); err != nil {
		return nil, fmt.Errorf("httpclient: decode months: %w", err)
	}
	return months, nil
}

func (c *HTTPClient) Years(ctx context.Context, userID int) ([]models.YearRecord, error) {
	body, err := c.get(ctx, "/api/v1/rollup/year", nil)
	if err != nil {
		return nil, err
	}

	var years []models.YearRecord
	if err := json.Unmarshal(body, &years); err != nil {
		return nil, fmt.Errorf("httpclient: decode years: %w", err)
	}
	return years, nil
}

func (c *HTTPClient) GetHighscores(ctx context.Context, userID int) (models.HighscoreRecord, error) {
	body, err := c.get(ctx, "/api/v1/highscores", nil)
	if err != nil {
		return models.HighscoreRecord{}, err
	}

	var rec models.HighscoreRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return models.HighscoreRecord{}, fmt.Errorf("httpclient: decode highscores: %w", err)
	}
	return rec, nil
}

// TriggerSync posts to the sync endpoint and drains the progress stream.
// The last line of the stream carries the terminal status.
func (c *HTTPClient) TriggerSync(ctx context.Context, userID int, mode string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/sync/"+mode, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: sync %s: %w", mode, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("httpclient: sync %s returned %d: %s", mode, resp.StatusCode, body)
	}

	var lastLine []byte
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Bytes(); len(line) > 0 {
			lastLine = append(lastLine[:0], line...)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("httpclient: read sync stream: %w", err)
	}

	var status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(lastLine, &status); err != nil {
		return fmt.Errorf("httpclient: decode sync status: %w", err)
	}
	if status.Status != "ok" {
		return fmt.Errorf("httpclient: sync %s failed: %s", mode, status.Error)
	}
	return nil
}
