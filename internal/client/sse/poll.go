package sse

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/imisrelay/internal/client/fhir"
	"github.com/garrettladley/imisrelay/internal/storage"
	"github.com/garrettladley/imisrelay/internal/xhttp"
)

const (
	dataPath         = "/api/data"
	checkUpdatesPath = "/api/check_updates"
)

// PollClient reads the relay the same way the dashboard page does.
type PollClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewPollClient(baseURL string) *PollClient {
	return &PollClient{
		baseURL:    fhir.TrimBaseURL(baseURL),
		httpClient: xhttp.NewHTTPClient(xhttp.WithTimeout(30 * time.Second)),
	}
}

func (c *PollClient) Snapshot(ctx context.Context) (*storage.Snapshot, error) {
	var result storage.Snapshot
	if err := c.get(ctx, c.baseURL+dataPath, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *PollClient) HasNewData(ctx context.Context, lastKnownCount int64) (bool, error) {
	u, err := url.Parse(c.baseURL + checkUpdatesPath)
	if err != nil {
		return false, fmt.Errorf("parsing URL: %w", err)
	}

	q := u.Query()
	q.Set("count", strconv.FormatInt(lastKnownCount, 10))
	u.RawQuery = q.Encode()

	var result struct {
		HasNewData bool `json:"has_new_data"`
	}
	if err := c.get(ctx, u.String(), &result); err != nil {
		return false, err
	}
	return result.HasNewData, nil
}

func (c *PollClient) get(ctx context.Context, u string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set(xhttp.Accept, xhttp.ApplicationJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := go_json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
