package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/IchiThe2nd/aidivalogger/pkg/config"
)

// Client talks to the controller's HTTP API. It is stateless per call and
// safe for concurrent use.
type Client struct {
	baseURL  string
	username string
	password string
	loc      *time.Location
	http     *http.Client
}

// NewClient creates a controller client. The configured UTC offset becomes
// the zone all controller timestamps are parsed in.
func NewClient(cfg *config.ControllerConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		loc:      time.FixedZone("controller", cfg.UTCOffsetMin*60),
		http:     &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Location returns the zone controller timestamps are interpreted in.
func (c *Client) Location() *time.Location {
	return c.loc
}

// FetchCurrent retrieves the controller's live status. With minimal set the
// controller trims the payload to the latest record only, which is what the
// high-frequency poll loop wants.
func (c *Client) FetchCurrent(ctx context.Context, minimal bool) (*Snapshot, error) {
	query := url.Values{}
	if minimal {
		query.Set("minimal", "1")
	}

	var snap Snapshot
	if err := c.get(ctx, "/api/status", query, &snap); err != nil {
		return nil, err
	}

	if err := parseRecordTimes(snap.Records, c.loc); err != nil {
		return nil, err
	}
	return &snap, nil
}

// FetchProbeHistory retrieves spanDays of probe datalog starting at start.
func (c *Client) FetchProbeHistory(ctx context.Context, start time.Time, spanDays int) ([]Record, error) {
	query := url.Values{}
	query.Set("start", start.In(c.loc).Format("2006-01-02"))
	query.Set("days", strconv.Itoa(spanDays))

	var resp struct {
		Records []Record `json:"records"`
	}
	if err := c.get(ctx, "/api/datalog", query, &resp); err != nil {
		return nil, err
	}

	if err := parseRecordTimes(resp.Records, c.loc); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// FetchOutletHistory retrieves spanDays of outlet switch log starting at
// start.
func (c *Client) FetchOutletHistory(ctx context.Context, start time.Time, spanDays int) ([]OutletRecord, error) {
	query := url.Values{}
	query.Set("start", start.In(c.loc).Format("2006-01-02"))
	query.Set("days", strconv.Itoa(spanDays))

	var resp struct {
		Records []OutletRecord `json:"records"`
	}
	if err := c.get(ctx, "/api/switchlog", query, &resp); err != nil {
		return nil, err
	}

	if err := parseOutletTimes(resp.Records, c.loc); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("controller request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("controller returned HTTP %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid controller response for %s: %w", path, err)
	}
	return nil
}
