package influx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/IchiThe2nd/aidivalogger/pkg/config"
)

// ErrScanLimit marks a query the store rejected because its time range would
// touch more underlying Parquet files than the server allows in one scan.
// Callers test for it with errors.Is and fall back to narrower ranges.
var ErrScanLimit = errors.New("query exceeds the store's file scan limit")

// TimestampQuery asks for up to Limit timestamps of a measurement within
// (Start, End], ordered ascending or descending.
type TimestampQuery struct {
	Measurement string
	Start       time.Time
	End         time.Time
	Descending  bool
	Limit       int
}

// Client wraps the store's HTTP API: line-protocol writes and SQL queries.
type Client struct {
	url      string
	database string
	token    string
	http     *http.Client
}

// Connect creates a store client and verifies the server is reachable.
func Connect(cfg *config.InfluxConfig) (*Client, error) {
	c := &Client{
		url:      strings.TrimRight(cfg.URL, "/"),
		database: cfg.Database,
		token:    cfg.Token,
		http:     &http.Client{Timeout: cfg.Timeout},
	}

	req, err := http.NewRequest(http.MethodGet, c.url+"/health", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach store: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("store unhealthy: HTTP %d", resp.StatusCode)
	}

	return c, nil
}

// WritePoints writes a batch in line protocol. Empty input is a no-op.
func (c *Client) WritePoints(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	var body bytes.Buffer
	for i := range points {
		line, ok := points[i].EncodeLine()
		if !ok {
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if body.Len() == 0 {
		return nil
	}

	query := url.Values{}
	query.Set("db", c.database)
	query.Set("precision", "second")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.url+"/api/v3/write_lp?"+query.Encode(), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("store rejected write: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// QueryTimestamps runs a time-bounded SQL query and returns the matching
// timestamps. A scan-ceiling rejection comes back wrapped in ErrScanLimit.
func (c *Client) QueryTimestamps(ctx context.Context, q TimestampQuery) ([]time.Time, error) {
	order := "ASC"
	if q.Descending {
		order = "DESC"
	}
	sql := fmt.Sprintf(
		"SELECT time FROM %q WHERE time > '%s' AND time <= '%s' ORDER BY time %s LIMIT %d",
		q.Measurement,
		q.Start.UTC().Format(time.RFC3339Nano),
		q.End.UTC().Format(time.RFC3339Nano),
		order,
		q.Limit,
	)

	payload, err := json.Marshal(map[string]string{
		"db":     c.database,
		"q":      sql,
		"format": "json",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.url+"/api/v3/query_sql", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, classifyQueryError(resp.StatusCode, string(msg))
	}

	var rows []struct {
		Time string `json:"time"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("invalid store query response: %w", err)
	}

	timestamps := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		ts, err := parseRowTime(row.Time)
		if err != nil {
			return nil, err
		}
		timestamps = append(timestamps, ts)
	}
	return timestamps, nil
}

// Close releases the client's idle connections. Safe to call more than once.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// classifyQueryError turns the store's scan-ceiling rejection into
// ErrScanLimit so callers don't have to pattern-match message text
// themselves. The substrings are the store's documented error wording.
func classifyQueryError(status int, body string) error {
	if isScanLimitMessage(body) {
		return fmt.Errorf("%s: %w", strings.TrimSpace(body), ErrScanLimit)
	}
	return fmt.Errorf("store query failed: HTTP %d: %s", status, strings.TrimSpace(body))
}

func isScanLimitMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "parquet files") || strings.Contains(lower, "file limit")
}

// parseRowTime accepts the store's timestamp spellings; bare timestamps
// without a zone are UTC.
func parseRowTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse("2006-01-02 15:04:05.999999999", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q in store response: %w", s, err)
	}
	return ts.UTC(), nil
}
