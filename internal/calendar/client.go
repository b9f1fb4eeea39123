// Package calendar wraps the remote clinic calendar API. The gateway queries
// busy intervals for a whole day once and performs overlap arithmetic
// locally instead of querying per slot.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lumina-estetica/citabot/internal/observability/metrics"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

const defaultTimeout = 8 * time.Second

// Client fetches busy intervals from the calendar API.
type Client struct {
	endpoint   string
	httpClient *http.Client
	metrics    *metrics.ConversationMetrics
	logger     *logging.Logger
}

// NewClient creates a calendar API client. timeout bounds every request so a
// slow calendar backend cannot stall a conversation turn.
func NewClient(endpoint string, timeout time.Duration, m *metrics.ConversationMetrics, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     logger,
	}
}

// BusyIntervals returns the occupied blocks for the given date. Events the
// API returns with unparseable timestamps are skipped.
func (c *Client) BusyIntervals(ctx context.Context, date time.Time, loc *time.Location) ([]BusyInterval, error) {
	body, err := json.Marshal(getEventsRequest{
		Action: "getEvents",
		Date:   date.Format("2006-01-02"),
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("calendar: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	began := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveGatewayLatency("calendar", "error", time.Since(began).Seconds())
		return nil, fmt.Errorf("calendar: http request: %w", err)
	}
	defer resp.Body.Close()
	status := "ok"
	if resp.StatusCode != http.StatusOK {
		status = "error"
	}
	c.metrics.ObserveGatewayLatency("calendar", status, time.Since(began).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("calendar: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return nil, fmt.Errorf("calendar: status %d: %s", resp.StatusCode, msg)
	}

	var out getEventsResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("calendar: unmarshal response: %w", err)
	}

	intervals := make([]BusyInterval, 0, len(out.OccupiedTimes))
	for _, ev := range out.OccupiedTimes {
		start, err := parseEventTime(ev.Start, loc)
		if err != nil {
			c.logger.Warn("calendar: skipping event with bad start", "value", ev.Start)
			continue
		}
		end, err := parseEventTime(ev.End, loc)
		if err != nil {
			c.logger.Warn("calendar: skipping event with bad end", "value", ev.End)
			continue
		}
		intervals = append(intervals, BusyInterval{Start: start, End: end})
	}
	return intervals, nil
}

// parseEventTime parses an API timestamp into clinic-local time. Handles:
//   - RFC3339 with offset: "2006-01-02T15:04:05-05:00"
//   - RFC3339 UTC: "2006-01-02T15:04:05Z"
//   - Naive datetime (no timezone): "2006-01-02T15:04:05", treated as clinic local
func parseEventTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("calendar: cannot parse event time %q", raw)
}
