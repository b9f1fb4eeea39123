// Package appointments wraps the remote appointment-creation endpoint
// (notification plus calendar event in one call) and records committed
// bookings locally so duplicate confirmations stay idempotent.
package appointments

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

const defaultTimeout = 10 * time.Second

// Client posts appointment writes to the clinic backend. The backend treats
// the call as non-idempotent; callers must invoke it at most once per
// confirmation event.
type Client struct {
	endpoint   string
	httpClient *http.Client
	metrics    *metrics.ConversationMetrics
	logger     *logging.Logger
}

// NewClient creates an appointments API client.
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

// Create writes the appointment. start/end are serialized in the clinic's
// fixed UTC-5 offset per the backend's wire convention.
func (c *Client) Create(ctx context.Context, req BookingRequest, duration time.Duration, loc *time.Location) (createResponse, error) {
	start := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(),
		req.StartMinutes/60, req.StartMinutes%60, 0, 0, loc)
	end := start.Add(duration)

	body, err := json.Marshal(createRequest{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Service: req.Treatment,
		Message: fmt.Sprintf("Cita agendada por el asistente virtual: %s", req.Treatment),
		Start:   start.Format("2006-01-02T15:04:05-07:00"),
		End:     end.Format("2006-01-02T15:04:05-07:00"),
	})
	if err != nil {
		return createResponse{}, fmt.Errorf("appointments: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return createResponse{}, fmt.Errorf("appointments: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	began := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveGatewayLatency("appointments", "error", time.Since(began).Seconds())
		return createResponse{}, fmt.Errorf("appointments: http request: %w", err)
	}
	defer resp.Body.Close()
	status := "ok"
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		status = "error"
	}
	c.metrics.ObserveGatewayLatency("appointments", status, time.Since(began).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return createResponse{}, fmt.Errorf("appointments: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return createResponse{}, fmt.Errorf("appointments: status %d: %s", resp.StatusCode, msg)
	}

	var out createResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return createResponse{}, fmt.Errorf("appointments: unmarshal response: %w", err)
	}
	return out, nil
}
