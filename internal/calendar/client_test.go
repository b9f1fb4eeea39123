package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lumina-estetica/citabot/pkg/logging"
)

func TestBusyIntervals(t *testing.T) {
	loc := time.FixedZone("-05", -5*3600)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req getEventsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Action != "getEvents" {
			t.Fatalf("action = %q, want getEvents", req.Action)
		}
		if req.Date != "2025-11-17" {
			t.Fatalf("date = %q, want 2025-11-17", req.Date)
		}
		_ = json.NewEncoder(w).Encode(getEventsResponse{OccupiedTimes: []occupiedTime{
			{Start: "2025-11-17T10:00:00-05:00", End: "2025-11-17T12:00:00-05:00"},
			{Start: "2025-11-17T15:00:00", End: "2025-11-17T16:00:00"}, // naive local
			{Start: "not-a-time", End: "2025-11-17T18:00:00-05:00"},    // skipped
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil, logging.Default())
	day := time.Date(2025, time.November, 17, 0, 0, 0, 0, loc)

	busy, err := c.BusyIntervals(context.Background(), day, loc)
	if err != nil {
		t.Fatalf("BusyIntervals: %v", err)
	}
	if len(busy) != 2 {
		t.Fatalf("got %d intervals, want 2 (malformed event skipped)", len(busy))
	}

	wantStart := time.Date(2025, time.November, 17, 10, 0, 0, 0, loc)
	if !busy[0].Start.Equal(wantStart) {
		t.Fatalf("first start = %v, want %v", busy[0].Start, wantStart)
	}
	wantNaive := time.Date(2025, time.November, 17, 15, 0, 0, 0, loc)
	if !busy[1].Start.Equal(wantNaive) {
		t.Fatalf("naive start = %v, want %v", busy[1].Start, wantNaive)
	}
}

func TestBusyIntervalsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, nil, logging.Default())
	day := time.Date(2025, time.November, 17, 0, 0, 0, 0, time.UTC)

	if _, err := c.BusyIntervals(context.Background(), day, time.UTC); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
