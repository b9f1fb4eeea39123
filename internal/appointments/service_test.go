package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumina-estetica/citabot/internal/calendar"
	"github.com/lumina-estetica/citabot/internal/clinic"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

type fakeCreator struct {
	calls int
	resp  createResponse
	err   error
}

func (f *fakeCreator) Create(_ context.Context, _ BookingRequest, _ time.Duration, _ *time.Location) (createResponse, error) {
	f.calls++
	return f.resp, f.err
}

type fakeChecker struct {
	avail calendar.Availability
	err   error
}

func (f *fakeChecker) CheckAvailability(_ context.Context, _ *clinic.Config, _ time.Time, _ int) (calendar.Availability, error) {
	return f.avail, f.err
}

type fakeRecorder struct {
	recorded []Booking
	err      error
}

func (f *fakeRecorder) RecordCommitted(_ context.Context, b Booking) (*Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.recorded = append(f.recorded, b)
	return &b, nil
}

func (f *fakeRecorder) GetBySession(_ context.Context, _ string) (*Booking, error) {
	return nil, ErrBookingNotFound
}

func testRequest() BookingRequest {
	return BookingRequest{
		SessionID:    "sess-1",
		Name:         "Juan Pérez",
		Phone:        "573001112233",
		Treatment:    "Limpieza Facial",
		Date:         time.Date(2025, time.November, 19, 0, 0, 0, 0, time.UTC),
		StartMinutes: 10 * 60,
	}
}

func TestCommitSuccess(t *testing.T) {
	creator := &fakeCreator{resp: createResponse{Success: true, Message: "ok"}}
	recorder := &fakeRecorder{}
	svc := NewService(creator, &fakeChecker{avail: calendar.Availability{Available: true}}, recorder, logging.Default())

	result, err := svc.Commit(context.Background(), clinic.DefaultConfig(), testRequest())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success")
	}
	if creator.calls != 1 {
		t.Fatalf("creator called %d times, want 1", creator.calls)
	}
	if len(recorder.recorded) != 1 {
		t.Fatalf("recorded %d bookings, want 1", len(recorder.recorded))
	}
	if got := result.ScheduledFor.Hour(); got != 10 {
		t.Fatalf("scheduled hour = %d, want 10", got)
	}
}

func TestCommitSlotTakenSkipsWrite(t *testing.T) {
	creator := &fakeCreator{resp: createResponse{Success: true}}
	checker := &fakeChecker{avail: calendar.Availability{
		Available:    false,
		Reason:       "occupied",
		Alternatives: []string{"14:00", "15:00"},
	}}
	svc := NewService(creator, checker, &fakeRecorder{}, logging.Default())

	result, err := svc.Commit(context.Background(), clinic.DefaultConfig(), testRequest())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !result.SlotTaken {
		t.Fatal("expected SlotTaken")
	}
	if creator.calls != 0 {
		t.Fatalf("creator called %d times, want 0 when slot is stale", creator.calls)
	}
	if len(result.Alternatives) != 2 {
		t.Fatalf("alternatives = %v, want 2 entries", result.Alternatives)
	}
}

func TestCommitCheckerErrorPropagates(t *testing.T) {
	creator := &fakeCreator{}
	svc := NewService(creator, &fakeChecker{err: errors.New("calendar down")}, &fakeRecorder{}, logging.Default())

	if _, err := svc.Commit(context.Background(), clinic.DefaultConfig(), testRequest()); err == nil {
		t.Fatal("expected error when availability check fails")
	}
	if creator.calls != 0 {
		t.Fatal("creator must not be called when the re-check fails")
	}
}

func TestCommitWriteErrorPropagates(t *testing.T) {
	creator := &fakeCreator{err: errors.New("backend down")}
	svc := NewService(creator, &fakeChecker{avail: calendar.Availability{Available: true}}, &fakeRecorder{}, logging.Default())

	if _, err := svc.Commit(context.Background(), clinic.DefaultConfig(), testRequest()); err == nil {
		t.Fatal("expected error when appointment write fails")
	}
}

func TestCommitRecordFailureDoesNotSurface(t *testing.T) {
	creator := &fakeCreator{resp: createResponse{Success: true}}
	recorder := &fakeRecorder{err: errors.New("pg down")}
	svc := NewService(creator, &fakeChecker{avail: calendar.Availability{Available: true}}, recorder, logging.Default())

	result, err := svc.Commit(context.Background(), clinic.DefaultConfig(), testRequest())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !result.Success {
		t.Fatal("remote booking succeeded; a local record failure must not fail the commit")
	}
}
