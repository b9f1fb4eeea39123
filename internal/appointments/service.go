package appointments

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumina-estetica/citabot/internal/calendar"
	"github.com/lumina-estetica/citabot/internal/clinic"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

var bookingsTracer = otel.Tracer("citabot.internal.appointments")

// Creator is the remote-write capability of the appointments client.
type Creator interface {
	Create(ctx context.Context, req BookingRequest, duration time.Duration, loc *time.Location) (createResponse, error)
}

// AvailabilityChecker re-validates a slot immediately before writing,
// defending against a race between the user's confirmation and a concurrent
// booking of the same slot through another channel.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, cfg *clinic.Config, date time.Time, startMinutes int) (calendar.Availability, error)
}

// Recorder persists the committed booking row.
type Recorder interface {
	RecordCommitted(ctx context.Context, b Booking) (*Booking, error)
	GetBySession(ctx context.Context, sessionID string) (*Booking, error)
}

// Service commits bookings: re-check, write, record. The state machine calls
// it at most once per confirmation event.
type Service struct {
	client  Creator
	checker AvailabilityChecker
	repo    Recorder
	logger  *logging.Logger
}

// NewService constructs an appointments service.
func NewService(client Creator, checker AvailabilityChecker, repo Recorder, logger *logging.Logger) *Service {
	if client == nil {
		panic("appointments: client required")
	}
	if checker == nil {
		panic("appointments: availability checker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{client: client, checker: checker, repo: repo, logger: logger}
}

// Commit re-validates availability and writes the appointment. A stale slot
// returns SlotTaken with alternatives instead of an error; gateway failures
// propagate so the caller can keep the session in its confirmation state.
func (s *Service) Commit(ctx context.Context, cfg *clinic.Config, req BookingRequest) (*BookingResult, error) {
	ctx, span := bookingsTracer.Start(ctx, "appointments.commit")
	defer span.End()
	span.SetAttributes(
		attribute.String("citabot.session_id", req.SessionID),
		attribute.String("citabot.treatment", req.Treatment),
	)

	avail, err := s.checker.CheckAvailability(ctx, cfg, req.Date, req.StartMinutes)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: pre-write availability check: %w", err)
	}
	if !avail.Available {
		return &BookingResult{
			SlotTaken:    true,
			Alternatives: avail.Alternatives,
		}, nil
	}

	resp, err := s.client.Create(ctx, req, cfg.SlotDuration(), cfg.Location())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !resp.Success {
		return &BookingResult{Success: false, Message: resp.Message}, nil
	}

	loc := cfg.Location()
	scheduledFor := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(),
		req.StartMinutes/60, req.StartMinutes%60, 0, 0, loc)

	if s.repo != nil {
		if _, err := s.repo.RecordCommitted(ctx, Booking{
			SessionID:    req.SessionID,
			Phone:        req.Phone,
			Name:         req.Name,
			Treatment:    req.Treatment,
			ScheduledFor: scheduledFor,
		}); err != nil {
			// The remote write already happened; a local record failure must
			// not surface as a booking failure. Log and continue.
			s.logger.Error("failed to record committed booking", "error", err, "session_id", req.SessionID)
		}
	}

	s.logger.Info("booking committed",
		"session_id", req.SessionID,
		"treatment", req.Treatment,
		"scheduled_for", scheduledFor,
	)
	return &BookingResult{
		Success:      true,
		Message:      resp.Message,
		ScheduledFor: scheduledFor,
	}, nil
}
