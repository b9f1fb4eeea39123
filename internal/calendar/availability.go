package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumina-estetica/citabot/internal/clinic"
)

var calendarTracer = otel.Tracer("citabot.internal.calendar")

// maxAlternatives caps how many free starts are offered when a requested slot
// is occupied.
const maxAlternatives = 3

// BusySource is the day-query capability of the calendar client. Narrowed to
// an interface so tests can stub the remote API.
type BusySource interface {
	BusyIntervals(ctx context.Context, date time.Time, loc *time.Location) ([]BusyInterval, error)
}

// Gateway answers slot availability questions by fetching the day's busy
// intervals once and comparing locally.
type Gateway struct {
	source BusySource
}

// NewGateway wires an availability gateway around a busy-interval source.
func NewGateway(source BusySource) *Gateway {
	if source == nil {
		panic("calendar: busy source cannot be nil")
	}
	return &Gateway{source: source}
}

// CheckAvailability reports whether an appointment starting at startMinutes
// (minutes since midnight, clinic-local) on date fits the calendar. The
// candidate window is [start, start+duration). When occupied, up to three
// alternative free starts for the same date are included.
func (g *Gateway) CheckAvailability(ctx context.Context, cfg *clinic.Config, date time.Time, startMinutes int) (Availability, error) {
	ctx, span := calendarTracer.Start(ctx, "calendar.check_availability")
	defer span.End()
	span.SetAttributes(
		attribute.String("citabot.date", date.Format("2006-01-02")),
		attribute.Int("citabot.start_minutes", startMinutes),
	)

	loc := cfg.Location()
	busy, err := g.source.BusyIntervals(ctx, date, loc)
	if err != nil {
		span.RecordError(err)
		return Availability{}, fmt.Errorf("calendar: fetch busy intervals: %w", err)
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	duration := cfg.SlotDuration()
	start := slotTime(date, startMinutes, loc)
	end := start.Add(duration)

	if isFree(start, end, busy) {
		return Availability{Available: true}, nil
	}

	return Availability{
		Available:    false,
		Reason:       "occupied",
		Alternatives: g.freeStarts(cfg, date, busy, loc),
	}, nil
}

// freeStarts scans hourly candidate starts within business hours and returns
// the first few that pass both the hours validation and the overlap test.
func (g *Gateway) freeStarts(cfg *clinic.Config, date time.Time, busy []BusyInterval, loc *time.Location) []string {
	openMin, closeMin, open := cfg.OpenRange(date)
	if !open {
		return nil
	}

	duration := cfg.SlotDuration()
	var alternatives []string
	for candidate := openMin; candidate+int(duration.Minutes()) <= closeMin; candidate += 60 {
		if v := cfg.ValidateSlot(date, candidate); !v.OK {
			continue
		}
		start := slotTime(date, candidate, loc)
		if isFree(start, start.Add(duration), busy) {
			alternatives = append(alternatives, fmt.Sprintf("%02d:%02d", candidate/60, candidate%60))
			if len(alternatives) == maxAlternatives {
				break
			}
		}
	}
	return alternatives
}

func isFree(start, end time.Time, busy []BusyInterval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return false
		}
	}
	return true
}

func slotTime(date time.Time, minutes int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, loc)
}
