package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lumina-estetica/citabot/internal/appointments"
	"github.com/lumina-estetica/citabot/internal/calendar"
	"github.com/lumina-estetica/citabot/internal/clinic"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

// maxFieldRetries is how many consecutive invalid answers the bot tolerates
// for one field before offering a human handoff.
const maxFieldRetries = 3

// errStartOver signals the caller to open a fresh session and replay the
// message; the current session is terminal.
var errStartOver = errors.New("conversation: session is terminal")

// AvailabilityChecker is the calendar capability the machine needs.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, cfg *clinic.Config, date time.Time, startMinutes int) (calendar.Availability, error)
}

// Committer writes the booking once the user confirms.
type Committer interface {
	Commit(ctx context.Context, cfg *clinic.Config, req appointments.BookingRequest) (*appointments.BookingResult, error)
}

// Machine drives one booking conversation turn. It mutates the session in
// place and returns the reply text; persisting the session is the caller's
// job so the whole turn commits or replays atomically.
type Machine struct {
	availability AvailabilityChecker
	booking      Committer
	classifier   Classifier
	intents      *IntentDetector
	logger       *logging.Logger
	now          func() time.Time
}

// NewMachine constructs the state machine. classifier may be nil; ambiguous
// input then falls back to plain re-prompts.
func NewMachine(availability AvailabilityChecker, booking Committer, classifier Classifier, logger *logging.Logger) *Machine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Machine{
		availability: availability,
		booking:      booking,
		classifier:   classifier,
		intents:      NewIntentDetector(),
		logger:       logger,
		now:          time.Now,
	}
}

// HandleTurn processes one inbound message against the session. Gateway
// failures never mutate collected state; the session stays where it was so
// the user can retry.
func (m *Machine) HandleTurn(ctx context.Context, cfg *clinic.Config, session *BookingSession, text string) (string, error) {
	now := m.now().In(cfg.Location())

	if session.Step == StepCommitted {
		// A duplicate confirmation replays the stored message instead of
		// booking again; anything else starts a new conversation.
		if m.intents.DetectConfirmation(text) == IntentAffirm && session.ConfirmationText != "" {
			return session.ConfirmationText, nil
		}
		return "", errStartOver
	}
	if session.Step == StepCancelled {
		return "", errStartOver
	}

	// Cancellation outranks per-state handling, and runs before any gateway
	// call so a cancel is honored even mid-booking.
	if session.Step != StepIdle && m.intents.IsCancellation(text) {
		return m.cancel(cfg, session, now), nil
	}

	switch session.Step {
	case StepIdle:
		return m.handleIdle(cfg, session, text, now), nil
	case StepAwaitingTreatment:
		return m.handleTreatment(ctx, cfg, session, text, now), nil
	case StepAwaitingDate:
		return m.handleDate(ctx, cfg, session, text, now), nil
	case StepAwaitingTime:
		return m.handleTime(ctx, cfg, session, text, now), nil
	case StepAwaitingName:
		return m.handleName(cfg, session, text, now), nil
	case StepAwaitingConfirmation:
		return m.handleConfirmation(ctx, cfg, session, text, now), nil
	default:
		return "", errStartOver
	}
}

func (m *Machine) cancel(cfg *clinic.Config, session *BookingSession, now time.Time) string {
	session.Collected = Collected{}
	session.advance(StepCancelled, now)
	return cancelledPrompt(cfg)
}

func (m *Machine) handleIdle(cfg *clinic.Config, session *BookingSession, text string, now time.Time) string {
	session.Collected.Phone = session.Phone
	// The opening message often already names the treatment.
	if t, ok := cfg.MatchTreatment(text); ok {
		session.Collected.TreatmentName = t.Name
		session.advance(StepAwaitingDate, now)
		return askDatePrompt(t.Name)
	}
	session.advance(StepAwaitingTreatment, now)
	return greetingPrompt(cfg)
}

func (m *Machine) handleTreatment(ctx context.Context, cfg *clinic.Config, session *BookingSession, text string, now time.Time) string {
	if t, ok := cfg.MatchTreatment(text); ok {
		session.Collected.TreatmentName = t.Name
		session.advance(StepAwaitingDate, now)
		return askDatePrompt(t.Name)
	}

	if reply, handled := m.classify(ctx, cfg, session, text, "treatment", now, func(repaired string) (string, bool) {
		t, ok := cfg.MatchTreatment(repaired)
		if !ok {
			return "", false
		}
		session.Collected.TreatmentName = t.Name
		session.advance(StepAwaitingDate, now)
		return askDatePrompt(t.Name), true
	}); handled {
		return reply
	}
	return m.retryOrHandoff(cfg, session, now, treatmentRetryPrompt(cfg))
}

func (m *Machine) handleDate(ctx context.Context, cfg *clinic.Config, session *BookingSession, text string, now time.Time) string {
	if date, ok := ExtractDate(text, now); ok {
		return m.acceptDate(cfg, session, date, now)
	}

	if reply, handled := m.classify(ctx, cfg, session, text, "date", now, func(repaired string) (string, bool) {
		date, ok := ExtractDate(repaired, now)
		if !ok {
			return "", false
		}
		return m.acceptDate(cfg, session, date, now), true
	}); handled {
		return reply
	}
	return m.retryOrHandoff(cfg, session, now, dateRetryPrompt())
}

// acceptDate applies the past-date and closed-day rules before storing.
func (m *Machine) acceptDate(cfg *clinic.Config, session *BookingSession, date time.Time, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return m.retryOrHandoff(cfg, session, now, pastDatePrompt())
	}
	if cfg.IsClosedDay(date) {
		return m.retryOrHandoff(cfg, session, now, closedDayPrompt(cfg, date))
	}
	session.Collected.Date = date.Format("2006-01-02")
	session.advance(StepAwaitingTime, now)
	return askTimePrompt(cfg, date)
}

func (m *Machine) handleTime(ctx context.Context, cfg *clinic.Config, session *BookingSession, text string, now time.Time) string {
	minutes, ok := ExtractTime(text)
	if !ok {
		if reply, handled := m.classify(ctx, cfg, session, text, "time", now, func(repaired string) (string, bool) {
			repairedMinutes, ok := ExtractTime(repaired)
			if !ok {
				return "", false
			}
			return m.acceptTime(ctx, cfg, session, repairedMinutes, now), true
		}); handled {
			return reply
		}
		return m.retryOrHandoff(cfg, session, now, timeRetryPrompt())
	}
	return m.acceptTime(ctx, cfg, session, minutes, now)
}

// acceptTime validates business hours, then asks the calendar. A gateway
// failure leaves the session untouched.
func (m *Machine) acceptTime(ctx context.Context, cfg *clinic.Config, session *BookingSession, minutes int, now time.Time) string {
	date, ok := session.DateValue(cfg.Location())
	if !ok {
		// Date went missing; collect it again.
		session.advance(StepAwaitingDate, now)
		return dateRetryPrompt()
	}

	if v := cfg.ValidateSlot(date, minutes); !v.OK {
		return m.retryOrHandoff(cfg, session, now, outOfHoursPrompt(cfg, date, v.Reason))
	}

	avail, err := m.availability.CheckAvailability(ctx, cfg, date, minutes)
	if err != nil {
		m.logger.Error("availability check failed", "error", err, "phone", session.Phone)
		return gatewayDownPrompt(cfg)
	}
	if !avail.Available {
		session.RetryCount = 0
		return slotTakenPrompt(avail.Alternatives)
	}

	session.Collected.Time = minutesToClock(minutes)
	if session.Collected.Name != "" {
		session.advance(StepAwaitingConfirmation, now)
		return summaryPrompt(session.Collected, date, minutes)
	}
	session.advance(StepAwaitingName, now)
	return askNamePrompt()
}

func (m *Machine) handleName(cfg *clinic.Config, session *BookingSession, text string, now time.Time) string {
	name := strings.TrimSpace(text)
	if name == "" {
		return m.retryOrHandoff(cfg, session, now, nameRetryPrompt())
	}

	session.Collected.Name = name
	if session.Collected.Phone == "" {
		session.Collected.Phone = session.Phone
	}

	date, dateOK := session.DateValue(cfg.Location())
	minutes, timeOK := session.TimeMinutes()
	if !dateOK || !timeOK {
		session.advance(StepAwaitingDate, now)
		return dateRetryPrompt()
	}
	session.advance(StepAwaitingConfirmation, now)
	return summaryPrompt(session.Collected, date, minutes)
}

func (m *Machine) handleConfirmation(ctx context.Context, cfg *clinic.Config, session *BookingSession, text string, now time.Time) string {
	intent := m.intents.DetectConfirmation(text)
	if intent == IntentNone && m.classifier != nil {
		if c, err := m.classifier.Classify(ctx, text, "confirmation"); err == nil {
			switch {
			case c.IsCancellation:
				intent = IntentCancel
			case c.IsInterruption && c.Response != "":
				return c.Response + " " + interruptionSuffix()
			}
		}
	}

	switch intent {
	case IntentCancel:
		return m.cancel(cfg, session, now)
	case IntentAffirm:
		return m.commit(ctx, cfg, session, now)
	case IntentNegate:
		return m.reviseBooking(cfg, session, text, now)
	default:
		return m.retryOrHandoff(cfg, session, now, confirmationRetryPrompt())
	}
}

// reviseBooking routes a negation back to the field the user wants changed.
func (m *Machine) reviseBooking(cfg *clinic.Config, session *BookingSession, text string, now time.Time) string {
	mentionsDate := m.intents.MentionsDate(text)
	mentionsTime := m.intents.MentionsTime(text)

	switch {
	case mentionsDate:
		session.Collected.Date = ""
		session.Collected.Time = ""
		session.advance(StepAwaitingDate, now)
		return dateRetryPrompt()
	case mentionsTime:
		session.Collected.Time = ""
		session.advance(StepAwaitingTime, now)
		return timeRetryPrompt()
	default:
		return "Claro, ¿qué deseas cambiar: la fecha o la hora?"
	}
}

// commit performs the single confirmation transition. Any gateway failure
// keeps the session in the confirmation step so re-confirming retries.
func (m *Machine) commit(ctx context.Context, cfg *clinic.Config, session *BookingSession, now time.Time) string {
	date, dateOK := session.DateValue(cfg.Location())
	minutes, timeOK := session.TimeMinutes()
	if !dateOK || !timeOK {
		session.advance(StepAwaitingDate, now)
		return dateRetryPrompt()
	}

	// Time may have passed since collection; a now-stale slot restarts the
	// date question instead of booking in the past.
	startAt := time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, cfg.Location())
	if startAt.Before(now) {
		session.Collected.Date = ""
		session.Collected.Time = ""
		session.advance(StepAwaitingDate, now)
		return pastDatePrompt()
	}

	result, err := m.booking.Commit(ctx, cfg, appointments.BookingRequest{
		SessionID:    session.ID,
		Name:         session.Collected.Name,
		Phone:        session.Collected.Phone,
		Treatment:    session.Collected.TreatmentName,
		Date:         date,
		StartMinutes: minutes,
	})
	if err != nil {
		m.logger.Error("booking commit failed", "error", err, "phone", session.Phone, "session_id", session.ID)
		return gatewayDownPrompt(cfg)
	}
	if result.SlotTaken {
		session.Collected.Time = ""
		session.advance(StepAwaitingTime, now)
		return slotTakenPrompt(result.Alternatives)
	}
	if !result.Success {
		m.logger.Warn("booking rejected by backend", "message", result.Message, "session_id", session.ID)
		return gatewayDownPrompt(cfg)
	}

	confirmation := committedPrompt(cfg, session.Collected, date, minutes)
	session.ConfirmationText = confirmation
	session.advance(StepCommitted, now)
	return confirmation
}

// classify runs the fallback classifier for a failed extraction. The bool
// result reports whether the turn was fully handled. Interruptions answer
// and re-invite without touching retry counts or collected fields.
func (m *Machine) classify(ctx context.Context, cfg *clinic.Config, session *BookingSession, text, expectedType string, now time.Time, repair func(string) (string, bool)) (string, bool) {
	if m.classifier == nil {
		return "", false
	}
	c, err := m.classifier.Classify(ctx, text, expectedType)
	if err != nil {
		return "", false
	}
	if c.IsCancellation {
		return m.cancel(cfg, session, now), true
	}
	if c.RepairedValue != "" {
		if reply, ok := repair(c.RepairedValue); ok {
			return reply, true
		}
	}
	if c.IsInterruption && c.Response != "" {
		return c.Response + " " + interruptionSuffix(), true
	}
	return "", false
}

// retryOrHandoff re-prompts, or offers the human escalation path after too
// many consecutive misses on the same field.
func (m *Machine) retryOrHandoff(cfg *clinic.Config, session *BookingSession, now time.Time, prompt string) string {
	session.RetryCount++
	session.UpdatedAt = now
	if session.RetryCount >= maxFieldRetries {
		session.RetryCount = 0
		return handoffPrompt(cfg)
	}
	return prompt
}

func minutesToClock(minutes int) string {
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("15:04")
}
