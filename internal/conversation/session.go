package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Step is the state of a booking conversation. Transitions only move forward
// through the collect states; the only way back to an earlier collect state
// is an explicit user-initiated change during confirmation.
type Step string

const (
	StepIdle                 Step = "idle"
	StepAwaitingTreatment    Step = "awaiting_treatment"
	StepAwaitingDate         Step = "awaiting_date"
	StepAwaitingTime         Step = "awaiting_time"
	StepAwaitingName         Step = "awaiting_name"
	StepAwaitingConfirmation Step = "awaiting_confirmation"
	StepCommitted            Step = "committed"
	StepCancelled            Step = "cancelled"
)

// Terminal reports whether the step absorbs the session. Any further message
// for the phone starts a brand-new session.
func (s Step) Terminal() bool {
	return s == StepCommitted || s == StepCancelled
}

// Collected holds the booking fields gathered so far. Once a field is set it
// is never cleared except by an explicit change request during confirmation.
type Collected struct {
	TreatmentName string `json:"treatment_name,omitempty"`
	Date          string `json:"date,omitempty"` // "2006-01-02", clinic-local
	Time          string `json:"time,omitempty"` // "15:04", clinic-local
	Name          string `json:"name,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// BookingSession is the per-phone scheduling conversation state.
type BookingSession struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Step      Step      `json:"step"`
	Collected Collected `json:"collected"`

	// RetryCount tracks consecutive invalid answers for the field currently
	// being collected; after maxFieldRetries the bot offers a human handoff.
	RetryCount int `json:"retry_count"`

	// ConfirmationText is the final message sent when the booking committed,
	// replayed verbatim on duplicate confirmations.
	ConfirmationText string `json:"confirmation_text,omitempty"`

	// Version guards the read-modify-write cycle: Save succeeds only when
	// the stored version still matches the one loaded.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBookingSession creates a fresh session in the idle step.
func NewBookingSession(phone string, now time.Time) *BookingSession {
	return &BookingSession{
		ID:        uuid.NewString(),
		Phone:     phone,
		Step:      StepIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DateValue parses the collected date in the given location.
func (s *BookingSession) DateValue(loc *time.Location) (time.Time, bool) {
	if s.Collected.Date == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", s.Collected.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TimeMinutes returns the collected start time as minutes since midnight.
func (s *BookingSession) TimeMinutes() (int, bool) {
	if s.Collected.Time == "" {
		return 0, false
	}
	t, err := time.Parse("15:04", s.Collected.Time)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// advance moves the session to the next step and resets the retry counter.
func (s *BookingSession) advance(step Step, now time.Time) {
	s.Step = step
	s.RetryCount = 0
	s.UpdatedAt = now
}
