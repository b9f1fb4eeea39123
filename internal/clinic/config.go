// Package clinic provides clinic-specific configuration and business rules.
package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DayHours represents the opening hours for a single day.
// Nil means the clinic is closed that day.
type DayHours struct {
	Open  string `json:"open"`  // "09:00" in 24-hour format
	Close string `json:"close"` // "19:00" in 24-hour format
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// Config holds the clinic business rules interpolated into reply templates.
// Prompt text never hard-codes these values; it reads them from here.
type Config struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"` // e.g. "America/Bogota"

	BusinessHours BusinessHours `json:"business_hours"`

	// LunchStart/LunchEnd exclude a midday block from bookable hours.
	// Empty strings disable the exclusion.
	LunchStart string `json:"lunch_start,omitempty"` // "13:00"
	LunchEnd   string `json:"lunch_end,omitempty"`   // "14:00"

	// SlotDurationMinutes is the fixed appointment length used for the
	// busy-window overlap check.
	SlotDurationMinutes int `json:"slot_duration_minutes"`

	// BookingLink is the self-service booking page offered alongside the
	// guided flow.
	BookingLink string `json:"booking_link,omitempty"`

	// EscalationContact is offered after repeated invalid answers.
	EscalationContact string `json:"escalation_contact,omitempty"`

	Treatments []Treatment `json:"treatments,omitempty"`
}

// DefaultBookingLink is the fallback self-service booking page.
const DefaultBookingLink = "https://lumina-estetica.com/agendar"

// DefaultConfig returns the clinic rules used until an operator overrides them.
func DefaultConfig() *Config {
	return &Config{
		Name:     "Lumina Estética",
		Timezone: "America/Bogota",
		BusinessHours: BusinessHours{
			Monday:    &DayHours{Open: "09:00", Close: "19:00"},
			Tuesday:   &DayHours{Open: "09:00", Close: "19:00"},
			Wednesday: &DayHours{Open: "09:00", Close: "19:00"},
			Thursday:  &DayHours{Open: "09:00", Close: "19:00"},
			Friday:    &DayHours{Open: "09:00", Close: "19:00"},
			Saturday:  &DayHours{Open: "09:00", Close: "14:00"},
			Sunday:    nil, // Closed
		},
		LunchStart:          "13:00",
		LunchEnd:            "14:00",
		SlotDurationMinutes: 120,
		BookingLink:         DefaultBookingLink,
		EscalationContact:   "+57 300 555 0101",
		Treatments:          DefaultTreatments(),
	}
}

// Location returns the clinic's *time.Location, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlotDuration returns the fixed appointment length.
func (c *Config) SlotDuration() time.Duration {
	if c == nil || c.SlotDurationMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(c.SlotDurationMinutes) * time.Minute
}

// HoursForDay returns the hours for a given weekday, nil when closed.
func (b *BusinessHours) HoursForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// IsClosedDay reports whether the clinic is closed all day on the given date.
func (c *Config) IsClosedDay(date time.Time) bool {
	return c.BusinessHours.HoursForDay(date.Weekday()) == nil
}

// Reasons a requested slot fails business-hours validation.
const (
	ReasonClosedDay  = "closed_day"
	ReasonBeforeOpen = "before_open"
	ReasonAfterClose = "after_close"
	ReasonLunch      = "lunch"
)

// SlotValidation is the outcome of validating a requested start time against
// business hours. Reason distinguishes the constraint violated so the reply
// can name it.
type SlotValidation struct {
	OK     bool
	Reason string
}

// ValidateSlot checks a requested start clock time (minutes since midnight)
// against the hours for the given date. The appointment must start at or
// after opening and end by closing, and must not overlap the lunch block.
func (c *Config) ValidateSlot(date time.Time, startMinutes int) SlotValidation {
	hours := c.BusinessHours.HoursForDay(date.Weekday())
	if hours == nil {
		return SlotValidation{Reason: ReasonClosedDay}
	}

	openMin, err := parseClockMinutes(hours.Open)
	if err != nil {
		return SlotValidation{Reason: ReasonClosedDay}
	}
	closeMin, err := parseClockMinutes(hours.Close)
	if err != nil {
		return SlotValidation{Reason: ReasonClosedDay}
	}

	endMinutes := startMinutes + int(c.SlotDuration().Minutes())
	if startMinutes < openMin {
		return SlotValidation{Reason: ReasonBeforeOpen}
	}
	if endMinutes > closeMin {
		return SlotValidation{Reason: ReasonAfterClose}
	}

	if c.LunchStart != "" && c.LunchEnd != "" {
		lunchStart, err1 := parseClockMinutes(c.LunchStart)
		lunchEnd, err2 := parseClockMinutes(c.LunchEnd)
		if err1 == nil && err2 == nil {
			// Half-open overlap test against the lunch block.
			if startMinutes < lunchEnd && endMinutes > lunchStart {
				return SlotValidation{Reason: ReasonLunch}
			}
		}
	}

	return SlotValidation{OK: true}
}

// OpenRange returns open/close minutes since midnight for a date, and whether
// the clinic is open that day at all.
func (c *Config) OpenRange(date time.Time) (openMin, closeMin int, open bool) {
	hours := c.BusinessHours.HoursForDay(date.Weekday())
	if hours == nil {
		return 0, 0, false
	}
	o, err := parseClockMinutes(hours.Open)
	if err != nil {
		return 0, 0, false
	}
	cl, err := parseClockMinutes(hours.Close)
	if err != nil {
		return 0, 0, false
	}
	return o, cl, true
}

func parseClockMinutes(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("clinic: invalid clock %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MustClockMinutes parses a "15:04" clock for display code; invalid input
// yields 0 rather than an error.
func MustClockMinutes(clock string) int {
	m, err := parseClockMinutes(clock)
	if err != nil {
		return 0
	}
	return m
}

// Store provides persistence for the clinic configuration.
type Store struct {
	redis *redis.Client
}

// NewStore creates a clinic config store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

const configKey = "clinic:config"

// Get retrieves the clinic config, returning the default if not found.
func (s *Store) Get(ctx context.Context) (*Config, error) {
	if s == nil || s.redis == nil {
		return DefaultConfig(), nil
	}
	data, err := s.redis.Get(ctx, configKey).Bytes()
	if err == redis.Nil {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinic: get config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("clinic: unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Set saves the clinic config.
func (s *Store) Set(ctx context.Context, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("clinic: marshal config: %w", err)
	}
	if err := s.redis.Set(ctx, configKey, data, 0).Err(); err != nil {
		return fmt.Errorf("clinic: set config: %w", err)
	}
	return nil
}
