package appointments

import "time"

// BookingRequest carries everything needed to write one appointment.
type BookingRequest struct {
	SessionID    string
	Name         string
	Email        string
	Phone        string
	Treatment    string
	Date         time.Time // clinic-local midnight of the appointment day
	StartMinutes int       // minutes since midnight, clinic-local
}

// BookingResult is the outcome of a commit attempt.
type BookingResult struct {
	Success bool
	// SlotTaken is set when the pre-write availability re-check found the
	// slot occupied; the caller should offer the listed alternatives.
	SlotTaken    bool
	Alternatives []string
	Message      string
	ScheduledFor time.Time
}

// Booking is a committed appointment row.
type Booking struct {
	ID           string
	SessionID    string
	Phone        string
	Name         string
	Treatment    string
	ScheduledFor time.Time
	ConfirmedAt  time.Time
}

type createRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Message string `json:"message"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type createResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
