package calendar

import "time"

// BusyInterval is an occupied block on the clinic calendar. Produced
// transiently by a day query, never persisted locally.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// Overlaps applies the half-open interval test: two intervals conflict iff
// start_a < end_b AND end_a > start_b. Touching boundaries do not conflict,
// so a booking ending at 12:00 never blocks one starting at 12:00.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Availability is the outcome of an availability check for one candidate slot.
type Availability struct {
	Available    bool
	Reason       string   // set when unavailable, e.g. "occupied"
	Alternatives []string // up to 3 free "HH:MM" starts on the same date
}

type getEventsRequest struct {
	Action string `json:"action"`
	Date   string `json:"date"`
}

type getEventsResponse struct {
	OccupiedTimes []occupiedTime `json:"occupiedTimes"`
}

type occupiedTime struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
