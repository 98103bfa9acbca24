package model

import "time"

// Appointment is a single timed calendar item as seen by the layout engine.
// Begin and End are expected to already be in the display timezone.
type Appointment struct {
	// ID uniquely identifies the appointment across sources. For ICS
	// occurrences it is derived from the source, UID and instance start.
	ID       string `json:"id"`
	SourceID string `json:"source_id,omitempty"`

	Summary  string `json:"summary"`
	Location string `json:"location,omitempty"`

	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`

	// Lane is the pre-assigned overlap column (0 = base lane). The layout
	// engine reads it; it never computes it.
	Lane int `json:"lane"`
}

// Date returns the calendar date of Begin at midnight in Begin's location.
func (a Appointment) Date() time.Time {
	return DateOf(a.Begin)
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b. Both dates are
// compared by their year/month/day so DST transitions do not skew the count.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
