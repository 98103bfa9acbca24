// Package layout turns a day's appointments into proportional rows and lanes.
//
// All positions are fractions of a 24-hour day (or of a group, once rescaled),
// so the result carries no pixel sizes. A renderer feeds the Cell lengths into
// any grid that supports proportional ("star"/"fr") tracks.
package layout

import (
	"time"

	"weekcal/internal/model"
)

const secondsPerDay = float64(24 * 60 * 60)

// FractionOfDay returns where a begins within its day and how long it lasts,
// both as fractions of 24 hours. The begin offset is taken from the wall clock
// so DST transition days still map 09:00 to 0.375.
//
// An appointment with End <= Begin gets a length of 0 rather than an error: a
// single malformed item from an external feed must not break a day's layout.
func FractionOfDay(a model.Appointment) (begin, length float64) {
	h, m, s := a.Begin.Clock()
	secs := float64(h*3600+m*60+s) + float64(a.Begin.Nanosecond())/float64(time.Second)
	begin = secs / secondsPerDay

	d := a.End.Sub(a.Begin)
	if d <= 0 {
		return begin, 0
	}
	return begin, d.Seconds() / secondsPerDay
}

// FractionEnd is the fraction-of-day end of a (begin + length).
func FractionEnd(a model.Appointment) float64 {
	b, l := FractionOfDay(a)
	return b + l
}

// SameDay reports whether a starts and ends on the same calendar date, which
// is required for it to take part in a day layout.
func SameDay(a model.Appointment) bool {
	by, bm, bd := a.Begin.Date()
	ey, em, ed := a.End.In(a.Begin.Location()).Date()
	return by == ey && bm == em && bd == ed
}

func laneOf(a model.Appointment) int {
	if a.Lane < 0 {
		return 0
	}
	return a.Lane
}
