// Package window decides which calendar dates a view shows.
package window

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"weekcal/internal/model"
)

// MaxDays is the largest day count accepted in Day mode.
const MaxDays = 10

var (
	ErrDaysOutOfRange  = errors.New("days out of range")
	ErrInvalidMode     = errors.New("invalid display mode")
	ErrInvalidPosition = errors.New("invalid display position")
	ErrInvalidWeekday  = errors.New("invalid weekday")
	ErrNoAnchor        = errors.New("anchor date is not set")
)

// ConfigError reports a window setting the caller got wrong. It wraps one of
// the sentinel errors above so callers can use errors.Is.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("window: %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Mode is how many days the view spans and how the first one is chosen.
type Mode int

const (
	Day Mode = iota
	Week
	WorkWeek
)

func (m Mode) String() string {
	switch m {
	case Day:
		return "day"
	case Week:
		return "week"
	case WorkWeek:
		return "workweek"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "day", "week" and "workweek" (also "work_week").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day":
		return Day, nil
	case "week":
		return Week, nil
	case "workweek", "work_week", "work-week":
		return WorkWeek, nil
	}
	return 0, &ConfigError{Field: "mode", Value: s, Err: ErrInvalidMode}
}

// Position places the anchor date inside a multi-day Day view.
type Position int

const (
	Left Position = iota
	Center
	Right
)

func (p Position) String() string {
	switch p {
	case Left:
		return "left"
	case Center:
		return "center"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("position(%d)", int(p))
	}
}

func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return Left, nil
	case "center", "centre":
		return Center, nil
	case "right":
		return Right, nil
	}
	return 0, &ConfigError{Field: "position", Value: s, Err: ErrInvalidPosition}
}

// ParseWeekday accepts English weekday names ("monday", "Sun", ...).
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || (len(v) >= 3 && strings.HasPrefix(name, v)) {
			return d, nil
		}
	}
	return 0, &ConfigError{Field: "week_start", Value: s, Err: ErrInvalidWeekday}
}

// Window is the state the visible date range is derived from. It is a value:
// navigation returns a new Window.
type Window struct {
	Mode Mode
	// Days is only used in Day mode.
	Days           int
	Anchor         time.Time
	Position       Position
	FirstDayOfWeek time.Weekday
}

// Validate fails fast on settings that can never produce a window.
// Days < 1 is left to the caller, matching FirstVisibleDate.
func (w Window) Validate() error {
	switch w.Mode {
	case Day:
		if w.Days > MaxDays {
			return &ConfigError{Field: "days", Value: w.Days, Err: ErrDaysOutOfRange}
		}
	case Week, WorkWeek:
	default:
		return &ConfigError{Field: "mode", Value: int(w.Mode), Err: ErrInvalidMode}
	}
	if w.Position < Left || w.Position > Right {
		return &ConfigError{Field: "position", Value: int(w.Position), Err: ErrInvalidPosition}
	}
	if w.FirstDayOfWeek < time.Sunday || w.FirstDayOfWeek > time.Saturday {
		return &ConfigError{Field: "week_start", Value: int(w.FirstDayOfWeek), Err: ErrInvalidWeekday}
	}
	return nil
}

// FirstVisibleDate returns the first date of the view.
//
//   - Week: the first day of the anchor's week, shifting by
//     FirstDayOfWeek - anchorWeekday days.
//   - WorkWeek: as Week, then one day later if that lands on a Sunday, so a
//     Sunday-first locale still starts its work week on Monday.
//   - Day: the anchor for one day; otherwise the anchor is placed left,
//     centered (left of center for even counts) or right.
func (w Window) FirstVisibleDate() (time.Time, error) {
	if w.Anchor.IsZero() {
		return time.Time{}, ErrNoAnchor
	}
	anchor := model.DateOf(w.Anchor)

	switch w.Mode {
	case Week:
		if anchor.Weekday() == w.FirstDayOfWeek {
			return anchor, nil
		}
		return anchor.AddDate(0, 0, int(w.FirstDayOfWeek)-int(anchor.Weekday())), nil

	case WorkWeek:
		if anchor.Weekday() == w.FirstDayOfWeek {
			return anchor, nil
		}
		start := anchor.AddDate(0, 0, int(w.FirstDayOfWeek)-int(anchor.Weekday()))
		if start.Weekday() == time.Sunday {
			return start.AddDate(0, 0, 1), nil
		}
		return start, nil

	case Day:
		if w.Days == 1 {
			return anchor, nil
		}
		if w.Days > MaxDays {
			return time.Time{}, &ConfigError{Field: "days", Value: w.Days, Err: ErrDaysOutOfRange}
		}
		switch w.Position {
		case Center:
			return anchor.AddDate(0, 0, -w.Days/2+1), nil
		case Right:
			return anchor.AddDate(0, 0, -w.Days+1), nil
		default:
			return anchor, nil
		}
	}
	return time.Time{}, &ConfigError{Field: "mode", Value: int(w.Mode), Err: ErrInvalidMode}
}

// DaysToShow is the number of visible columns.
func (w Window) DaysToShow() int {
	switch w.Mode {
	case Day:
		return w.Days
	case WorkWeek:
		return 5
	default:
		return 7
	}
}

// DaysToMove is how far Next and Previous shift the anchor.
func (w Window) DaysToMove() int {
	if w.Mode == Day {
		return w.Days
	}
	return 7
}

// VisibleDates lists the visible dates in order.
func (w Window) VisibleDates() ([]time.Time, error) {
	first, err := w.FirstVisibleDate()
	if err != nil {
		return nil, err
	}
	n := w.DaysToShow()
	if n < 0 {
		n = 0
	}
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = first.AddDate(0, 0, i)
	}
	return dates, nil
}

// IsDateVisible reports whether date falls in [first, first+DaysToShow).
func (w Window) IsDateVisible(date time.Time) (bool, error) {
	first, err := w.FirstVisibleDate()
	if err != nil {
		return false, err
	}
	offset := model.DaysBetween(first, date)
	return offset >= 0 && offset < w.DaysToShow(), nil
}

// WithAnchor returns a copy of w anchored at date.
func (w Window) WithAnchor(date time.Time) Window {
	w.Anchor = model.DateOf(date)
	return w
}

// Next moves the anchor forward by DaysToMove.
func (w Window) Next() Window {
	return w.WithAnchor(model.DateOf(w.Anchor).AddDate(0, 0, w.DaysToMove()))
}

// Previous moves the anchor back by DaysToMove.
func (w Window) Previous() Window {
	return w.WithAnchor(model.DateOf(w.Anchor).AddDate(0, 0, -w.DaysToMove()))
}

// Range returns the half-open instant range [first 00:00, last+1 00:00) in
// the anchor's location.
func (w Window) Range() (time.Time, time.Time, error) {
	first, err := w.FirstVisibleDate()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return first, first.AddDate(0, 0, w.DaysToShow()), nil
}
