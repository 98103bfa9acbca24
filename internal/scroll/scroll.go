// Package scroll computes where a calendar viewport has to move to show an
// appointment. Viewport state is passed in and returned; nothing is cached.
package scroll

import (
	"math"
	"time"

	"weekcal/internal/layout"
	"weekcal/internal/model"
	"weekcal/internal/window"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the scrollable area: the visible rectangle (Offset, Width,
// Height) over content of ContentWidth x ContentHeight.
type Viewport struct {
	Offset        Point   `json:"offset"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	ContentWidth  float64 `json:"content_width"`
	ContentHeight float64 `json:"content_height"`
}

// Contains reports whether p lies in [off, off+size) on both axes.
func (v Viewport) Contains(p Point) bool {
	return p.X >= v.Offset.X && p.X < v.Offset.X+v.Width &&
		p.Y >= v.Offset.Y && p.Y < v.Offset.Y+v.Height
}

// Instruction tells the renderer whether and where to scroll.
type Instruction struct {
	Scroll bool  `json:"scroll"`
	To     Point `json:"to"`
}

// Target is the content position of item's top-left corner in the view.
func Target(w window.Window, item model.Appointment, vp Viewport) (Point, error) {
	first, err := w.FirstVisibleDate()
	if err != nil {
		return Point{}, err
	}
	if w.DaysToShow() < 1 {
		return Point{}, &window.ConfigError{Field: "days", Value: w.Days, Err: window.ErrDaysOutOfRange}
	}
	begin, _ := layout.FractionOfDay(item)
	offset := model.DaysBetween(first, item.Begin)
	return Point{
		X: float64(offset) / float64(w.DaysToShow()) * vp.ContentWidth,
		Y: begin * vp.ContentHeight,
	}, nil
}

// IntoView decides how to bring item into view. When the target point is
// already inside the viewport nothing happens. Otherwise, if the item's date
// is outside the window, the window is re-anchored on that date first and the
// target recomputed. The possibly re-anchored window is returned.
func IntoView(w window.Window, item model.Appointment, vp Viewport) (Instruction, window.Window, error) {
	p, err := Target(w, item, vp)
	if err != nil {
		return Instruction{}, w, err
	}
	if vp.Contains(p) {
		return Instruction{}, w, nil
	}

	visible, err := w.IsDateVisible(item.Begin)
	if err != nil {
		return Instruction{}, w, err
	}
	if !visible {
		w = w.WithAnchor(item.Begin)
		if p, err = Target(w, item, vp); err != nil {
			return Instruction{}, w, err
		}
	}
	return Instruction{Scroll: true, To: p}, w, nil
}

// Zoom is the result of fitting a begin..end slice of the day into the
// viewport height.
type Zoom struct {
	ContentHeight float64     `json:"content_height"`
	Instruction   Instruction `json:"instruction"`
}

// FitDay stretches the content so that [beginOfDay, endOfDay) fills the
// viewport. The view scrolls to beginOfDay when force is set or when it is
// still at the top; otherwise the current vertical offset is kept. A range
// that is empty or not inside [0h, 24h) leaves the content at viewport height
// without scrolling.
func FitDay(beginOfDay, endOfDay time.Duration, vp Viewport, force bool) Zoom {
	if vp.Width < 0 || vp.Height < 0 {
		return Zoom{ContentHeight: vp.ContentHeight}
	}
	if beginOfDay < 0 || endOfDay >= 24*time.Hour || endOfDay <= beginOfDay {
		return Zoom{ContentHeight: vp.Height}
	}

	perHour := vp.Height / (endOfDay - beginOfDay).Hours()
	y := vp.Offset.Y
	if force || layout.IsZero(y) {
		y = beginOfDay.Hours() * perHour
	}
	return Zoom{
		ContentHeight: 24 * perHour,
		Instruction:   Instruction{Scroll: true, To: Point{X: 0, Y: y}},
	}
}

// SmoothState is the last offset emitted by Smooth.
type SmoothState struct {
	Last Point `json:"last"`
	Set  bool  `json:"set"`
}

// Smooth suppresses horizontal jitter: if v moved by no more than threshold on
// the X axis since the last emitted offset, the previous X is kept. The first
// call passes v through.
func Smooth(state SmoothState, v Point, threshold float64) (Point, SmoothState) {
	if !state.Set {
		return v, SmoothState{Last: v, Set: true}
	}
	if math.Abs(v.X-state.Last.X) <= threshold {
		v.X = state.Last.X
	}
	return v, SmoothState{Last: v, Set: true}
}
