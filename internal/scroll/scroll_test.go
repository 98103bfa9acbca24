package scroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"weekcal/internal/model"
	"weekcal/internal/window"
)

func date(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func item(d, h int) model.Appointment {
	begin := date(d).Add(time.Duration(h) * time.Hour)
	return model.Appointment{ID: "x", Begin: begin, End: begin.Add(time.Hour)}
}

// Monday 2025-01-06 .. Sunday 2025-01-12.
var week = window.Window{Mode: window.Week, Anchor: date(8), FirstDayOfWeek: time.Monday}

var vp = Viewport{Width: 700, Height: 400, ContentWidth: 700, ContentHeight: 2400}

func TestTarget(t *testing.T) {
	p, err := Target(week, item(8, 12), vp)
	require.NoError(t, err)
	require.InDelta(t, 200, p.X, 1e-9)
	require.InDelta(t, 1200, p.Y, 1e-9)
}

func TestIntoViewVisibleIsNoop(t *testing.T) {
	v := vp
	v.Offset = Point{Y: 1000}
	ins, w, err := IntoView(week, item(8, 12), v)
	require.NoError(t, err)
	require.False(t, ins.Scroll)
	require.Equal(t, week, w)

	// idempotent
	ins2, _, err := IntoView(week, item(8, 12), v)
	require.NoError(t, err)
	require.Equal(t, ins, ins2)
}

func TestIntoViewScrollsWithinWindow(t *testing.T) {
	ins, w, err := IntoView(week, item(10, 18), vp)
	require.NoError(t, err)
	require.True(t, ins.Scroll)
	require.Equal(t, week, w)
	require.InDelta(t, 400, ins.To.X, 1e-9)
	require.InDelta(t, 1800, ins.To.Y, 1e-9)
}

func TestIntoViewReanchorsOutsideWindow(t *testing.T) {
	ins, w, err := IntoView(week, item(22, 6), vp)
	require.NoError(t, err)
	require.True(t, ins.Scroll)
	require.Equal(t, date(22), w.Anchor)

	first, err := w.FirstVisibleDate()
	require.NoError(t, err)
	require.Equal(t, date(20), first)
	require.InDelta(t, 200, ins.To.X, 1e-9)
	require.InDelta(t, 600, ins.To.Y, 1e-9)
}

func TestTargetRejectsEmptyWindow(t *testing.T) {
	w := window.Window{Mode: window.Day, Days: 0, Anchor: date(8)}
	_, err := Target(w, item(8, 1), vp)
	require.ErrorIs(t, err, window.ErrDaysOutOfRange)

	w.Days = 12
	_, _, err = IntoView(w, item(8, 1), vp)
	require.ErrorIs(t, err, window.ErrDaysOutOfRange)
}

func TestFitDay(t *testing.T) {
	z := FitDay(8*time.Hour, 20*time.Hour, vp, false)
	require.InDelta(t, 800, z.ContentHeight, 1e-9)
	require.True(t, z.Instruction.Scroll)
	require.InDelta(t, 8*400.0/12, z.Instruction.To.Y, 1e-9)

	scrolled := vp
	scrolled.Offset.Y = 55
	z = FitDay(8*time.Hour, 20*time.Hour, scrolled, false)
	require.InDelta(t, 55, z.Instruction.To.Y, 1e-9)
	z = FitDay(8*time.Hour, 20*time.Hour, scrolled, true)
	require.InDelta(t, 8*400.0/12, z.Instruction.To.Y, 1e-9)

	z = FitDay(20*time.Hour, 8*time.Hour, vp, true)
	require.False(t, z.Instruction.Scroll)
	require.InDelta(t, 400, z.ContentHeight, 1e-9)
}

func TestSmooth(t *testing.T) {
	var st SmoothState
	p, st := Smooth(st, Point{X: 100, Y: 5}, 10)
	require.Equal(t, Point{X: 100, Y: 5}, p)

	p, st = Smooth(st, Point{X: 108, Y: 50}, 10)
	require.Equal(t, Point{X: 100, Y: 50}, p)

	p, _ = Smooth(st, Point{X: 150, Y: 50}, 10)
	require.Equal(t, Point{X: 150, Y: 50}, p)
}
