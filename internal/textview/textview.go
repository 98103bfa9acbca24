// Package textview draws a calendar snapshot as terminal columns, one per
// visible date, with overlapping appointments side by side.
package textview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"weekcal/internal/engine"
	"weekcal/internal/layout"
)

// Options controls the drawing area.
type Options struct {
	// Width is the total width in cells including the hour gutter.
	Width int
	// Lines is the number of text lines for the Begin..End range.
	Lines int
	// Begin and End are the hours shown, as offsets from midnight.
	Begin time.Duration
	End   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 120
	}
	if o.Lines <= 0 {
		o.Lines = 24
	}
	if o.End <= o.Begin || o.End > 24*time.Hour || o.Begin < 0 {
		o.Begin, o.End = 0, 24*time.Hour
	}
	return o
}

const gutterWidth = 6

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	gutterStyle = lipgloss.NewStyle().Faint(true).Width(gutterWidth)
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("8"))
	itemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

// Render draws snap. Each line covers (End-Begin)/Lines of the day and shows
// whatever sits at the middle of that slice.
func Render(snap engine.Snapshot, opts Options) string {
	opts = opts.withDefaults()
	if len(snap.Days) == 0 {
		return "no visible days\n"
	}

	from := opts.Begin.Hours() / 24
	to := opts.End.Hours() / 24

	colWidth := (opts.Width - gutterWidth) / len(snap.Days)
	if colWidth < 4 {
		colWidth = 4
	}
	// one cell for the left border
	inner := colWidth - 1

	cols := []string{renderGutter(opts)}
	for _, d := range snap.Days {
		lines := append([]string{headerStyle.Render(fit(d.Date.Format("Mon 02 Jan"), inner))},
			renderDay(d, inner, opts.Lines, from, to)...)
		cols = append(cols, columnStyle.Width(inner).Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...) + "\n"
}

func renderGutter(opts Options) string {
	lines := make([]string, 0, opts.Lines+1)
	lines = append(lines, "")
	last := -1
	span := opts.End - opts.Begin
	for i := 0; i < opts.Lines; i++ {
		h := int((opts.Begin + span*time.Duration(i)/time.Duration(opts.Lines)).Hours())
		if h != last {
			lines = append(lines, fmt.Sprintf("%02d:00", h))
			last = h
			continue
		}
		lines = append(lines, "")
	}
	return gutterStyle.Render(strings.Join(lines, "\n"))
}

func renderDay(d layout.Day, width, n int, from, to float64) []string {
	out := make([]string, 0, n)
	// last appointment ID drawn per lane, so a label is printed once
	var lastIDs []string
	var lastGroup *layout.GroupLayout

	for i := 0; i < n; i++ {
		f := from + (to-from)*(float64(i)+0.5)/float64(n)
		row, ok := rowAt(d.Rows, f)
		if !ok || row.Group == nil || layout.IsZero(row.Length) {
			out = append(out, strings.Repeat(" ", width))
			lastGroup = nil
			continue
		}
		g := row.Group
		if g != lastGroup {
			lastIDs = make([]string, len(g.Cells))
			lastGroup = g
		}

		local := (f - row.Begin) / row.Length
		laneWidth := width / max(len(g.Cells), 1)
		var b strings.Builder
		for lane, cells := range g.Cells {
			w := laneWidth
			if lane == len(g.Cells)-1 {
				w = width - laneWidth*(len(g.Cells)-1)
			}
			c, ok := cellAt(cells, local)
			switch {
			case !ok || c.Item == nil:
				b.WriteString(strings.Repeat(" ", w))
				lastIDs[lane] = ""
			case lastIDs[lane] != c.Item.ID:
				b.WriteString(itemStyle.Render(fit(c.Item.Begin.Format("15:04")+" "+c.Item.Summary, w)))
				lastIDs[lane] = c.Item.ID
			default:
				b.WriteString(itemStyle.Render(fit("┃", w)))
			}
		}
		out = append(out, b.String())
	}
	return out
}

func rowAt(rows []layout.Row, f float64) (layout.Row, bool) {
	for _, r := range rows {
		if layout.IsGreaterOrEqual(f, r.Begin) && layout.IsLess(f, r.Begin+r.Length) {
			return r, true
		}
	}
	return layout.Row{}, false
}

func cellAt(cells []layout.Cell, f float64) (layout.Cell, bool) {
	for _, c := range cells {
		if layout.IsZero(c.Length) {
			continue
		}
		if layout.IsGreaterOrEqual(f, c.Begin) && layout.IsLess(f, c.Begin+c.Length) {
			return c, true
		}
	}
	return layout.Cell{}, false
}

// fit pads or truncates s to exactly w runes.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > w {
		if w == 1 {
			return string(r[:1])
		}
		return string(r[:w-1]) + "…"
	}
	return s + strings.Repeat(" ", w-len(r))
}
