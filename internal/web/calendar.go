package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/scroll"
)

// headerHeight is the pixel height of the date header above each column.
const headerHeight = 40

//go:embed templates/calendar.html
var templateFS embed.FS

var calendarTmpl = template.Must(template.New("calendar.html").Funcs(template.FuncMap{
	"rowStyle":  rowStyle,
	"laneStyle": laneStyle,
	"clock":     func(t time.Time) string { return t.Format("15:04") },
	"day":       func(t time.Time) string { return t.Format("Mon 02 Jan") },
}).ParseFS(templateFS, "templates/calendar.html"))

// fr formats a fraction as a CSS grid track size.
func fr(v float64) string {
	if v < 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 6, 64) + "fr"
}

// rowStyle lays the day rows out as proportional grid rows.
func rowStyle(rows []layout.Row, height, offset float64) template.CSS {
	tracks := make([]string, 0, len(rows))
	for _, r := range rows {
		tracks = append(tracks, fr(r.Length))
	}
	return template.CSS(fmt.Sprintf("height:%.1fpx;transform:translateY(-%.1fpx);grid-template-rows:%s",
		height, offset, strings.Join(tracks, " ")))
}

// laneStyle lays one lane's cells out as proportional grid rows.
func laneStyle(cells []layout.Cell) template.CSS {
	tracks := make([]string, 0, len(cells))
	for _, c := range cells {
		tracks = append(tracks, fr(c.Length))
	}
	return template.CSS("grid-template-rows:" + strings.Join(tracks, " "))
}

type calendarPage struct {
	Title      string
	Generation uint64
	BuiltAt    time.Time
	Days       []layout.Day
	// Viewport is the visible column height; Content is the full 24h height
	// and Offset the hidden part above the working hours.
	Viewport float64
	Content  float64
	Offset   float64
}

// handleCalendar renders the snapshot as CSS grids for the browser and the
// headless capture. The root carries data-ready once rendered.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshotFor(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	vp := scroll.Viewport{
		Width:         float64(s.cfg.Capture.Width),
		Height:        float64(s.cfg.Capture.Height - headerHeight),
		ContentWidth:  float64(s.cfg.Capture.Width),
		ContentHeight: float64(s.cfg.Capture.Height - headerHeight),
	}
	page := calendarPage{
		Title:      "weekcal",
		Generation: snap.Generation,
		BuiltAt:    snap.BuiltAt.In(s.loc),
		Days:       snap.Days,
		Viewport:   vp.Height,
		Content:    vp.Height,
	}
	if begin, end, err := s.cfg.DayBounds(); err == nil {
		zoom := scroll.FitDay(begin, end, vp, true)
		page.Content = zoom.ContentHeight
		page.Offset = zoom.Instruction.To.Y
	}

	var buf bytes.Buffer
	if err := calendarTmpl.Execute(&buf, page); err != nil {
		appLog.Error("calendar template failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
