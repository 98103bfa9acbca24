package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"weekcal/internal/engine"
	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
	"weekcal/internal/scroll"
	"weekcal/internal/window"
)

const dateLayout = "2006-01-02"

type windowResponse struct {
	Mode           string   `json:"mode"`
	Days           int      `json:"days"`
	Position       string   `json:"position"`
	FirstDayOfWeek string   `json:"first_day_of_week"`
	Anchor         string   `json:"anchor"`
	First          string   `json:"first"`
	Dates          []string `json:"dates"`
	DaysToMove     int      `json:"days_to_move"`
}

func newWindowResponse(w window.Window) (windowResponse, error) {
	dates, err := w.VisibleDates()
	if err != nil {
		return windowResponse{}, err
	}
	resp := windowResponse{
		Mode:           w.Mode.String(),
		Days:           w.DaysToShow(),
		Position:       w.Position.String(),
		FirstDayOfWeek: w.FirstDayOfWeek.String(),
		Anchor:         w.Anchor.Format(dateLayout),
		Dates:          make([]string, 0, len(dates)),
		DaysToMove:     w.DaysToMove(),
	}
	for _, d := range dates {
		resp.Dates = append(resp.Dates, d.Format(dateLayout))
	}
	if len(resp.Dates) > 0 {
		resp.First = resp.Dates[0]
	}
	return resp, nil
}

type layoutResponse struct {
	Generation uint64         `json:"generation"`
	BuiltAt    time.Time      `json:"built_at"`
	Published  bool           `json:"published"`
	Window     windowResponse `json:"window"`
	Days       []layout.Day   `json:"days"`
}

type scrollResponse struct {
	scroll.Instruction
	Reanchored bool               `json:"reanchored"`
	Window     windowResponse     `json:"window"`
	Smooth     scroll.SmoothState `json:"smooth"`
}

type statusResponse struct {
	Published   bool       `json:"published"`
	Generation  uint64     `json:"generation"`
	BuiltAt     *time.Time `json:"built_at,omitempty"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Covered     bool       `json:"covered"`
}

// baseInput is the published input, or an empty one with the configured
// window anchored today.
func (s *Server) baseInput() (engine.Input, bool, error) {
	if snap, ok := s.engine.Snapshot(); ok {
		return snap.Input, true, nil
	}
	w, err := s.cfg.Window(model.DateOf(s.now().In(s.loc)))
	return engine.Input{Window: w}, false, err
}

// windowFromQuery applies date, mode, days and position overrides to w.
func (s *Server) windowFromQuery(w window.Window, q url.Values) (window.Window, bool, error) {
	changed := false
	if v := q.Get("date"); v != "" {
		d, err := time.ParseInLocation(dateLayout, v, s.loc)
		if err != nil {
			return w, false, fmt.Errorf("date: %w", err)
		}
		w = w.WithAnchor(d)
		changed = true
	}
	if v := q.Get("mode"); v != "" {
		m, err := window.ParseMode(v)
		if err != nil {
			return w, false, err
		}
		w.Mode = m
		changed = true
	}
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return w, false, fmt.Errorf("days: %w", err)
		}
		w.Days = n
		changed = true
	}
	if v := q.Get("position"); v != "" {
		p, err := window.ParsePosition(v)
		if err != nil {
			return w, false, err
		}
		w.Position = p
		changed = true
	}
	if err := w.Validate(); err != nil {
		return w, false, err
	}
	if w.Mode == window.Day && w.Days < 1 {
		return w, false, &window.ConfigError{Field: "days", Value: w.Days, Err: window.ErrDaysOutOfRange}
	}
	return w, changed, nil
}

// GET /api/window?date=YYYY-MM-DD&mode=&days=&position=
func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	in, _, err := s.baseInput()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	win, _, err := s.windowFromQuery(in.Window, r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := newWindowResponse(win)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/layout returns the published snapshot. Window overrides in the
// query build a preview over the same appointments without publishing it.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshotFor(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	win, err := newWindowResponse(snap.Input.Window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, layoutResponse{
		Generation: snap.Generation,
		BuiltAt:    snap.BuiltAt,
		Published:  snap.Generation > 0,
		Window:     win,
		Days:       snap.Days,
	})
}

// snapshotFor returns the published snapshot unless q changes the window or
// nothing was published yet, in which case a preview is built.
func (s *Server) snapshotFor(q url.Values) (engine.Snapshot, error) {
	in, published, err := s.baseInput()
	if err != nil {
		return engine.Snapshot{}, err
	}
	win, changed, err := s.windowFromQuery(in.Window, q)
	if err != nil {
		return engine.Snapshot{}, err
	}
	if published && !changed {
		snap, _ := s.engine.Snapshot()
		return snap, nil
	}
	in.Window = win
	return s.engine.Preview(in)
}

// /api/scroll?id=&x=&y=&w=&h=&cw=&ch= answers where to scroll to show an
// appointment. POST also publishes a re-anchored window. With lx (the last x
// the client scrolled to) and threshold, horizontal moves within threshold
// keep lx; the response echoes the state to send back next time.
func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	vp, err := viewportFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, threshold, err := smoothFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, ok := s.engine.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no calendar data yet")
		return
	}
	item, ok := snap.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown appointment")
		return
	}

	ins, win, err := scroll.IntoView(snap.Input.Window, item, vp)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reanchored := !win.Anchor.Equal(snap.Input.Window.Anchor)
	if ins.Scroll {
		if reanchored {
			// x offsets of another window are not comparable
			state = scroll.SmoothState{}
		}
		ins.To, state = scroll.Smooth(state, ins.To, threshold)
	}

	if reanchored && r.Method == http.MethodPost {
		if _, err := s.engine.Update(r.Context(), func(in engine.Input) engine.Input {
			in.Window = win
			return in
		}); err != nil {
			appLog.Error("scroll: publish failed", err, "id", id)
			writeError(w, http.StatusInternalServerError, "failed to update window")
			return
		}
	}

	resp, err := newWindowResponse(win)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scrollResponse{Instruction: ins, Reanchored: reanchored, Window: resp, Smooth: state})
}

// GET /api/fit?y=&w=&h=&cw=&ch=&force= stretches the configured working
// hours over the viewport height.
func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vp, err := viewportFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	begin, end, err := s.cfg.DayBounds()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	force, _ := strconv.ParseBool(q.Get("force"))
	writeJSON(w, http.StatusOK, scroll.FitDay(begin, end, vp, force))
}

// GET /api/select?current=<id>&step=1
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	step := 1
	if v := q.Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "step: "+err.Error())
			return
		}
		step = n
	}
	snap, ok := s.engine.Snapshot()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no calendar data yet")
		return
	}
	a, ok := snap.SelectNext(q.Get("current"), step)
	if !ok {
		writeError(w, http.StatusNotFound, "nothing visible")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// POST /api/navigate?to=next|previous|today or ?date=YYYY-MM-DD, optionally
// with mode, days and position. The new window is published, and feeds are
// refreshed when it reaches past the appointments expanded so far.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	in, _, err := s.baseInput()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	q := r.URL.Query()
	win := in.Window
	switch q.Get("to") {
	case "":
	case "next":
		win = win.Next()
	case "previous", "prev":
		win = win.Previous()
	case "today":
		win = win.WithAnchor(s.now().In(s.loc))
	default:
		writeError(w, http.StatusBadRequest, "to must be next, previous or today")
		return
	}
	win, _, err = s.windowFromQuery(win, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.engine.Update(r.Context(), func(cur engine.Input) engine.Input {
		cur.Window = win
		return cur
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.refresher != nil && !s.refresher.Covers(snap.Input.Window) {
		refreshed, err := s.refresher.Refresh(r.Context())
		if err != nil {
			appLog.Warn("navigate: refresh failed", "err", err.Error(), "anchor", win.Anchor.Format(dateLayout))
		} else {
			snap = refreshed
		}
	}
	resp, err := newWindowResponse(snap.Input.Window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/refresh runs a feed refresh now.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh is not configured")
		return
	}
	snap, err := s.refresher.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generation":   snap.Generation,
		"appointments": len(snap.Input.Items),
	})
}

// GET /api/status reports the published snapshot and the last refresh.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var resp statusResponse
	snap, ok := s.engine.Snapshot()
	if ok {
		resp.Published = true
		resp.Generation = snap.Generation
		resp.BuiltAt = &snap.BuiltAt
	}
	if s.refresher != nil {
		last, err := s.refresher.Status()
		if !last.IsZero() {
			resp.LastRefresh = &last
		}
		if err != nil {
			resp.LastError = err.Error()
		}
		resp.Covered = ok && s.refresher.Covers(snap.Input.Window)
	}
	writeJSON(w, http.StatusOK, resp)
}

func smoothFromQuery(q url.Values) (scroll.SmoothState, float64, error) {
	var state scroll.SmoothState
	if v := q.Get("lx"); v != "" {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return state, 0, fmt.Errorf("lx: %w", err)
		}
		state = scroll.SmoothState{Last: scroll.Point{X: x}, Set: true}
	}
	var threshold float64
	if v := q.Get("threshold"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			return state, 0, fmt.Errorf("threshold: must be a non-negative number")
		}
		threshold = n
	}
	return state, threshold, nil
}

func viewportFromQuery(q url.Values) (scroll.Viewport, error) {
	var vp scroll.Viewport
	fields := []struct {
		key string
		dst *float64
	}{
		{"x", &vp.Offset.X},
		{"y", &vp.Offset.Y},
		{"w", &vp.Width},
		{"h", &vp.Height},
		{"cw", &vp.ContentWidth},
		{"ch", &vp.ContentHeight},
	}
	for _, f := range fields {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return vp, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}
	return vp, nil
}
