package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

const defaultMaxOccurrences = 5000

// ExpandOptions bounds recurrence expansion.
type ExpandOptions struct {
	// Location is the display timezone; nil means time.Local.
	Location *time.Location

	// From / To is the half-open range occurrences must intersect.
	From time.Time
	To   time.Time

	// MaxOccurrences caps each series. Zero means 5000.
	MaxOccurrences int
}

// ExpandResult holds the appointments and what was left out of them.
type ExpandResult struct {
	Appointments []model.Appointment
	// Truncated lists UIDs that hit MaxOccurrences.
	Truncated []string
	// Skipped counts all-day and multi-day occurrences, which the day layout
	// cannot place.
	Skipped int
}

// Expand turns events into timed appointments in the display timezone,
// expanding RRULE series, removing EXDATEs and applying RECURRENCE-ID
// overrides. The result is sorted by begin time.
func Expand(events []Event, opts ExpandOptions) (ExpandResult, error) {
	var res ExpandResult
	if opts.To.Before(opts.From) {
		return res, errors.New("ics: expand range ends before it starts")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}

	bases := make(map[string][]Event)
	overrides := make(map[string][]Event)
	var uids []string
	for _, ev := range events {
		key := ev.Source.ID + "\x00" + ev.UID
		if ev.RecurrenceID != nil {
			overrides[key] = append(overrides[key], ev)
			continue
		}
		if _, seen := bases[key]; !seen {
			uids = append(uids, key)
		}
		bases[key] = append(bases[key], ev)
	}

	for _, key := range uids {
		for _, ev := range bases[key] {
			occ, capped := expandEvent(ev, overrides[key], opts)
			if capped {
				res.Truncated = append(res.Truncated, ev.UID)
				appLog.Warn("ics: occurrences truncated", "uid", ev.UID, "cap", opts.MaxOccurrences)
			}
			for _, o := range occ {
				if a, ok := toAppointment(o, opts.Location); ok {
					res.Appointments = append(res.Appointments, a)
				} else {
					res.Skipped++
				}
			}
		}
	}

	sort.SliceStable(res.Appointments, func(i, j int) bool {
		return res.Appointments[i].Begin.Before(res.Appointments[j].Begin)
	})
	return res, nil
}

// occurrence is one instance of an event; seriesStart identifies the instance
// within its series even when an override moved it.
type occurrence struct {
	ev          Event
	seriesStart time.Time
	start, end  time.Time
}

func expandEvent(ev Event, overrides []Event, opts ExpandOptions) ([]occurrence, bool) {
	if ev.RRule == "" {
		o := applyOverride(occurrence{ev: ev, seriesStart: ev.Start, start: ev.Start, end: ev.End}, overrides)
		if !overlaps(o.start, o.end, opts.From, opts.To) {
			return nil, false
		}
		return []occurrence{o}, false
	}

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("ics: bad RRULE", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by the duration so an instance that began before
	// From but is still running is included.
	dur := ev.End.Sub(ev.Start)
	from := opts.From.Add(-dur).In(ev.Start.Location())
	to := opts.To.In(ev.Start.Location())
	starts := set.Between(from, to, true)

	capped := false
	if len(starts) > opts.MaxOccurrences {
		starts = starts[:opts.MaxOccurrences]
		capped = true
	}

	out := make([]occurrence, 0, len(starts))
	for _, s := range starts {
		o := applyOverride(occurrence{ev: ev, seriesStart: s, start: s, end: s.Add(dur)}, overrides)
		if overlaps(o.start, o.end, opts.From, opts.To) {
			out = append(out, o)
		}
	}
	return out, capped
}

func applyOverride(o occurrence, overrides []Event) occurrence {
	for _, ov := range overrides {
		if ov.RecurrenceID != nil && ov.RecurrenceID.Equal(o.seriesStart) {
			o.ev = ov
			o.start = ov.Start
			o.end = ov.End
			return o
		}
	}
	return o
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// toAppointment converts o into the display timezone. All-day and multi-day
// occurrences are rejected.
func toAppointment(o occurrence, loc *time.Location) (model.Appointment, bool) {
	if o.ev.AllDay {
		return model.Appointment{}, false
	}
	a := model.Appointment{
		ID:       AppointmentID(o.ev.Source.ID, o.ev.UID, o.seriesStart),
		SourceID: o.ev.Source.ID,
		Summary:  o.ev.Summary,
		Location: o.ev.Location,
		Begin:    o.start.In(loc),
		End:      o.end.In(loc),
	}
	if !layout.SameDay(a) {
		return model.Appointment{}, false
	}
	return a, true
}

// AppointmentID derives a stable ID from the source, the UID and the instance
// start, so an occurrence keeps its ID across refreshes.
func AppointmentID(sourceID, uid string, instance time.Time) string {
	name := sourceID + "|" + uid + "|" + instance.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
