package layout

import (
	"slices"
	"time"

	"weekcal/internal/model"
)

// AssignLanes is the lane assignment the layout engine itself does not do.
// It returns a begin-sorted copy of items where every appointment has taken
// the lowest lane whose previous occupant has ended by its begin (greedy
// interval colouring). Longer items win ties so they land on lower lanes.
func AssignLanes(items []model.Appointment) []model.Appointment {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.Appointment) int {
		if c := a.Begin.Compare(b.Begin); c != 0 {
			return c
		}
		return effectiveEnd(b).Compare(effectiveEnd(a))
	})

	var laneEnds []time.Time
	for i := range out {
		lane := -1
		for l, end := range laneEnds {
			if !end.After(out[i].Begin) {
				lane = l
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, time.Time{})
		}
		laneEnds[lane] = effectiveEnd(out[i])
		out[i].Lane = lane
	}
	return out
}

func effectiveEnd(a model.Appointment) time.Time {
	if a.End.Before(a.Begin) {
		return a.Begin
	}
	return a.End
}
