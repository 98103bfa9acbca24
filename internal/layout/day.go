package layout

import (
	"math"
	"slices"
	"time"

	"weekcal/internal/model"
)

// GroupLayout is a resolved group together with its per-lane cells.
type GroupLayout struct {
	Group
	Cells [][]Cell `json:"lane_cells"`
}

// Row is a day-level slot: either a gap (Group == nil) or one group.
type Row struct {
	Begin  float64      `json:"begin"`
	Length float64      `json:"length"`
	Group  *GroupLayout `json:"group,omitempty"`
}

// Day is the complete layout of one calendar date. Items holds the sorted
// appointments that Group.Start/Count index into.
type Day struct {
	Date  time.Time           `json:"date"`
	Items []model.Appointment `json:"-"`
	Rows  []Row               `json:"rows"`
}

// SortByBegin returns a copy of items ordered by Begin. Ties keep their input
// order so repeated passes produce the same groups.
func SortByBegin(items []model.Appointment) []model.Appointment {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.Appointment) int {
		return a.Begin.Compare(b.Begin)
	})
	return out
}

// LayoutDay lays out the appointments of one date. Items that do not start
// and end on the same date are skipped. The returned rows cover the whole day:
// empty rows fill the space between groups and after the last one.
func LayoutDay(date time.Time, items []model.Appointment) Day {
	kept := make([]model.Appointment, 0, len(items))
	for _, a := range items {
		if SameDay(a) {
			kept = append(kept, a)
		}
	}
	sorted := SortByBegin(kept)

	day := Day{Date: model.DateOf(date), Items: sorted}
	previous := math.NaN()
	for _, g := range ResolveGroups(sorted) {
		from := orZero(previous)
		if gap := g.Begin - from; IsGreater(gap, 0) {
			day.Rows = append(day.Rows, Row{Begin: from, Length: gap})
		}
		day.Rows = append(day.Rows, Row{
			Begin:  g.Begin,
			Length: g.Length(),
			Group:  &GroupLayout{Group: g, Cells: LayoutGroup(sorted, g)},
		})
		previous = g.End
	}

	if math.IsNaN(previous) || IsLess(previous, 1) {
		from := orZero(previous)
		day.Rows = append(day.Rows, Row{Begin: from, Length: 1 - from})
	}
	return day
}

// Appointments returns every appointment placed in the day in row, lane and
// cell order. Selection navigation walks this order.
func (d Day) Appointments() []model.Appointment {
	var out []model.Appointment
	for _, r := range d.Rows {
		if r.Group == nil {
			continue
		}
		for _, lane := range r.Group.Cells {
			for _, c := range lane {
				if c.Item != nil {
					out = append(out, *c.Item)
				}
			}
		}
	}
	return out
}
