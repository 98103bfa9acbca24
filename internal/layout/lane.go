package layout

import (
	"math"

	"weekcal/internal/model"
)

// Cell is one proportional slot of a lane or a day. Item is nil for filler
// cells. Begin and Length are fractions of the container.
type Cell struct {
	Begin  float64            `json:"begin"`
	Length float64            `json:"length"`
	Item   *model.Appointment `json:"item,omitempty"`
}

// Empty reports whether c is a gap filler.
func (c Cell) Empty() bool {
	return c.Item == nil
}

// LayoutLane lays out the members of g on the given lane in group-local
// coordinates: 0 is the group's begin and 1 its end. Gaps before, between
// and after members become empty cells, so the lengths add up to 1.
//
// Members of one lane are expected not to overlap each other.
func LayoutLane(items []model.Appointment, g Group, lane int) []Cell {
	members := LaneItems(items, g.Start, g.Count, lane)
	length := g.Length()
	if IsZero(length) {
		return collapsedLane(members)
	}

	cells := make([]Cell, 0, 2*len(members)+1)
	previous := math.NaN()
	for i := range members {
		b, l := FractionOfDay(members[i])
		b = (b - g.Begin) / length
		l /= length

		from := orZero(previous)
		if gap := b - from; IsGreater(gap, 0) {
			cells = append(cells, Cell{Begin: from, Length: gap})
		}

		item := members[i]
		cells = append(cells, Cell{Begin: b, Length: l, Item: &item})
		previous = b + l
	}

	if math.IsNaN(previous) || IsLess(previous, 1) {
		from := orZero(previous)
		cells = append(cells, Cell{Begin: from, Length: 1 - from})
	}
	return cells
}

// LayoutGroup lays out every lane of g, indexed by lane number.
func LayoutGroup(items []model.Appointment, g Group) [][]Cell {
	lanes := make([][]Cell, g.Lanes)
	for lane := range lanes {
		lanes[lane] = LayoutLane(items, g, lane)
	}
	return lanes
}

// collapsedLane handles a group with no extent (every member clamped to zero
// length): members keep their order at position 0 and one filler spans the lane.
func collapsedLane(members []model.Appointment) []Cell {
	cells := make([]Cell, 0, len(members)+1)
	for i := range members {
		item := members[i]
		cells = append(cells, Cell{Item: &item})
	}
	return append(cells, Cell{Length: 1})
}

func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
