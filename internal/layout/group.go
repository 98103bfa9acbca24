package layout

import "weekcal/internal/model"

// Group is a maximal run of begin-sorted appointments whose extents chain
// together. Start and Count index into the day's sorted list; Begin and End
// are fractions of the day.
type Group struct {
	Start int     `json:"start"`
	Count int     `json:"count"`
	Begin float64 `json:"begin"`
	End   float64 `json:"end"`
	Lanes int     `json:"lanes"`
}

// Length is the group's extent as a fraction of the day.
func (g Group) Length() float64 {
	return g.End - g.Begin
}

// GroupCount returns how many items starting at begin belong to the same
// group. A base-lane item that starts strictly after the extent accumulated
// so far opens a new group; anything else (overlapping, touching, or sitting
// on a lane > 0) extends the current one.
func GroupCount(items []model.Appointment, begin int) int {
	end := FractionEnd(items[begin])
	count := 1
	for i := begin + 1; i < len(items); i++ {
		b, l := FractionOfDay(items[i])
		if laneOf(items[i]) == 0 && IsGreater(b, end) {
			break
		}
		if e := b + l; e > end {
			end = e
		}
		count++
	}
	return count
}

// GroupEnd is the largest fraction-of-day end among items[begin:begin+count].
func GroupEnd(items []model.Appointment, begin, count int) float64 {
	end := FractionEnd(items[begin])
	for i := begin + 1; i < begin+count; i++ {
		if e := FractionEnd(items[i]); e > end {
			end = e
		}
	}
	return end
}

// LaneCount is one more than the highest lane used in the group.
func LaneCount(items []model.Appointment, begin, count int) int {
	highest := 0
	for i := begin; i < begin+count; i++ {
		if l := laneOf(items[i]); l > highest {
			highest = l
		}
	}
	return highest + 1
}

// LaneItems returns the group members sitting on lane, keeping begin order.
func LaneItems(items []model.Appointment, begin, count, lane int) []model.Appointment {
	var out []model.Appointment
	for i := begin; i < begin+count; i++ {
		if laneOf(items[i]) == lane {
			out = append(out, items[i])
		}
	}
	return out
}

// ResolveGroup resolves the group that starts at index begin.
func ResolveGroup(items []model.Appointment, begin int) Group {
	count := GroupCount(items, begin)
	b, _ := FractionOfDay(items[begin])
	return Group{
		Start: begin,
		Count: count,
		Begin: b,
		End:   GroupEnd(items, begin, count),
		Lanes: LaneCount(items, begin, count),
	}
}

// ResolveGroups partitions a begin-sorted day into consecutive groups.
func ResolveGroups(items []model.Appointment) []Group {
	var groups []Group
	for i := 0; i < len(items); {
		g := ResolveGroup(items, i)
		groups = append(groups, g)
		i += g.Count
	}
	return groups
}
