package engine

import "weekcal/internal/model"

// Find looks up an appointment by ID among the snapshot's input items.
func (s Snapshot) Find(id string) (model.Appointment, bool) {
	for _, a := range s.Input.Items {
		if a.ID == id {
			return a, true
		}
	}
	return model.Appointment{}, false
}

// Visible returns the laid out appointments in day, row and lane order.
func (s Snapshot) Visible() []model.Appointment {
	var out []model.Appointment
	for _, d := range s.Days {
		out = append(out, d.Appointments()...)
	}
	return out
}

// SelectNext moves the selection step items from currentID through the
// visible appointments, wrapping at both ends. An unknown currentID counts as
// position -1, so step 1 selects the first item. ok is false when nothing is
// visible.
func (s Snapshot) SelectNext(currentID string, step int) (model.Appointment, bool) {
	visible := s.Visible()
	if len(visible) == 0 {
		return model.Appointment{}, false
	}
	idx := -1
	for i, a := range visible {
		if a.ID == currentID {
			idx = i
			break
		}
	}
	idx += step
	if idx < 0 {
		idx = len(visible) - 1
	} else if idx >= len(visible) {
		idx = 0
	}
	return visible[idx], true
}
