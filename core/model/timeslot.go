package model

// TimeSlot identifies one fixed-width window within an analysis day.
type TimeSlot struct {
	Day   int
	Index int
}

// Before reports whether t precedes o in time.
func (t TimeSlot) Before(o TimeSlot) bool {
	if t.Day != o.Day {
		return t.Day < o.Day
	}
	return t.Index < o.Index
}

// StartMin returns the slot start in minutes from the start of day zero.
func (t TimeSlot) StartMin(slotMinutes int) float64 {
	return float64(t.Day)*24*60 + float64(t.Index*slotMinutes)
}

// HourOfDay returns the hour of day [0,24) at which the slot begins.
func (t TimeSlot) HourOfDay(slotMinutes int) float64 {
	h := float64(t.Index*slotMinutes) / 60
	for h >= 24 {
		h -= 24
	}
	return h
}

// SlotsForWindow enumerates the slots of an analysis window of the given
// number of days with slotsPerDay slots each, in chronological order.
func SlotsForWindow(days, slotsPerDay int) []TimeSlot {
	out := make([]TimeSlot, 0, days*slotsPerDay)
	for d := 0; d < days; d++ {
		for i := 0; i < slotsPerDay; i++ {
			out = append(out, TimeSlot{Day: d, Index: i})
		}
	}
	return out
}
