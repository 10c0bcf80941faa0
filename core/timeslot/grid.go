// Package timeslot enumerates forecast slot boundaries on a fixed-interval
// grid and evaluates lot open-hours windows. All arithmetic is done on
// local wall-clock minutes so the grid stays aligned with the lot's day.
package timeslot

import "time"

// MinuteOfDay returns the wall-clock minutes since local midnight for t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// SlotIndex maps a local instant to its slot index within the day by
// flooring to the interval grid.
func SlotIndex(t time.Time, interval time.Duration) int {
	step := int(interval.Minutes())
	if step <= 0 {
		return 0
	}
	idx := MinuteOfDay(t) / step
	if idx < 0 {
		return 0
	}
	return idx
}

// DistanceToBoundary returns how far t sits from its nearest slot boundary,
// in minutes. Samples further than half an interval from any boundary are
// treated as noise by the forecast models.
func DistanceToBoundary(t time.Time, interval time.Duration) int {
	step := int(interval.Minutes())
	if step <= 0 {
		return 0
	}
	r := MinuteOfDay(t) % step
	if step-r < r {
		return step - r
	}
	return r
}

// Grid enumerates slot-start instants within [dayStart, dayEnd) that fall
// inside the open window. dayStart must be in the lot's local zone.
func Grid(dayStart, dayEnd time.Time, interval time.Duration, w OpenWindow) []time.Time {
	if interval <= 0 {
		return nil
	}
	var slots []time.Time
	for t := dayStart; t.Before(dayEnd); t = t.Add(interval) {
		if w.Contains(MinuteOfDay(t)) {
			slots = append(slots, t)
		}
	}
	return slots
}

// Floor snaps t down to its slot boundary, keeping the local zone.
func Floor(t time.Time, interval time.Duration) time.Time {
	step := int(interval.Minutes())
	if step <= 0 {
		return t
	}
	m := (MinuteOfDay(t) / step) * step
	return atMinute(t, m)
}

// Ceil snaps t up to its slot boundary, keeping the local zone. An instant
// already on the grid maps to itself.
func Ceil(t time.Time, interval time.Duration) time.Time {
	step := int(interval.Minutes())
	if step <= 0 {
		return t
	}
	m := MinuteOfDay(t)
	if t.Second() > 0 || t.Nanosecond() > 0 {
		m++
	}
	k := m / step
	if m%step != 0 {
		k++
	}
	return atMinute(t, k*step)
}

func atMinute(t time.Time, minuteOfDay int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), minuteOfDay/60, minuteOfDay%60, 0, 0, t.Location())
}
