package service

import (
	"time"

	devicecalDto "rehearsal-hub/modules/devicecal/dto"
)

// NormalizeAllDayRange pins an all-day range to UTC: midnight at the start
// of the first day through 23:59:59.999 at the end of the last, taken from
// the calendar dates in the event's own location. Without this, timezone
// drift turns a one-day event into a two-day slot.
func NormalizeAllDayRange(start, end time.Time) (time.Time, time.Time) {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	normalizedStart := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	normalizedEnd := time.Date(ey, em, ed, 23, 59, 59, 999_000_000, time.UTC)
	return normalizedStart, normalizedEnd
}

// slotWindow derives the availability-slot times for a calendar event.
// Timed events convert directly; all-day events are normalized.
func slotWindow(event *devicecalDto.CalendarEvent) (startsAt, endsAt time.Time) {
	if event.AllDay {
		return NormalizeAllDayRange(event.Start, event.End)
	}
	return event.Start.UTC(), event.End.UTC()
}
