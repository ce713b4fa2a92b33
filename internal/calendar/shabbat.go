package calendar

import "time"

// NextShabbatOnOrAfter returns the first Saturday on or after date.
// The advance is always between 0 and 6 days.
func NextShabbatOnOrAfter(date CivilDate) CivilDate {
	delta := (int(time.Saturday) - int(date.Weekday()) + 7) % 7
	return date.AddDays(delta)
}

// IsShabbat reports whether date falls on a Saturday.
func IsShabbat(date CivilDate) bool {
	return date.Weekday() == time.Saturday
}
