// Package calendar resolves a civil birth date to the bar mitzvah Shabbat and
// the Torah reading assigned to it.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for civil dates (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a civil date cannot be parsed or is out of range.
var ErrInvalidDate = errors.New("invalid civil date")

// CivilDate is a calendar day with no time-of-day component.
// It is always normalized to midnight UTC so day arithmetic never drifts
// across DST or local-zone boundaries.
type CivilDate struct {
	t time.Time
}

// NewCivilDate builds a CivilDate from year, month and day.
// Out-of-range components are normalized the way time.Date does.
func NewCivilDate(year int, month time.Month, day int) CivilDate {
	return CivilDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// CivilDateOf truncates a time to its calendar day in the time's own location.
func CivilDateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return NewCivilDate(y, m, d)
}

// ParseCivilDate parses a date string in YYYY-MM-DD format.
func ParseCivilDate(s string) (CivilDate, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return CivilDate{}, fmt.Errorf("%w: %q: use YYYY-MM-DD", ErrInvalidDate, s)
	}
	if t.Year() < 1 {
		return CivilDate{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, t.Year())
	}
	return CivilDate{t: t}, nil
}

// Year returns the Gregorian year.
func (d CivilDate) Year() int { return d.t.Year() }

// Month returns the Gregorian month.
func (d CivilDate) Month() time.Month { return d.t.Month() }

// Day returns the day of the month.
func (d CivilDate) Day() int { return d.t.Day() }

// Weekday returns the day of the week (Sunday=0 … Saturday=6).
func (d CivilDate) Weekday() time.Weekday { return d.t.Weekday() }

// Time returns the date as midnight UTC.
func (d CivilDate) Time() time.Time { return d.t }

// IsZero reports whether the date is unset.
func (d CivilDate) IsZero() bool { return d.t.IsZero() }

// AddDays returns the date n days later (n may be negative).
func (d CivilDate) AddDays(n int) CivilDate {
	return CivilDate{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other.
func (d CivilDate) DaysUntil(other CivilDate) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// Before reports whether d is strictly before other.
func (d CivilDate) Before(other CivilDate) bool { return d.t.Before(other.t) }

// After reports whether d is strictly after other.
func (d CivilDate) After(other CivilDate) bool { return d.t.After(other.t) }

// Equal reports whether both values name the same day.
func (d CivilDate) Equal(other CivilDate) bool { return d.t.Equal(other.t) }

// String formats the date as YYYY-MM-DD.
func (d CivilDate) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Display formats the date for people, e.g. "May 15, 1990".
func (d CivilDate) Display() string {
	return d.t.Format("January 2, 2006")
}

// MarshalText implements encoding.TextMarshaler.
func (d CivilDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *CivilDate) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = CivilDate{}
		return nil
	}
	parsed, err := ParseCivilDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
