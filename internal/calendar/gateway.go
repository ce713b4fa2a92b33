package calendar

import (
	"context"
	"errors"
)

// ErrGateway marks failures reported by the calendar service.
var ErrGateway = errors.New("calendar gateway failure")

// Locale selects the reading schedule.
type Locale struct {
	Israel bool
}

// Schedule names the locale for display.
func (l Locale) Schedule() string {
	if l.Israel {
		return "Israel"
	}
	return "Diaspora"
}

// Event is a named calendar event on a single civil date.
type Event struct {
	Description string `json:"description"`
	// Category is the service's classification (e.g. "parashat", "holiday");
	// empty when the service does not classify events.
	Category string `json:"category,omitempty"`
	Hebrew   string `json:"hebrew,omitempty"`
}

// Gateway converts between civil and Hebrew dates and lists the named
// events of a civil date under a reading schedule.
type Gateway interface {
	CivilToHebrew(ctx context.Context, date CivilDate) (HebrewDate, error)
	HebrewToCivil(ctx context.Context, date HebrewDate) (CivilDate, error)
	EventsOnDate(ctx context.Context, date CivilDate, locale Locale) ([]Event, error)
}
