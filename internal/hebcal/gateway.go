package hebcal

import (
	"context"
	"fmt"
	"time"

	"github.com/hebcal/hdate"

	"github.com/AlmogShaul/bar-mitzva/internal/calendar"
	"github.com/AlmogShaul/bar-mitzva/internal/metrics"
)

// EventSource lists the named events of a civil date.
type EventSource interface {
	Events(ctx context.Context, date calendar.CivilDate, israel bool) ([]calendar.Event, error)
}

// Gateway implements calendar.Gateway.
type Gateway struct {
	events  EventSource
	metrics *metrics.Metrics
}

var _ calendar.Gateway = (*Gateway)(nil)

// NewGateway creates a gateway that converts dates with hdate and reads
// events from src. m may be nil.
func NewGateway(src EventSource, m *metrics.Metrics) *Gateway {
	return &Gateway{events: src, metrics: m}
}

// CivilToHebrew converts a civil date to the Hebrew date that covers its daytime.
func (g *Gateway) CivilToHebrew(_ context.Context, date calendar.CivilDate) (h calendar.HebrewDate, err error) {
	defer g.observe("civil_to_hebrew", time.Now(), &err)

	if date.IsZero() {
		return calendar.HebrewDate{}, fmt.Errorf("%w: zero civil date", calendar.ErrGateway)
	}
	defer recoverInto(&err)

	hd := hdate.FromGregorian(date.Year(), date.Month(), date.Day())
	return fromHDate(hd), nil
}

// HebrewToCivil converts a Hebrew date to its civil date. Months and days
// that do not exist in the given year are reported as errors, never
// normalized.
func (g *Gateway) HebrewToCivil(_ context.Context, h calendar.HebrewDate) (c calendar.CivilDate, err error) {
	defer g.observe("hebrew_to_civil", time.Now(), &err)

	if h.Year < 1 || h.Day < 1 || h.Day > 30 || !calendar.MonthExists(h.Month, h.Year) {
		return calendar.CivilDate{}, fmt.Errorf("%w: %s does not exist", calendar.ErrGateway, h)
	}
	defer recoverInto(&err)

	civil := calendar.CivilDateOf(hdate.New(h.Year, hdate.HMonth(h.Month), h.Day).Gregorian())

	// hdate.New panics on a 30th in a 29-day month; recoverInto reports that.
	// The round trip guards anything else the conversion normalizes.
	back := fromHDate(hdate.FromGregorian(civil.Year(), civil.Month(), civil.Day()))
	if back != h {
		return calendar.CivilDate{}, fmt.Errorf("%w: %s does not exist", calendar.ErrGateway, h)
	}
	return civil, nil
}

// EventsOnDate lists the events of date under the locale's schedule.
func (g *Gateway) EventsOnDate(ctx context.Context, date calendar.CivilDate, locale calendar.Locale) (events []calendar.Event, err error) {
	defer g.observe("events", time.Now(), &err)
	return g.events.Events(ctx, date, locale.Israel)
}

func (g *Gateway) observe(op string, start time.Time, err *error) {
	g.metrics.ObserveGateway(op, start, *err)
}

func fromHDate(hd hdate.HDate) calendar.HebrewDate {
	return calendar.HebrewDate{
		Day:   hd.Day(),
		Month: calendar.HebrewMonth(hd.Month()),
		Year:  hd.Year(),
	}
}

// recoverInto turns a panic from the conversion library into a gateway error.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", calendar.ErrGateway, r)
	}
}
