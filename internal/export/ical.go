// Package export renders a confirmed selection as an iCalendar document so
// the bar mitzvah Shabbat can be added to any calendar application.
package export

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/AlmogShaul/bar-mitzva/internal/selection"
)

// ContentType is the media type of the rendered document.
const ContentType = "text/calendar; charset=utf-8"

const (
	icalVersion  = "2.0"
	icalProdID   = "-//Bar Mitzva//Parasha//EN"
	icalCalName  = "Bar Mitzvah"
	icalScale    = "GREGORIAN"
	icalMethod   = "PUBLISH"
	icalDomain   = "bar-mitzva"
	uidHashBytes = 12

	propVersion     = "VERSION"
	propProdID      = "PRODID"
	propCalName     = "X-WR-CALNAME"
	propCalScale    = "CALSCALE"
	propMethod      = "METHOD"
	propUID         = "UID"
	propDTStamp     = "DTSTAMP"
	propDTStart     = "DTSTART"
	propDTEnd       = "DTEND"
	propSummary     = "SUMMARY"
	propDescription = "DESCRIPTION"
	propCategories  = "CATEGORIES"
	propTransp      = "TRANSP"
)

// ErrNoShabbat is returned for a selection without a resolved Shabbat date.
var ErrNoShabbat = errors.New("selection has no shabbat date")

// Calendar encodes sel as a VCALENDAR holding one all-day event on the
// bar mitzvah Shabbat. The UID depends only on the birth input, so a
// re-confirmed selection updates the existing event in subscribed clients.
func Calendar(sel selection.Selection) ([]byte, error) {
	r := sel.Resolution
	if r.ShabbatDate.IsZero() {
		return nil, ErrNoShabbat
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(propVersion, icalVersion)
	cal.Props.SetText(propProdID, icalProdID)
	cal.Props.SetText(propCalName, icalCalName)
	cal.Props.SetText(propCalScale, icalScale)
	cal.Props.SetText(propMethod, icalMethod)

	event := ical.NewEvent()
	event.Props.SetText(propUID, eventUID(sel))
	event.Props.SetText(propSummary, Summary(sel))
	event.Props.SetText(propDescription, Description(sel))
	event.Props.SetText(propCategories, "Bar Mitzvah")
	event.Props.SetText(propTransp, "TRANSPARENT")

	stamp := sel.ConfirmedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	dtStamp := ical.NewProp(propDTStamp)
	dtStamp.SetDateTime(stamp.UTC())
	event.Props.Set(dtStamp)

	// All-day events end on the following day (exclusive).
	dtStart := ical.NewProp(propDTStart)
	dtStart.SetDate(r.ShabbatDate.Time())
	event.Props.Set(dtStart)

	dtEnd := ical.NewProp(propDTEnd)
	dtEnd.SetDate(r.ShabbatDate.AddDays(1).Time())
	event.Props.Set(dtEnd)

	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// Summary is the event title.
func Summary(sel selection.Selection) string {
	if sel.InCatalog() {
		return "Bar Mitzvah: Parashat " + sel.English
	}
	return "Bar Mitzvah: " + sel.Name
}

// Description is the event body: the reading in both languages and the
// dates it was derived from.
func Description(sel selection.Selection) string {
	r := sel.Resolution
	var b strings.Builder

	b.WriteString("Reading: " + sel.English)
	if sel.Hebrew != "" {
		b.WriteString(" (" + sel.Hebrew + ")")
	}
	b.WriteString("\n")
	for _, e := range sel.Entries {
		fmt.Fprintf(&b, "%s: %s\n", e.English, e.Reference())
	}
	fmt.Fprintf(&b, "Born: %s", r.CivilBirth)
	if r.BornAfterSunset {
		b.WriteString(" after sunset")
	}
	fmt.Fprintf(&b, " (%s, %s)\n", r.HebrewBirth, r.HebrewBirth.Gematriya())
	fmt.Fprintf(&b, "Hebrew anniversary: %s (%s)\n", r.HebrewAnniversary, r.CivilAnniversary)
	fmt.Fprintf(&b, "Schedule: %s", r.Schedule())
	return b.String()
}

func eventUID(sel selection.Selection) string {
	r := sel.Resolution
	input := fmt.Sprintf("%s|%t|%t", r.CivilBirth, r.BornAfterSunset, r.IsraelSchedule)
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x@%s", sum[:uidHashBytes], icalDomain)
}
