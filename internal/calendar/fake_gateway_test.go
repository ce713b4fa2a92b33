package calendar

import (
	"context"
	"fmt"
	"time"
)

// fakeGateway answers from fixed tables of known conversions.
type fakeGateway struct {
	toHebrew map[string]HebrewDate
	toCivil  map[HebrewDate]CivilDate
	events   map[string][]Event

	convertErr error
	eventsErr  error

	eventCalls []Locale
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		toHebrew: map[string]HebrewDate{},
		toCivil:  map[HebrewDate]CivilDate{},
		events:   map[string][]Event{},
	}
}

// pair registers a conversion in both directions.
func (f *fakeGateway) pair(civil CivilDate, h HebrewDate) *fakeGateway {
	f.toHebrew[civil.String()] = h
	f.toCivil[h] = civil
	return f
}

func (f *fakeGateway) on(date CivilDate, descriptions ...string) *fakeGateway {
	for _, d := range descriptions {
		f.events[date.String()] = append(f.events[date.String()], Event{Description: d})
	}
	return f
}

func (f *fakeGateway) CivilToHebrew(_ context.Context, date CivilDate) (HebrewDate, error) {
	if f.convertErr != nil {
		return HebrewDate{}, f.convertErr
	}
	h, ok := f.toHebrew[date.String()]
	if !ok {
		return HebrewDate{}, fmt.Errorf("%w: no fixture for %s", ErrGateway, date)
	}
	return h, nil
}

func (f *fakeGateway) HebrewToCivil(_ context.Context, h HebrewDate) (CivilDate, error) {
	if f.convertErr != nil {
		return CivilDate{}, f.convertErr
	}
	c, ok := f.toCivil[h]
	if !ok {
		return CivilDate{}, fmt.Errorf("%w: no fixture for %s", ErrGateway, h)
	}
	return c, nil
}

func (f *fakeGateway) EventsOnDate(_ context.Context, date CivilDate, locale Locale) ([]Event, error) {
	f.eventCalls = append(f.eventCalls, locale)
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events[date.String()], nil
}

func civil(y int, m time.Month, d int) CivilDate { return NewCivilDate(y, m, d) }

// Known conversions (verified against the arithmetic Hebrew calendar).
var (
	may15_1990 = civil(1990, time.May, 15)
	may16_1990 = civil(1990, time.May, 16)
	may22_2003 = civil(2003, time.May, 22)
	may23_2003 = civil(2003, time.May, 23)
	may24_2003 = civil(2003, time.May, 24)

	iyyar20_5750 = HebrewDate{Day: 20, Month: Iyyar, Year: 5750}
	iyyar21_5750 = HebrewDate{Day: 21, Month: Iyyar, Year: 5750}
	iyyar20_5763 = HebrewDate{Day: 20, Month: Iyyar, Year: 5763}
	iyyar21_5763 = HebrewDate{Day: 21, Month: Iyyar, Year: 5763}
)

// barMitzvahFixture covers the May 1990 birth used across the tests.
func barMitzvahFixture() *fakeGateway {
	return newFakeGateway().
		pair(may15_1990, iyyar20_5750).
		pair(may16_1990, iyyar21_5750).
		pair(may22_2003, iyyar20_5763).
		pair(may23_2003, iyyar21_5763).
		on(may24_2003, "Parashat Bechukotai", "Shabbat Mevarchim Chodesh Sivan")
}
