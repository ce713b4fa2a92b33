package hebcal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hebcal/hdate"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlmogShaul/bar-mitzva/internal/calendar"
	"github.com/AlmogShaul/bar-mitzva/internal/metrics"
)

type stubEvents struct {
	events []calendar.Event
	err    error
	israel []bool
}

func (s *stubEvents) Events(_ context.Context, _ calendar.CivilDate, israel bool) ([]calendar.Event, error) {
	s.israel = append(s.israel, israel)
	return s.events, s.err
}

func TestGateway_CivilToHebrew(t *testing.T) {
	g := NewGateway(&stubEvents{}, nil)

	tests := []struct {
		civil calendar.CivilDate
		want  calendar.HebrewDate
	}{
		{calendar.NewCivilDate(2008, time.November, 13), calendar.HebrewDate{Day: 15, Month: calendar.Cheshvan, Year: 5769}},
		{calendar.NewCivilDate(1990, time.May, 15), calendar.HebrewDate{Day: 20, Month: calendar.Iyyar, Year: 5750}},
		{calendar.NewCivilDate(2024, time.March, 6), calendar.HebrewDate{Day: 26, Month: calendar.Adar1, Year: 5784}},
		{calendar.NewCivilDate(1994, time.February, 25), calendar.HebrewDate{Day: 14, Month: calendar.Adar1, Year: 5754}},
	}
	for _, tt := range tests {
		got, err := g.CivilToHebrew(context.Background(), tt.civil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "CivilToHebrew(%s)", tt.civil)
	}
}

func TestGateway_HebrewToCivil(t *testing.T) {
	g := NewGateway(&stubEvents{}, nil)

	tests := []struct {
		hebrew calendar.HebrewDate
		want   string
	}{
		{calendar.HebrewDate{Day: 20, Month: calendar.Iyyar, Year: 5763}, "2003-05-22"},
		{calendar.HebrewDate{Day: 1, Month: calendar.Cheshvan, Year: 5753}, "1992-10-28"},
		{calendar.HebrewDate{Day: 1, Month: calendar.Kislev, Year: 5753}, "1992-11-26"},
		{calendar.HebrewDate{Day: 30, Month: calendar.Cheshvan, Year: 5740}, "1979-11-20"},
		{calendar.HebrewDate{Day: 14, Month: calendar.Adar2, Year: 5741}, "1981-03-20"},
	}
	for _, tt := range tests {
		got, err := g.HebrewToCivil(context.Background(), tt.hebrew)
		require.NoError(t, err, "HebrewToCivil(%s)", tt.hebrew)
		assert.Equal(t, tt.want, got.String(), "HebrewToCivil(%s)", tt.hebrew)
	}
}

func TestGateway_RoundTrip(t *testing.T) {
	g := NewGateway(&stubEvents{}, nil)
	ctx := context.Background()

	start := calendar.NewCivilDate(2003, time.January, 1)
	for i := 0; i < 400; i++ {
		d := start.AddDays(i)
		h, err := g.CivilToHebrew(ctx, d)
		require.NoError(t, err)
		back, err := g.HebrewToCivil(ctx, h)
		require.NoError(t, err)
		require.True(t, d.Equal(back), "%s -> %s -> %s", d, h, back)
	}
}

func TestGateway_HebrewToCivilRejectsMissingDates(t *testing.T) {
	g := NewGateway(&stubEvents{}, nil)

	for _, h := range []calendar.HebrewDate{
		{Day: 1, Month: calendar.Adar2, Year: 5785},
		{Day: 30, Month: calendar.Cheshvan, Year: 5753},
		{Day: 30, Month: calendar.Iyyar, Year: 5763},
		{Day: 0, Month: calendar.Nisan, Year: 5763},
	} {
		_, err := g.HebrewToCivil(context.Background(), h)
		assert.ErrorIs(t, err, calendar.ErrGateway, "HebrewToCivil(%+v)", h)
	}
}

func TestLeapYearRuleMatchesHdate(t *testing.T) {
	for year := 5600; year <= 6000; year++ {
		require.Equal(t, hdate.IsLeapYear(year), calendar.IsLeapYear(year), "year %d", year)
		require.Equal(t, hdate.MonthsInYear(year), calendar.MonthsInYear(year), "year %d", year)
	}
}

func TestGateway_EventsOnDate(t *testing.T) {
	src := &stubEvents{events: []calendar.Event{{Description: "Parashat Noach"}}}
	m := metrics.New()
	g := NewGateway(src, m)

	events, err := g.EventsOnDate(context.Background(), calendar.NewCivilDate(2024, time.November, 2), calendar.Locale{Israel: true})
	require.NoError(t, err)
	assert.Equal(t, src.events, events)
	assert.Equal(t, []bool{true}, src.israel)

	src.err = errors.New("offline")
	_, err = g.EventsOnDate(context.Background(), calendar.NewCivilDate(2024, time.November, 2), calendar.Locale{})
	assert.Error(t, err)

	n, err := testutil.GatherAndCount(m.Registry(), "barmitzva_gateway_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per status")
}
