package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlmogShaul/bar-mitzva/internal/calendar"
	"github.com/AlmogShaul/bar-mitzva/internal/verses"
)

// stubGateway knows a single birth: 15 May 1990, 20 Iyyar 5750.
type stubGateway struct{}

var (
	birthCivil       = calendar.NewCivilDate(1990, time.May, 15)
	birthHebrew      = calendar.HebrewDate{Day: 20, Month: calendar.Iyyar, Year: 5750}
	anniversaryCivil = calendar.NewCivilDate(2003, time.May, 22)
	anniversaryHeb   = calendar.HebrewDate{Day: 20, Month: calendar.Iyyar, Year: 5763}
)

func (stubGateway) CivilToHebrew(_ context.Context, d calendar.CivilDate) (calendar.HebrewDate, error) {
	switch {
	case d.Equal(birthCivil):
		return birthHebrew, nil
	case d.Equal(anniversaryCivil):
		return anniversaryHeb, nil
	}
	return calendar.HebrewDate{}, fmt.Errorf("%w: no fixture for %s", calendar.ErrGateway, d)
}

func (stubGateway) HebrewToCivil(_ context.Context, h calendar.HebrewDate) (calendar.CivilDate, error) {
	if h == anniversaryHeb {
		return anniversaryCivil, nil
	}
	return calendar.CivilDate{}, fmt.Errorf("%w: no fixture for %s", calendar.ErrGateway, h)
}

func (stubGateway) EventsOnDate(_ context.Context, d calendar.CivilDate, _ calendar.Locale) ([]calendar.Event, error) {
	if d.String() == "2003-05-24" {
		return []calendar.Event{
			{Description: "Parashat Bechukotai", Category: "parashat"},
			{Description: "Candle lighting: 7:52pm", Category: "candles"},
		}, nil
	}
	return nil, nil
}

func testApp(corpus []verses.Verse) *app {
	return &app{
		newGateway: func(*app, *slog.Logger) (calendar.Gateway, error) { return stubGateway{}, nil },
		loadCorpus: func(context.Context, *app, *slog.Logger) ([]verses.Verse, error) {
			if corpus == nil {
				return nil, errors.New("no database")
			}
			return corpus, nil
		},
	}
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := a.rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestResolveCmd(t *testing.T) {
	out, err := execute(t, testApp(nil), "resolve", "1990-05-15")
	require.NoError(t, err)

	assert.Contains(t, out, "Bechukotai")
	assert.Contains(t, out, "May 24, 2003")
	assert.Contains(t, out, "Diaspora")
	assert.Contains(t, out, "Leviticus")
	assert.NotContains(t, out, "Candle")
}

func TestResolveCmd_JSON(t *testing.T) {
	out, err := execute(t, testApp(nil), "resolve", "1990-05-15", "--json")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Bechukotai", got["portion"])
	assert.Equal(t, "2003-05-24", got["shabbat_date"])
	assert.Equal(t, "Diaspora", got["schedule"])
}

func TestResolveCmd_InvalidDate(t *testing.T) {
	_, err := execute(t, testApp(nil), "resolve", "15/05/1990")
	require.Error(t, err)

	var f *calendar.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, calendar.KindInvalidInput, f.Kind)
}

func TestCatalogCmd(t *testing.T) {
	out, err := execute(t, testApp(nil), "catalog")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 55, "header plus 54 portions")
	assert.Contains(t, lines[1], "Bereshit")
}

func TestVersesCmd(t *testing.T) {
	corpus := []verses.Verse{
		{ID: 1, Book: "Leviticus", Chapter: 26, Number: 3, Hebrew: "אִם־בְּחֻקֹּתַי", Portion: "Bechukotai", Translation: "If you follow My laws"},
		{ID: 2, Book: "Leviticus", Chapter: 26, Number: 4, Hebrew: "וְנָתַתִּי", Portion: "Bechukotai"},
		{ID: 3, Book: "Genesis", Chapter: 1, Number: 1, Hebrew: "בְּרֵאשִׁית", Portion: "Bereshit"},
	}

	t.Run("flat", func(t *testing.T) {
		out, err := execute(t, testApp(corpus), "verses", "bechukotai")
		require.NoError(t, err)
		assert.Contains(t, out, "Leviticus 26:3")
		assert.Contains(t, out, "If you follow My laws")
		assert.NotContains(t, out, "Genesis")
	})

	t.Run("grouped", func(t *testing.T) {
		out, err := execute(t, testApp(corpus), "verses", "Bechukotai", "--group", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "Group 1")
		assert.Contains(t, out, "Group 2")
		assert.NotContains(t, out, "Group 3")
	})

	t.Run("unknown portion", func(t *testing.T) {
		_, err := execute(t, testApp(corpus), "verses", "Noach")
		assert.ErrorContains(t, err, "no verses")
	})

	t.Run("negative group", func(t *testing.T) {
		_, err := execute(t, testApp(corpus), "verses", "Bechukotai", "--group=-2")
		assert.Error(t, err)
	})

	t.Run("missing database", func(t *testing.T) {
		_, err := execute(t, testApp(nil), "verses", "Bechukotai")
		assert.ErrorContains(t, err, "no database")
	})
}
