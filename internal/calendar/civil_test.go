package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCivilDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    CivilDate
		wantErr bool
	}{
		{name: "valid", input: "1990-05-15", want: civil(1990, time.May, 15)},
		{name: "surrounding space", input: " 2024-03-06 ", want: civil(2024, time.March, 6)},
		{name: "leap day", input: "2024-02-29", want: civil(2024, time.February, 29)},
		{name: "not a leap year", input: "2023-02-29", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "wrong layout", input: "15/05/1990", wantErr: true},
		{name: "month out of range", input: "1990-13-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCivilDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestCivilDate_NormalizedToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+14", 14*60*60)
	d := CivilDateOf(time.Date(2024, time.March, 6, 23, 30, 0, 0, loc))

	assert.Equal(t, "2024-03-06", d.String())
	assert.Equal(t, time.UTC, d.Time().Location())
	assert.Equal(t, 0, d.Time().Hour())
}

func TestCivilDate_AddDaysAcrossBoundaries(t *testing.T) {
	assert.Equal(t, "2024-03-01", civil(2024, time.February, 28).AddDays(2).String())
	assert.Equal(t, "2025-01-01", civil(2024, time.December, 31).AddDays(1).String())
	assert.Equal(t, "2024-03-30", civil(2024, time.March, 31).AddDays(-1).String())
	assert.Equal(t, 7, civil(2024, time.March, 6).DaysUntil(civil(2024, time.March, 13)))
}

func TestCivilDate_JSON(t *testing.T) {
	type wrapper struct {
		Date CivilDate `json:"date"`
	}

	b, err := json.Marshal(wrapper{Date: may15_1990})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"1990-05-15"}`, string(b))

	var back wrapper
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Date.Equal(may15_1990))

	assert.Error(t, json.Unmarshal([]byte(`{"date":"yesterday"}`), &back))
}
