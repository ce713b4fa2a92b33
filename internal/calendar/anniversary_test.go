package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shortCheshvanFixture knows the month starts of 5753, whose Cheshvan and
// Kislev both have 29 days.
func shortCheshvanFixture() *fakeGateway {
	return newFakeGateway().
		pair(civil(1992, time.October, 28), HebrewDate{Day: 1, Month: Cheshvan, Year: 5753}).
		pair(civil(1992, time.November, 26), HebrewDate{Day: 1, Month: Kislev, Year: 5753}).
		pair(civil(1992, time.December, 25), HebrewDate{Day: 1, Month: Tevet, Year: 5753})
}

func TestAddYears_PreservesDayAndMonth(t *testing.T) {
	calc := NewAnniversaryCalculator(newFakeGateway(), DefaultAnniversaryPolicy())
	ctx := context.Background()

	fixed := []HebrewMonth{Nisan, Iyyar, Sivan, Tamuz, Av, Elul, Tishrei, Tevet, Shvat, Adar1}
	for _, m := range fixed {
		for day := 1; day <= 29; day++ {
			h := HebrewDate{Day: day, Month: m, Year: 5750}
			got, err := calc.AddYears(ctx, h, BarMitzvahYears)
			require.NoError(t, err, "AddYears(%s)", h)
			assert.Equal(t, HebrewDate{Day: day, Month: m, Year: 5763}, got)
		}
	}
}

func TestAddYears_AdarII(t *testing.T) {
	ctx := context.Background()
	purim := HebrewDate{Day: 14, Month: Adar2, Year: 5741}

	t.Run("folds into adar", func(t *testing.T) {
		calc := NewAnniversaryCalculator(newFakeGateway(), DefaultAnniversaryPolicy())
		got, err := calc.AddYears(ctx, purim, BarMitzvahYears)
		require.NoError(t, err)
		assert.Equal(t, HebrewDate{Day: 14, Month: Adar1, Year: 5754}, got)
		assert.Equal(t, "14 Adar 5754", got.String())
	})

	t.Run("kept in a leap target year", func(t *testing.T) {
		calc := NewAnniversaryCalculator(newFakeGateway(), DefaultAnniversaryPolicy())
		got, err := calc.AddYears(ctx, HebrewDate{Day: 14, Month: Adar2, Year: 5771}, BarMitzvahYears)
		require.NoError(t, err)
		assert.Equal(t, HebrewDate{Day: 14, Month: Adar2, Year: 5784}, got)
	})

	t.Run("rejected", func(t *testing.T) {
		calc := NewAnniversaryCalculator(newFakeGateway(), AnniversaryPolicy{LeapMonth: RejectMissingMonth})
		_, err := calc.AddYears(ctx, purim, BarMitzvahYears)
		assert.ErrorIs(t, err, ErrMonthMissing)
	})
}

func TestAddYears_ThirtiethOfShortMonth(t *testing.T) {
	ctx := context.Background()
	cheshvan30 := HebrewDate{Day: 30, Month: Cheshvan, Year: 5740}
	kislev30 := HebrewDate{Day: 30, Month: Kislev, Year: 5740}
	adar30 := HebrewDate{Day: 30, Month: Adar1, Year: 5784}

	tests := []struct {
		name    string
		policy  ShortMonthRule
		in      HebrewDate
		want    HebrewDate
		wantErr error
	}{
		{"cheshvan rolls forward", RollForward, cheshvan30, HebrewDate{Day: 1, Month: Kislev, Year: 5753}, nil},
		{"cheshvan clamps", ClampToLastDay, cheshvan30, HebrewDate{Day: 29, Month: Cheshvan, Year: 5753}, nil},
		{"cheshvan rejected", RejectShortMonth, cheshvan30, HebrewDate{}, ErrDayMissing},
		{"kislev rolls forward", RollForward, kislev30, HebrewDate{Day: 1, Month: Tevet, Year: 5753}, nil},
		{"adar I rolls into nisan", RollForward, adar30, HebrewDate{Day: 1, Month: Nisan, Year: 5797}, nil},
		{"adar I clamps", ClampToLastDay, adar30, HebrewDate{Day: 29, Month: Adar1, Year: 5797}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewAnniversaryCalculator(shortCheshvanFixture(), AnniversaryPolicy{ShortMonth: tt.policy})
			got, err := calc.AddYears(ctx, tt.in, BarMitzvahYears)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddYears_InvalidDate(t *testing.T) {
	calc := NewAnniversaryCalculator(newFakeGateway(), DefaultAnniversaryPolicy())
	ctx := context.Background()

	for _, h := range []HebrewDate{
		{Day: 0, Month: Nisan, Year: 5750},
		{Day: 31, Month: Nisan, Year: 5750},
		{Day: 1, Month: 14, Year: 5750},
		{Day: 1, Month: Nisan, Year: 0},
	} {
		_, err := calc.AddYears(ctx, h, BarMitzvahYears)
		assert.ErrorIs(t, err, ErrInvalidHebrewDate, "AddYears(%+v)", h)
	}
}

func TestMonthLength_GatewayFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.convertErr = errors.New("upstream down")
	calc := NewAnniversaryCalculator(gw, DefaultAnniversaryPolicy())

	_, err := calc.MonthLength(context.Background(), Cheshvan, 5753)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")

	n, err := calc.MonthLength(context.Background(), Av, 5753)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
}

func TestNextMonth(t *testing.T) {
	tests := []struct {
		m        HebrewMonth
		year     int
		wantM    HebrewMonth
		wantYear int
	}{
		{Elul, 5783, Tishrei, 5784},
		{Adar1, 5785, Nisan, 5785},
		{Adar1, 5784, Adar2, 5784},
		{Adar2, 5784, Nisan, 5784},
		{Cheshvan, 5753, Kislev, 5753},
	}
	for _, tt := range tests {
		m, y := nextMonth(tt.m, tt.year)
		assert.Equal(t, tt.wantM, m, "nextMonth(%s %d)", tt.m.Name(tt.year), tt.year)
		assert.Equal(t, tt.wantYear, y)
	}
}
