package calendar

import (
	"context"
	"errors"
	"fmt"
)

// BarMitzvahYears is the Hebrew-year offset from birth to bar mitzvah.
const BarMitzvahYears = 13

var (
	// ErrMonthMissing is returned under RejectMissingMonth when the source
	// month (Adar II) does not exist in the target year.
	ErrMonthMissing = errors.New("month does not exist in target year")

	// ErrDayMissing is returned under RejectShortMonth when the target month
	// is shorter than the source day.
	ErrDayMissing = errors.New("day does not exist in target month")

	// ErrInvalidHebrewDate is returned for day/month/year values outside the calendar.
	ErrInvalidHebrewDate = errors.New("invalid hebrew date")
)

// LeapMonthRule decides what happens to Adar II when the target year is not
// a leap year.
type LeapMonthRule int

const (
	// FoldIntoAdar moves Adar II to the single Adar of an ordinary year.
	FoldIntoAdar LeapMonthRule = iota
	// RejectMissingMonth fails with ErrMonthMissing.
	RejectMissingMonth
)

// ShortMonthRule decides what happens to day 30 when the target month has 29
// days (Cheshvan, Kislev, and Adar after folding).
type ShortMonthRule int

const (
	// RollForward moves the date to the first day of the following month.
	RollForward ShortMonthRule = iota
	// ClampToLastDay moves the date to the last day of the target month.
	ClampToLastDay
	// RejectShortMonth fails with ErrDayMissing.
	RejectShortMonth
)

// AnniversaryPolicy names how year offsets treat months and days that do not
// exist in the destination year.
type AnniversaryPolicy struct {
	LeapMonth  LeapMonthRule
	ShortMonth ShortMonthRule
}

// DefaultAnniversaryPolicy folds Adar II into Adar and rolls a missing 30th
// forward to the first of the next month.
func DefaultAnniversaryPolicy() AnniversaryPolicy {
	return AnniversaryPolicy{LeapMonth: FoldIntoAdar, ShortMonth: RollForward}
}

// AnniversaryCalculator shifts Hebrew dates by whole Hebrew years.
type AnniversaryCalculator struct {
	gw     Gateway
	policy AnniversaryPolicy
}

// NewAnniversaryCalculator creates a calculator that measures variable month
// lengths through gw.
func NewAnniversaryCalculator(gw Gateway, policy AnniversaryPolicy) *AnniversaryCalculator {
	return &AnniversaryCalculator{gw: gw, policy: policy}
}

// Policy returns the calculator's policy.
func (c *AnniversaryCalculator) Policy() AnniversaryPolicy { return c.policy }

// AddYears keeps the day and month of h and moves it by years Hebrew years.
// Months and days missing from the target year are remapped per the policy.
func (c *AnniversaryCalculator) AddYears(ctx context.Context, h HebrewDate, years int) (HebrewDate, error) {
	if !h.Month.Valid() || h.Day < 1 || h.Day > 30 || h.Year < 1 {
		return HebrewDate{}, fmt.Errorf("%w: %d/%d/%d", ErrInvalidHebrewDate, h.Day, h.Month, h.Year)
	}

	target := HebrewDate{Day: h.Day, Month: h.Month, Year: h.Year + years}
	if target.Year < 1 {
		return HebrewDate{}, fmt.Errorf("%w: year %d", ErrInvalidHebrewDate, target.Year)
	}

	if !MonthExists(target.Month, target.Year) {
		switch c.policy.LeapMonth {
		case FoldIntoAdar:
			target.Month = Adar1
		default:
			return HebrewDate{}, fmt.Errorf("%w: %s in %d", ErrMonthMissing, h.Month.Name(h.Year), target.Year)
		}
	}

	length, err := c.MonthLength(ctx, target.Month, target.Year)
	if err != nil {
		return HebrewDate{}, err
	}
	if target.Day <= length {
		return target, nil
	}

	switch c.policy.ShortMonth {
	case RollForward:
		month, year := nextMonth(target.Month, target.Year)
		return HebrewDate{Day: 1, Month: month, Year: year}, nil
	case ClampToLastDay:
		target.Day = length
		return target, nil
	default:
		return HebrewDate{}, fmt.Errorf("%w: day %d of %s %d", ErrDayMissing, target.Day, target.Month.Name(target.Year), target.Year)
	}
}

// MonthLength returns the number of days in month m of year.
// Only Cheshvan and Kislev vary with the year length; those are measured by
// converting month starts through the gateway.
func (c *AnniversaryCalculator) MonthLength(ctx context.Context, m HebrewMonth, year int) (int, error) {
	switch m {
	case Nisan, Sivan, Av, Tishrei, Shvat:
		return 30, nil
	case Iyyar, Tamuz, Elul, Tevet, Adar2:
		return 29, nil
	case Adar1:
		if IsLeapYear(year) {
			return 30, nil
		}
		return 29, nil
	case Cheshvan, Kislev:
		start, err := c.gw.HebrewToCivil(ctx, HebrewDate{Day: 1, Month: m, Year: year})
		if err != nil {
			return 0, fmt.Errorf("measure %s %d: %w", m.Name(year), year, err)
		}
		end, err := c.gw.HebrewToCivil(ctx, HebrewDate{Day: 1, Month: m + 1, Year: year})
		if err != nil {
			return 0, fmt.Errorf("measure %s %d: %w", m.Name(year), year, err)
		}
		return start.DaysUntil(end), nil
	default:
		return 0, fmt.Errorf("%w: month %d", ErrInvalidHebrewDate, int(m))
	}
}

// nextMonth returns the month following m in calendar order.
func nextMonth(m HebrewMonth, year int) (HebrewMonth, int) {
	switch {
	case m == Elul:
		return Tishrei, year + 1
	case m == Adar2, m == Adar1 && !IsLeapYear(year):
		return Nisan, year
	default:
		return m + 1, year
	}
}
