package calendar

import (
	"context"
	"fmt"
	"log/slog"
)

// BirthInput is one user submission.
type BirthInput struct {
	BirthDate       string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	BornAfterSunset bool   `json:"born_after_sunset"`
	IsraelSchedule  bool   `json:"israel_schedule"`
}

// ResolutionResult is everything derived from one BirthInput.
type ResolutionResult struct {
	CivilBirth        CivilDate  `json:"civil_birth"`
	BornAfterSunset   bool       `json:"born_after_sunset"`
	IsraelSchedule    bool       `json:"israel_schedule"`
	HebrewBirth       HebrewDate `json:"hebrew_birth"`
	HebrewAnniversary HebrewDate `json:"hebrew_anniversary"`
	CivilAnniversary  CivilDate  `json:"civil_anniversary"`
	ShabbatDate       CivilDate  `json:"shabbat_date"`
	WeeklyPortions    []string   `json:"weekly_portions"`
	OtherReadings     []string   `json:"other_readings"`
}

// Schedule names the reading schedule the result was computed for.
func (r ResolutionResult) Schedule() string {
	return Locale{Israel: r.IsraelSchedule}.Schedule()
}

// HasWeeklyPortion reports whether a regular weekly portion is read.
func (r ResolutionResult) HasWeeklyPortion() bool {
	return len(r.WeeklyPortions) > 0
}

// ErrorKind tags a failed resolution.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindCalendarConversion ErrorKind = "CALENDAR_CONVERSION"
)

// Failure describes why a resolution produced no result.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// Outcome is a tagged resolution result: exactly one of Result and Failure is set.
type Outcome struct {
	Result  *ResolutionResult
	Failure *Failure
}

// OK reports whether the resolution succeeded.
func (o Outcome) OK() bool { return o.Failure == nil && o.Result != nil }

// Err returns the failure as an error, or nil on success.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

func failed(kind ErrorKind, err error) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Message: err.Error(), Err: err}}
}

// Pipeline turns a BirthInput into a ResolutionResult.
type Pipeline struct {
	gw       Gateway
	years    *AnniversaryCalculator
	portions *PortionResolver
	logger   *slog.Logger
}

// NewPipeline wires the pipeline stages around a gateway.
func NewPipeline(gw Gateway, policy AnniversaryPolicy, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gw:       gw,
		years:    NewAnniversaryCalculator(gw, policy),
		portions: NewPortionResolver(gw),
		logger:   logger,
	}
}

// Resolve runs the full resolution for one submission.
// It never returns a partially populated result.
func (p *Pipeline) Resolve(ctx context.Context, in BirthInput) Outcome {
	civil, err := ParseCivilDate(in.BirthDate)
	if err != nil {
		return failed(KindInvalidInput, err)
	}

	// The Hebrew day starts at sunset.
	effective := civil
	if in.BornAfterSunset {
		effective = civil.AddDays(1)
	}

	hebrewBirth, err := p.gw.CivilToHebrew(ctx, effective)
	if err != nil {
		return failed(KindCalendarConversion, fmt.Errorf("convert %s to hebrew: %w", effective, err))
	}

	anniversary, err := p.years.AddYears(ctx, hebrewBirth, BarMitzvahYears)
	if err != nil {
		return failed(KindCalendarConversion, fmt.Errorf("add %d years to %s: %w", BarMitzvahYears, hebrewBirth, err))
	}

	civilAnniversary, err := p.gw.HebrewToCivil(ctx, anniversary)
	if err != nil {
		return failed(KindCalendarConversion, fmt.Errorf("convert %s to civil: %w", anniversary, err))
	}

	shabbat := NextShabbatOnOrAfter(civilAnniversary)

	readings, err := p.portions.Resolve(ctx, shabbat, in.IsraelSchedule)
	if err != nil {
		return failed(KindCalendarConversion, err)
	}

	p.logger.DebugContext(ctx, "birth date resolved",
		slog.String("civil_birth", civil.String()),
		slog.String("hebrew_birth", hebrewBirth.String()),
		slog.String("hebrew_anniversary", anniversary.String()),
		slog.String("shabbat", shabbat.String()),
		slog.Any("weekly_portions", readings.WeeklyPortions),
	)

	return Outcome{Result: &ResolutionResult{
		CivilBirth:        civil,
		BornAfterSunset:   in.BornAfterSunset,
		IsraelSchedule:    in.IsraelSchedule,
		HebrewBirth:       hebrewBirth,
		HebrewAnniversary: anniversary,
		CivilAnniversary:  civilAnniversary,
		ShabbatDate:       shabbat,
		WeeklyPortions:    readings.WeeklyPortions,
		OtherReadings:     readings.OtherReadings,
	}}
}
