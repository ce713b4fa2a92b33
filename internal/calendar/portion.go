package calendar

import (
	"context"
	"fmt"
	"strings"
)

// PortionPrefix marks weekly-portion events in the service's descriptions.
const PortionPrefix = "Parashat "

// noiseMarkers are description fragments that never describe a reading.
var noiseMarkers = []string{"candle", "havdalah", "omer"}

// noiseCategories are service categories that never describe a reading.
var noiseCategories = map[string]bool{
	"candles":  true,
	"havdalah": true,
	"omer":     true,
	"zmanim":   true,
}

// Readings holds what is read on a Shabbat. WeeklyPortions is filled when a
// regular portion applies; otherwise OtherReadings lists the festival or
// special-day events that replace it.
type Readings struct {
	WeeklyPortions []string `json:"weekly_portions"`
	OtherReadings  []string `json:"other_readings"`
}

// PortionResolver looks up the reading of a single civil date.
type PortionResolver struct {
	gw Gateway
}

// NewPortionResolver creates a resolver backed by gw.
func NewPortionResolver(gw Gateway) *PortionResolver {
	return &PortionResolver{gw: gw}
}

// Resolve returns the weekly portion names for date, or the fallback event
// descriptions when no weekly portion is read. A date with no events at all
// resolves to two empty lists.
func (r *PortionResolver) Resolve(ctx context.Context, date CivilDate, israel bool) (Readings, error) {
	events, err := r.gw.EventsOnDate(ctx, date, Locale{Israel: israel})
	if err != nil {
		return Readings{}, fmt.Errorf("events on %s: %w", date, err)
	}
	return ClassifyEvents(events), nil
}

// ClassifyEvents splits events into weekly portions and fallback readings.
func ClassifyEvents(events []Event) Readings {
	out := Readings{WeeklyPortions: []string{}, OtherReadings: []string{}}

	for _, ev := range events {
		if name, ok := strings.CutPrefix(ev.Description, PortionPrefix); ok {
			if name = strings.TrimSpace(name); name != "" {
				out.WeeklyPortions = append(out.WeeklyPortions, name)
			}
		}
	}
	if len(out.WeeklyPortions) > 0 {
		return out
	}

	for _, ev := range events {
		if isNoise(ev) {
			continue
		}
		out.OtherReadings = append(out.OtherReadings, ev.Description)
	}
	return out
}

func isNoise(ev Event) bool {
	if ev.Description == "" || strings.HasPrefix(ev.Description, PortionPrefix) {
		return true
	}
	if noiseCategories[strings.ToLower(ev.Category)] {
		return true
	}
	lower := strings.ToLower(ev.Description)
	for _, marker := range noiseMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
