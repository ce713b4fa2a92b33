// Package selection keeps the one confirmed bar mitzvah portion and persists
// it across restarts.
package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AlmogShaul/bar-mitzva/internal/calendar"
	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
)

// MinBirthYear is the earliest civil birth year for which a resolution can
// be confirmed as a selection.
const MinBirthYear = 1901

var (
	// ErrNotActionable is returned when the birth year precedes MinBirthYear.
	ErrNotActionable = errors.New("birth date too early for portion selection")

	// ErrNoReading is returned when a resolution names no reading at all.
	ErrNoReading = errors.New("resolution names no reading")
)

// Selection is a confirmed reading. Entries is empty when the reading name
// is not in the catalog (a festival reading, say); Name then carries the raw
// name and Hebrew is empty.
type Selection struct {
	Name        string                    `json:"name"`
	English     string                    `json:"english"`
	Hebrew      string                    `json:"hebrew"`
	Entries     []parasha.Entry           `json:"entries"`
	Resolution  calendar.ResolutionResult `json:"resolution"`
	ConfirmedAt time.Time                 `json:"confirmed_at"`
}

// InCatalog reports whether the reading resolved to catalog entries.
func (s Selection) InCatalog() bool { return len(s.Entries) > 0 }

// Build derives a Selection from a resolution. The weekly portion wins;
// without one the first replacing reading is used.
func Build(catalog *parasha.Catalog, r calendar.ResolutionResult) (Selection, error) {
	if r.CivilBirth.Year() < MinBirthYear {
		return Selection{}, fmt.Errorf("%w: born %s", ErrNotActionable, r.CivilBirth)
	}

	var name string
	switch {
	case len(r.WeeklyPortions) > 0:
		name = r.WeeklyPortions[0]
	case len(r.OtherReadings) > 0:
		name = r.OtherReadings[0]
	default:
		return Selection{}, fmt.Errorf("%w on %s", ErrNoReading, r.ShabbatDate)
	}

	sel := Selection{
		Name:       name,
		English:    name,
		Entries:    []parasha.Entry{},
		Resolution: r,
	}
	if catalog != nil {
		if entries, ok := catalog.LookupReading(name); ok {
			sel.Entries = entries
			sel.English = parasha.JoinEnglish(entries)
			sel.Hebrew = parasha.JoinHebrew(entries)
		}
	}
	return sel, nil
}

// Store persists the serialized selection.
type Store interface {
	LoadSelection(ctx context.Context) (data []byte, found bool, err error)
	SaveSelection(ctx context.Context, data []byte) error
	DeleteSelection(ctx context.Context) error
}

// State is the process-wide selection. It is loaded from the store once with
// Init, replaced by Confirm and removed by Clear; it never expires.
type State struct {
	store   Store
	catalog *parasha.Catalog
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	current *Selection
}

// NewState creates an empty state backed by store.
func NewState(store Store, catalog *parasha.Catalog, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		store:   store,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Init loads the persisted selection. A document that no longer decodes is
// logged and ignored rather than failing startup.
func (s *State) Init(ctx context.Context) error {
	data, found, err := s.store.LoadSelection(ctx)
	if err != nil {
		return fmt.Errorf("load selection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !found {
		s.current = nil
		return nil
	}

	var sel Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		s.logger.WarnContext(ctx, "ignoring unreadable persisted selection", slog.Any("error", err))
		s.current = nil
		return nil
	}
	s.current = &sel
	s.logger.InfoContext(ctx, "selection restored",
		slog.String("portion", sel.English),
		slog.String("shabbat", sel.Resolution.ShabbatDate.String()),
	)
	return nil
}

// Current returns the confirmed selection, if any.
func (s *State) Current() (Selection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Selection{}, false
	}
	return *s.current, true
}

// Confirm builds a selection from r, persists it and makes it current.
// The previous selection stays current if persisting fails.
func (s *State) Confirm(ctx context.Context, r calendar.ResolutionResult) (Selection, error) {
	sel, err := Build(s.catalog, r)
	if err != nil {
		return Selection{}, err
	}
	sel.ConfirmedAt = s.now().UTC()

	data, err := json.Marshal(sel)
	if err != nil {
		return Selection{}, fmt.Errorf("encode selection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveSelection(ctx, data); err != nil {
		return Selection{}, fmt.Errorf("save selection: %w", err)
	}
	s.current = &sel

	s.logger.InfoContext(ctx, "selection confirmed",
		slog.String("portion", sel.English),
		slog.Bool("in_catalog", sel.InCatalog()),
	)
	return sel, nil
}

// Clear removes the selection from memory and the store.
func (s *State) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteSelection(ctx); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}
	s.current = nil
	return nil
}
