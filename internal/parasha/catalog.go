// Package parasha holds the catalog of the 54 weekly Torah portions and the
// name matching used to find them.
package parasha

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var (
	// ErrInvalidCatalog is returned when catalog data is malformed.
	ErrInvalidCatalog = errors.New("invalid portion catalog")

	// ErrDuplicateName is returned when two entries share a name or alias
	// after normalization.
	ErrDuplicateName = errors.New("duplicate portion name")
)

// Entry is one weekly portion.
type Entry struct {
	Number  int      `yaml:"number" json:"number"`
	English string   `yaml:"english" json:"english"`
	Hebrew  string   `yaml:"hebrew" json:"hebrew"`
	Book    string   `yaml:"book" json:"book"`
	Range   string   `yaml:"range" json:"range"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// Reference renders the portion's span, e.g. "Genesis 1:1-6:8".
func (e Entry) Reference() string {
	if e.Range == "" {
		return e.Book
	}
	return e.Book + " " + e.Range
}

type catalogFile struct {
	Portions []Entry `yaml:"portions"`
}

// Catalog maps portion names to entries. It is read-only after construction
// and safe for concurrent use.
type Catalog struct {
	entries  []Entry
	byName   map[string]int
	byHebrew map[string]int
}

// Parse builds a catalog from YAML. Every English name, alias and Hebrew
// name must be unique under Normalize.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(f.Portions) == 0 {
		return nil, fmt.Errorf("%w: no portions", ErrInvalidCatalog)
	}

	c := &Catalog{
		entries:  f.Portions,
		byName:   make(map[string]int),
		byHebrew: make(map[string]int),
	}

	var errs []error
	for i, e := range c.entries {
		if strings.TrimSpace(e.English) == "" || strings.TrimSpace(e.Hebrew) == "" {
			errs = append(errs, fmt.Errorf("%w: entry %d has no name", ErrInvalidCatalog, i+1))
			continue
		}
		for _, name := range append([]string{e.English}, e.Aliases...) {
			if err := register(c.byName, name, i, c.entries); err != nil {
				errs = append(errs, err)
			}
		}
		if err := register(c.byHebrew, e.Hebrew, i, c.entries); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func register(index map[string]int, name string, i int, entries []Entry) error {
	key := Normalize(name)
	if prev, ok := index[key]; ok && prev != i {
		return fmt.Errorf("%w: %q (%s and %s)", ErrDuplicateName, name, entries[prev].English, entries[i].English)
	}
	index[key] = i
	return nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return Parse(catalogYAML)
})

// Default returns the embedded catalog of the 54 portions.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("embedded portion catalog: %v", err))
	}
	return c
}

// Lookup finds a single portion by English name or alias. Combined-Shabbat
// names such as "Vayakhel-Pekudei" are not split; use LookupReading for those.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[Normalize(name)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// LookupHebrew finds a portion by its Hebrew name. Vowel points are ignored.
func (c *Catalog) LookupHebrew(name string) (Entry, bool) {
	i, ok := c.byHebrew[Normalize(name)]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// LookupReading resolves the name of a Shabbat reading to one or more
// entries in reading order. The whole name is tried first so hyphenated
// single portions like "Lech-Lecha" resolve; otherwise the name is split on
// "-" and every part must resolve.
func (c *Catalog) LookupReading(name string) ([]Entry, bool) {
	if e, ok := c.Lookup(name); ok {
		return []Entry{e}, true
	}
	if e, ok := c.LookupHebrew(name); ok {
		return []Entry{e}, true
	}

	parts := strings.Split(name, "-")
	if len(parts) < 2 {
		return nil, false
	}
	out := make([]Entry, 0, len(parts))
	for _, p := range parts {
		e, ok := c.Lookup(p)
		if !ok {
			if e, ok = c.LookupHebrew(p); !ok {
				return nil, false
			}
		}
		out = append(out, e)
	}
	return out, true
}

// All returns every entry in reading order.
func (c *Catalog) All() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of portions in the catalog.
func (c *Catalog) Len() int { return len(c.entries) }

// JoinEnglish renders a reading's English name, e.g. "Vayakhel-Pekudei".
func JoinEnglish(entries []Entry) string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.English
	}
	return strings.Join(names, "-")
}

// JoinHebrew renders a reading's Hebrew name, e.g. "ויקהל-פקודי".
func JoinHebrew(entries []Entry) string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Hebrew
	}
	return strings.Join(names, "-")
}
