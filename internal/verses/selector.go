package verses

import (
	"strconv"
	"sync"

	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
)

// MaxGroupSize is the largest group size the selector memoizes.
const MaxGroupSize = 50

type memoKey struct {
	reading string
	size    int
}

// Selector serves portion selections from a fixed corpus. Readings the
// catalog resolves to one portion, or to two adjacent portions read
// together, are memoized by catalog number and group size; anything else is
// recomputed on every call so arbitrary names cannot grow the memo.
// Returned slices are shared between callers and must not be modified.
type Selector struct {
	catalog *parasha.Catalog

	mu     sync.Mutex
	corpus []Verse
	flat   map[string][]Verse
	groups map[memoKey][][]Verse
}

// NewSelector creates a selector over corpus. Portion names are resolved
// through catalog, so aliases and combined readings select the right verses.
func NewSelector(corpus []Verse, catalog *parasha.Catalog) *Selector {
	return &Selector{
		catalog: catalog,
		corpus:  corpus,
		flat:    make(map[string][]Verse),
		groups:  make(map[memoKey][][]Verse),
	}
}

// Verses returns the verses of the named reading.
func (s *Selector) Verses(portion string) []Verse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versesLocked(portion)
}

// Groups returns the verses of the named reading chunked by size.
func (s *Selector) Groups(portion string, size int) [][]Verse {
	if size <= 0 {
		size = DefaultGroupSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reading, ok := s.readingKey(portion)
	if !ok || size > MaxGroupSize {
		return Group(s.versesLocked(portion), size)
	}
	key := memoKey{reading: reading, size: size}
	if g, ok := s.groups[key]; ok {
		return g
	}
	g := Group(s.versesLocked(portion), size)
	s.groups[key] = g
	return g
}

// Replace swaps in a new corpus and drops every memoized selection.
func (s *Selector) Replace(corpus []Verse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = corpus
	clear(s.flat)
	clear(s.groups)
}

// Len returns the number of verses in the corpus.
func (s *Selector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.corpus)
}

func (s *Selector) versesLocked(portion string) []Verse {
	entries, ok := s.lookup(portion)
	if !ok {
		return Select(s.corpus, portion)
	}
	key, ok := memoReading(entries)
	if !ok {
		return SelectReading(s.corpus, entries)
	}
	if vs, ok := s.flat[key]; ok {
		return vs
	}
	vs := SelectReading(s.corpus, entries)
	s.flat[key] = vs
	return vs
}

func (s *Selector) readingKey(portion string) (string, bool) {
	entries, ok := s.lookup(portion)
	if !ok {
		return "", false
	}
	return memoReading(entries)
}

func (s *Selector) lookup(portion string) ([]parasha.Entry, bool) {
	if s.catalog == nil {
		return nil, false
	}
	return s.catalog.LookupReading(portion)
}

// memoReading keys a reading by catalog number. Only single portions and
// adjacent pairs qualify.
func memoReading(entries []parasha.Entry) (string, bool) {
	switch {
	case len(entries) == 1:
		return strconv.Itoa(entries[0].Number), true
	case len(entries) == 2 && entries[1].Number == entries[0].Number+1:
		return strconv.Itoa(entries[0].Number) + "-" + strconv.Itoa(entries[1].Number), true
	}
	return "", false
}
