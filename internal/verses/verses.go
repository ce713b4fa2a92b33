// Package verses selects and groups the practice verses of a Torah portion.
package verses

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
)

// DefaultGroupSize is the chunk size used when none is given.
const DefaultGroupSize = 3

// ErrInvalidCorpus is returned when a verse corpus cannot be decoded or a
// verse is missing required fields.
var ErrInvalidCorpus = errors.New("invalid verse corpus")

// Verse is one verse of the practice corpus.
type Verse struct {
	ID              int    `json:"id"`
	Book            string `json:"book"`
	Chapter         int    `json:"chapter"`
	Number          int    `json:"pasuk"`
	Hebrew          string `json:"hebrew"`
	Transliteration string `json:"transliteration"`
	Translation     string `json:"translation"`
	Portion         string `json:"parasha"`
	AudioURL        string `json:"audioUrl,omitempty"`
}

// Audio returns the verse's recording URL, defaulting to the practice
// proxy's reference audio route.
func (v Verse) Audio() string {
	if v.AudioURL != "" {
		return v.AudioURL
	}
	return fmt.Sprintf("/api/v1/practice/audio/%d_%d", v.Chapter, v.Number)
}

// Ref renders the verse reference, e.g. "Genesis 25:19".
func (v Verse) Ref() string {
	return fmt.Sprintf("%s %d:%d", v.Book, v.Chapter, v.Number)
}

// Validate checks the fields every verse must carry.
func (v Verse) Validate() error {
	var errs []error
	if v.ID <= 0 {
		errs = append(errs, errors.New("id must be positive"))
	}
	if v.Chapter <= 0 || v.Number <= 0 {
		errs = append(errs, errors.New("chapter and pasuk must be positive"))
	}
	if v.Hebrew == "" {
		errs = append(errs, errors.New("hebrew text is required"))
	}
	if v.Portion == "" {
		errs = append(errs, errors.New("parasha is required"))
	}
	return errors.Join(errs...)
}

// Decode reads a JSON array of verses and validates each one.
func Decode(r io.Reader) ([]Verse, error) {
	var vs []Verse
	if err := json.NewDecoder(r).Decode(&vs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCorpus, err)
	}
	for i, v := range vs {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%w: verse %d (id %d): %v", ErrInvalidCorpus, i, v.ID, err)
		}
	}
	return vs, nil
}

// Select returns the verses whose portion matches name under
// parasha.Normalize, in corpus order. An unknown name yields an empty slice.
func Select(corpus []Verse, name string) []Verse {
	key := parasha.Normalize(name)
	out := []Verse{}
	if key == "" {
		return out
	}
	for _, v := range corpus {
		if parasha.Normalize(v.Portion) == key {
			out = append(out, v)
		}
	}
	return out
}

// SelectEntry returns the verses labelled with any name of e: its English
// name, an alias or its Hebrew name.
func SelectEntry(corpus []Verse, e parasha.Entry) []Verse {
	keys := map[string]bool{
		parasha.Normalize(e.English): true,
		parasha.Normalize(e.Hebrew):  true,
	}
	for _, a := range e.Aliases {
		keys[parasha.Normalize(a)] = true
	}

	out := []Verse{}
	for _, v := range corpus {
		if keys[parasha.Normalize(v.Portion)] {
			out = append(out, v)
		}
	}
	return out
}

// SelectReading concatenates the selections of each entry in reading order.
func SelectReading(corpus []Verse, entries []parasha.Entry) []Verse {
	out := []Verse{}
	for _, e := range entries {
		out = append(out, SelectEntry(corpus, e)...)
	}
	return out
}

// Group splits vs into consecutive chunks of size verses; only the last
// chunk may be shorter. size <= 0 selects DefaultGroupSize.
func Group(vs []Verse, size int) [][]Verse {
	if size <= 0 {
		size = DefaultGroupSize
	}
	groups := make([][]Verse, 0, (len(vs)+size-1)/size)
	for start := 0; start < len(vs); start += size {
		end := min(start+size, len(vs))
		groups = append(groups, vs[start:end:end])
	}
	return groups
}
