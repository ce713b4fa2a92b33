package parasha

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// apostrophes are dropped during normalization so that "B'shalach" and
// "Bshalach" compare equal.
const apostrophes = "'’‘׳״`"

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)), // niqqud, cantillation, accents
			runes.Remove(runes.Predicate(func(r rune) bool {
				return strings.ContainsRune(apostrophes, r)
			})),
			cases.Fold(),
			norm.NFC,
		)
	},
}

// Normalize returns the comparison key of a portion name: case folded,
// apostrophes and Hebrew points removed, whitespace collapsed and trimmed.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, strings.ToValidUTF8(name, ""))
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		out = strings.ToLower(name)
	}
	return strings.Join(strings.Fields(out), " ")
}
