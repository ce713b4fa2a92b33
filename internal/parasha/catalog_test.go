package parasha

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Achrei Mot":        "achrei mot",
		"  ACHREI   MOT  ":  "achrei mot",
		"B'shalach":         "bshalach",
		"B’shalach":         "bshalach",
		"Beha'alotcha":      "behaalotcha",
		"בְּרֵאשִׁית":       "בראשית",
		"פרשת בשלח":         "פרשת בשלח",
		"ה׳":                "ה",
		"":                  "",
		"Lech-Lecha":        "lech-lecha",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Equal(t, 54, c.Len())

	all := c.All()
	for i, e := range all {
		assert.Equal(t, i+1, e.Number, "entries are in reading order")
		assert.NotEmpty(t, e.Hebrew, e.English)
		assert.NotEmpty(t, e.Range, e.English)
	}
	assert.Equal(t, "Bereshit", all[0].English)
	assert.Equal(t, "Vezot Haberakhah", all[53].English)

	all[0].English = "mutated"
	assert.Equal(t, "Bereshit", c.All()[0].English, "All returns a copy")
}

func TestLookup(t *testing.T) {
	c := Default()

	tests := []struct {
		name   string
		want   string
		hebrew string
	}{
		{"Achrei Mot", "Achrei Mot", "אחרי מות"},
		{"achrei mot", "Achrei Mot", "אחרי מות"},
		{"Acharei Mot", "Achrei Mot", "אחרי מות"},
		{"B'shalach", "Beshalach", "בשלח"},
		{"Bshalach", "Beshalach", "בשלח"},
		{"Bechukotai", "Bechukotai", "בחקתי"},
		{"Lech-Lecha", "Lech-Lecha", "לך לך"},
		{"Sh'lach", "Sh'lach", "שלח"},
		{"shlach", "Sh'lach", "שלח"},
	}
	for _, tt := range tests {
		e, ok := c.Lookup(tt.name)
		require.True(t, ok, "Lookup(%q)", tt.name)
		assert.Equal(t, tt.want, e.English)
		assert.Equal(t, tt.hebrew, e.Hebrew)
	}

	_, ok := c.Lookup("Vayakhel-Pekudei")
	assert.False(t, ok, "combined names are not split by Lookup")
	_, ok = c.Lookup("Pesach VII")
	assert.False(t, ok)
}

func TestLookupHebrew(t *testing.T) {
	c := Default()

	e, ok := c.LookupHebrew("בְּחֻקֹּתַי")
	require.True(t, ok, "points are ignored")
	assert.Equal(t, "Bechukotai", e.English)

	_, ok = c.LookupHebrew("Bechukotai")
	assert.False(t, ok)

	e, ok = c.LookupHebrew(" וזאת  הברכה ")
	require.True(t, ok)
	assert.Equal(t, 54, e.Number)
}

func TestLookupReading(t *testing.T) {
	c := Default()

	tests := []struct {
		name string
		want []string
		ok   bool
	}{
		{"Bechukotai", []string{"Bechukotai"}, true},
		{"Lech-Lecha", []string{"Lech-Lecha"}, true},
		{"Vayakhel-Pekudei", []string{"Vayakhel", "Pekudei"}, true},
		{"Achrei Mot-Kedoshim", []string{"Achrei Mot", "Kedoshim"}, true},
		{"Nitzavim-Vayeilech", []string{"Nitzavim", "Vayeilech"}, true},
		{"תזריע-מצורע", []string{"Tazria", "Metzora"}, true},
		{"Vayakhel-Purim", nil, false},
		{"Shabbat Shekalim", nil, false},
	}
	for _, tt := range tests {
		entries, ok := c.LookupReading(tt.name)
		assert.Equal(t, tt.ok, ok, "LookupReading(%q)", tt.name)
		if !tt.ok {
			assert.Nil(t, entries)
			continue
		}
		var got []string
		for _, e := range entries {
			got = append(got, e.English)
		}
		assert.Equal(t, tt.want, got)
	}

	entries, _ := c.LookupReading("Matot-Masei")
	assert.Equal(t, "Matot-Masei", JoinEnglish(entries))
	assert.Equal(t, "מטות-מסעי", JoinHebrew(entries))
}

func TestParseRejectsDuplicates(t *testing.T) {
	data := []byte(`
portions:
  - {number: 1, english: Bo, hebrew: בא, book: Exodus}
  - {number: 2, english: "b'o", hebrew: בוא, book: Exodus}
`)
	_, err := Parse(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, data := range []string{
		"",
		"portions: []",
		"portions: [{number: 1, english: Bo}]",
		"portions: {",
	} {
		_, err := Parse([]byte(data))
		assert.ErrorIs(t, err, ErrInvalidCatalog, "Parse(%q)", data)
	}
}

func TestEntryReference(t *testing.T) {
	e, ok := Default().Lookup("Noach")
	require.True(t, ok)
	assert.Equal(t, "Genesis 6:9-11:32", e.Reference())
	assert.Equal(t, "Exodus", Entry{Book: "Exodus"}.Reference())
}
