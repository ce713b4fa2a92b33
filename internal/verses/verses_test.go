package verses

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
)

func verse(id int, portion string, chapter, number int) Verse {
	return Verse{ID: id, Book: "Genesis", Chapter: chapter, Number: number, Hebrew: "א", Portion: portion}
}

func testCorpus() []Verse {
	return []Verse{
		verse(1, "Toldot", 25, 19),
		verse(2, "Toldot", 25, 20),
		verse(3, "Vayakhel", 35, 1),
		verse(4, "Toldot", 25, 21),
		verse(5, "Pekudei", 38, 21),
		verse(6, "toldot", 25, 22),
		verse(7, "Toldot", 25, 23),
		verse(8, "B'shalach", 13, 17),
		verse(9, "Toldot", 25, 24),
		verse(10, "Toldot", 25, 25),
		verse(11, "Vayakhel", 35, 2),
	}
}

func ids(vs []Verse) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestSelect(t *testing.T) {
	corpus := testCorpus()

	assert.Equal(t, []int{1, 2, 4, 6, 7, 9, 10}, ids(Select(corpus, "Toldot")))
	assert.Equal(t, []int{8}, ids(Select(corpus, "Bshalach")))

	unknown := Select(corpus, "Haftarah")
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)
	assert.Empty(t, Select(corpus, ""))
}

func TestSelectReading(t *testing.T) {
	corpus := testCorpus()
	entries, ok := parasha.Default().LookupReading("Vayakhel-Pekudei")
	require.True(t, ok)

	assert.Equal(t, []int{3, 11, 5}, ids(SelectReading(corpus, entries)))
}

func TestSelectEntryMatchesAliases(t *testing.T) {
	e, ok := parasha.Default().Lookup("Beshalach")
	require.True(t, ok)
	assert.Equal(t, []int{8}, ids(SelectEntry(testCorpus(), e)))
}

func TestGroup(t *testing.T) {
	vs := Select(testCorpus(), "Toldot")
	require.Len(t, vs, 7)

	groups := Group(vs, 3)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 3)
	assert.Len(t, groups[1], 3)
	assert.Len(t, groups[2], 1)

	var flat []Verse
	for _, g := range groups {
		flat = append(flat, g...)
	}
	assert.Equal(t, vs, flat, "concatenated groups reconstruct the input")

	assert.Len(t, Group(vs, 0), 3, "non-positive size uses the default")
	assert.Len(t, Group(vs, 7), 1)
	assert.Len(t, Group(vs, 100), 1)
	assert.Empty(t, Group(nil, 3))
}

func TestGroupSizes(t *testing.T) {
	vs := testCorpus()
	for size := 1; size <= len(vs)+1; size++ {
		groups := Group(vs, size)
		for i, g := range groups {
			if i < len(groups)-1 {
				assert.Len(t, g, size)
			} else {
				assert.LessOrEqual(t, len(g), size)
				assert.NotEmpty(t, g)
			}
		}
	}
}

func TestVerseAudio(t *testing.T) {
	v := verse(1, "Toldot", 25, 19)
	assert.Equal(t, "/api/v1/practice/audio/25_19", v.Audio())

	v.AudioURL = "https://cdn.example/25_19.mp3"
	assert.Equal(t, "https://cdn.example/25_19.mp3", v.Audio())
	assert.Equal(t, "Genesis 25:19", v.Ref())
}

func TestDecode(t *testing.T) {
	input := `[
		{"id": 1, "book": "Genesis", "chapter": 25, "pasuk": 19, "hebrew": "וְאֵלֶּה תּוֹלְדֹת יִצְחָק", "transliteration": "Ve'eleh toldot Yitzchak", "translation": "And these are the generations of Isaac", "parasha": "Toldot", "audioUrl": "/audio/25_19.m4a"},
		{"id": 2, "book": "Genesis", "chapter": 25, "pasuk": 20, "hebrew": "וַיְהִי יִצְחָק", "transliteration": "", "translation": "", "parasha": "Toldot"}
	]`

	vs, err := Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, 19, vs[0].Number)
	assert.Equal(t, "Toldot", vs[1].Portion)
	assert.Empty(t, vs[1].AudioURL)

	_, err = Decode(strings.NewReader(`[{"id": 0, "chapter": 1, "pasuk": 1, "hebrew": "א", "parasha": "Bo"}]`))
	assert.ErrorIs(t, err, ErrInvalidCorpus)

	_, err = Decode(strings.NewReader(`{"id": 1}`))
	assert.ErrorIs(t, err, ErrInvalidCorpus)
}

func TestSelector_MemoizedMatchesFresh(t *testing.T) {
	corpus := testCorpus()
	s := NewSelector(corpus, parasha.Default())

	first := s.Groups("Toldot", 3)
	second := s.Groups("toldot", 3)
	assert.Equal(t, Group(Select(corpus, "Toldot"), 3), first)
	assert.Equal(t, first, second)

	assert.Equal(t, []int{3, 11, 5}, ids(s.Verses("Vayakhel-Pekudei")))
	assert.Equal(t, []int{8}, ids(s.Verses("B'shalach")))
	assert.Empty(t, s.Verses("Shabbat Shekalim"))
}

func TestSelector_Replace(t *testing.T) {
	s := NewSelector(testCorpus(), parasha.Default())
	require.Len(t, s.Verses("Toldot"), 7)

	s.Replace([]Verse{verse(20, "Toldot", 26, 1)})
	assert.Equal(t, []int{20}, ids(s.Verses("Toldot")))
	assert.Equal(t, 1, s.Len())
}

func TestSelector_Concurrent(t *testing.T) {
	s := NewSelector(testCorpus(), parasha.Default())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(size int) {
			defer wg.Done()
			g := s.Groups("Toldot", size)
			assert.NotEmpty(t, g)
		}(i%4 + 1)
	}
	wg.Wait()
}

func TestSelector_MemoBounded(t *testing.T) {
	s := NewSelector(testCorpus(), parasha.Default())

	for i := 0; i < 500; i++ {
		name := "no-such-portion-" + strings.Repeat("x", i%7) + string(rune('a'+i%26))
		assert.Empty(t, s.Verses(name))
		assert.Empty(t, s.Groups(name, i%MaxGroupSize+1))
	}
	assert.Empty(t, s.flat, "unknown names must not be memoized")
	assert.Empty(t, s.groups, "unknown names must not be memoized")

	assert.Len(t, s.Groups("Toldot", MaxGroupSize+1), 1)
	assert.Equal(t, []int{3, 11, 3, 11}, ids(s.Verses("Vayakhel-Vayakhel")))
	assert.Equal(t, []int{5, 3, 11}, ids(s.Verses("Pekudei-Vayakhel")))
	assert.Empty(t, s.flat)
	assert.Empty(t, s.groups)

	s.Verses("Toldot")
	s.Verses("toldot")
	s.Verses("TOLDOT")
	s.Groups("Toldot", 3)
	s.Groups("toldot", 3)
	assert.Len(t, s.flat, 1, "aliases share one memo entry")
	assert.Len(t, s.groups, 1)

	s.Verses("Vayakhel-Pekudei")
	assert.Len(t, s.flat, 2)
}
