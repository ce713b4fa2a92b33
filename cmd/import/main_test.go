package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AlmogShaul/bar-mitzva/internal/database"
	"github.com/AlmogShaul/bar-mitzva/internal/logger"
	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
	"github.com/AlmogShaul/bar-mitzva/internal/verses"
)

const sampleCorpus = `[
  {"id": 1, "book": "Leviticus", "chapter": 26, "pasuk": 3, "hebrew": "אִם־בְּחֻקֹּתַי תֵּלֵכוּ", "transliteration": "Im bechukotai telechu", "translation": "If you follow My laws", "parasha": "Bechukotai"},
  {"id": 2, "book": "Leviticus", "chapter": 26, "pasuk": 4, "hebrew": "וְנָתַתִּי גִשְׁמֵיכֶם בְּעִתָּם", "transliteration": "Venatati gishmeichem be'itam", "translation": "I will grant your rains in their season", "parasha": "Bechukotai", "audioUrl": "/audio/custom.m4a"},
  {"id": 3, "book": "Genesis", "chapter": 1, "pasuk": 1, "hebrew": "בְּרֵאשִׁית", "transliteration": "Bereshit", "translation": "In the beginning", "parasha": "Mystery"}
]`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "torah.json")
	dbPath := filepath.Join(dir, "test.db")
	if err := os.WriteFile(jsonPath, []byte(sampleCorpus), 0o644); err != nil {
		t.Fatal(err)
	}

	// Twice: the second run must replace, not duplicate.
	for i := 0; i < 2; i++ {
		if err := run(jsonPath, dbPath, logger.Discard()); err != nil {
			t.Fatalf("run #%d error = %v", i+1, err)
		}
	}

	db, err := database.Open(database.DefaultConfig(dbPath), logger.Discard())
	if err != nil {
		t.Fatalf("reopen database: %v", err)
	}
	defer db.Close()

	vs, err := db.ListVersesByPortion(t.Context(), "bechukotai")
	if err != nil {
		t.Fatalf("ListVersesByPortion() error = %v", err)
	}
	if len(vs) != 2 {
		t.Fatalf("got %d verses, want 2", len(vs))
	}
	if vs[1].AudioURL != "/audio/custom.m4a" {
		t.Errorf("audio url = %q", vs[1].AudioURL)
	}
}

func TestRun_InvalidCorpus(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "torah.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"id": 1, "chapter": 1, "pasuk": 1}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := run(jsonPath, filepath.Join(dir, "test.db"), logger.Discard()); err == nil {
		t.Error("run() accepted a verse without text or portion")
	}
}

func TestSummarize(t *testing.T) {
	corpus := []verses.Verse{
		{ID: 1, Portion: "Bechukotai"},
		{ID: 2, Portion: "bechukotai"},
		{ID: 3, Portion: "Behar-Bechukotai"},
		{ID: 4, Portion: "Mystery"},
		{ID: 5, Portion: "Mystery"},
	}

	stats := summarize(corpus, parasha.Default())
	if stats.portions["bechukotai"] != 2 {
		t.Errorf("bechukotai count = %d, want 2", stats.portions["bechukotai"])
	}
	if len(stats.unknown) != 1 || stats.unknown[0] != "Mystery" {
		t.Errorf("unknown = %v, want [Mystery]", stats.unknown)
	}
}

func TestVerifyPortions(t *testing.T) {
	db, err := database.Open(database.DefaultConfig(filepath.Join(t.TempDir(), "test.db")), logger.Discard())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if _, err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	v := verses.Verse{ID: 1, Book: "Leviticus", Chapter: 26, Number: 3, Hebrew: "אִם", Portion: "Bechukotai"}
	if err := db.UpsertVerse(t.Context(), v); err != nil {
		t.Fatalf("UpsertVerse() error = %v", err)
	}

	short, err := verifyPortions(t.Context(), db, corpusStats{portions: map[string]int{"bechukotai": 1}})
	if err != nil || len(short) != 0 {
		t.Errorf("complete import: short = %v, err = %v", short, err)
	}

	short, err = verifyPortions(t.Context(), db, corpusStats{portions: map[string]int{"bechukotai": 2, "behar": 1}})
	if err != nil {
		t.Fatalf("verifyPortions() error = %v", err)
	}
	want := []string{"bechukotai: stored 1 of 2", "behar: stored 0 of 1"}
	if len(short) != 2 || short[0] != want[0] || short[1] != want[1] {
		t.Errorf("short = %v, want %v", short, want)
	}
}
