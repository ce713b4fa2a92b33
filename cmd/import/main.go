// Command import loads a torah.json verse corpus into the SQLite database.
//
// Usage:
//
//	go run ./cmd/import -json data/torah.json -db data/barmitzva.db
//
// This tool:
// 1. Parses and validates the verse corpus
// 2. Creates/opens the SQLite database
// 3. Runs migrations to ensure schema is current
// 4. Upserts every verse in a single transaction
//
// The import is idempotent: verses are keyed by id, so rerunning it replaces
// the stored text with the file's.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/AlmogShaul/bar-mitzva/internal/database"
	"github.com/AlmogShaul/bar-mitzva/internal/logger"
	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
	"github.com/AlmogShaul/bar-mitzva/internal/verses"
)

func main() {
	// Parse command line flags
	jsonPath := flag.String("json", "data/torah.json", "Path to the verse corpus JSON file")
	dbPath := flag.String("db", "data/barmitzva.db", "Path to SQLite database")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	// Setup logger
	level := "info"
	if *verbose {
		level = "debug"
	}
	log := logger.New(os.Stdout, level, "text")

	// Run import
	if err := run(*jsonPath, *dbPath, log); err != nil {
		log.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("import complete")
}

func run(jsonPath, dbPath string, log *slog.Logger) error {
	ctx := context.Background()
	startTime := time.Now()

	// =========================================================================
	// Step 1: Read and validate the corpus
	// =========================================================================
	log.Info("reading JSON file", slog.String("path", jsonPath))

	f, err := os.Open(jsonPath)
	if err != nil {
		return fmt.Errorf("open JSON file: %w", err)
	}
	corpus, err := verses.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}

	stats := summarize(corpus, parasha.Default())
	log.Info("parsed JSON",
		slog.Int("verses", len(corpus)),
		slog.Int("portions", len(stats.portions)),
		slog.Int("unknown_portions", len(stats.unknown)),
	)
	for _, name := range stats.unknown {
		log.Warn("portion label not in catalog", slog.String("parasha", name))
	}

	// =========================================================================
	// Step 2: Open database and run migrations
	// =========================================================================
	log.Info("opening database", slog.String("path", dbPath))

	db, err := database.Open(database.DefaultConfig(dbPath), log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	migrated, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations complete", slog.Int("applied", migrated))

	// =========================================================================
	// Step 3: Import verses in a transaction
	// =========================================================================
	log.Info("starting import")

	err = db.WithTx(ctx, func(tx *database.Tx) error {
		for i, v := range corpus {
			if err := tx.UpsertVerse(ctx, v); err != nil {
				return fmt.Errorf("verse %d of %d: %w", i+1, len(corpus), err)
			}
			log.Debug("imported verse", slog.Int("id", v.ID), slog.String("ref", v.Ref()))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import data: %w", err)
	}

	// =========================================================================
	// Step 4: Verify import
	// =========================================================================
	dbStats, err := db.GetCorpusStats(ctx)
	if err != nil {
		return fmt.Errorf("corpus stats: %w", err)
	}

	short, err := verifyPortions(ctx, db, stats)
	if err != nil {
		return fmt.Errorf("verify portions: %w", err)
	}
	if len(short) > 0 {
		return fmt.Errorf("portions stored incompletely: %s", strings.Join(short, "; "))
	}

	elapsed := time.Since(startTime)

	log.Info("import verified",
		slog.Int("stored_verses", dbStats.TotalVerses),
		slog.Int("stored_portions", len(dbStats.Portions)),
		slog.Duration("elapsed", elapsed),
	)

	// Print summary
	fmt.Println()
	fmt.Println("=== Import Summary ===")
	fmt.Printf("Verses in file:      %d\n", len(corpus))
	fmt.Printf("Verses stored:       %d\n", dbStats.TotalVerses)
	for _, pc := range dbStats.Portions {
		fmt.Printf("  %-18s %d\n", pc.Portion, pc.Verses)
	}
	fmt.Printf("Unknown portions:    %d\n", len(stats.unknown))
	fmt.Printf("Time elapsed:        %v\n", elapsed.Round(time.Millisecond))

	return nil
}

type corpusStats struct {
	portions map[string]int
	unknown  []string
}

// summarize counts verses per portion label and lists the labels the catalog
// cannot resolve.
func summarize(corpus []verses.Verse, catalog *parasha.Catalog) corpusStats {
	stats := corpusStats{portions: map[string]int{}}
	for _, v := range corpus {
		key := parasha.Normalize(v.Portion)
		if stats.portions[key] == 0 {
			if _, ok := catalog.LookupReading(v.Portion); !ok {
				stats.unknown = append(stats.unknown, v.Portion)
			}
		}
		stats.portions[key]++
	}
	return stats
}

// verifyPortions reads every imported portion back by its normalized label
// and reports the ones holding fewer verses than the file.
func verifyPortions(ctx context.Context, db *database.DB, stats corpusStats) ([]string, error) {
	keys := make([]string, 0, len(stats.portions))
	for key := range stats.portions {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var short []string
	for _, key := range keys {
		stored, err := db.ListVersesByPortion(ctx, key)
		if err != nil {
			return nil, err
		}
		if want := stats.portions[key]; len(stored) < want {
			short = append(short, fmt.Sprintf("%s: stored %d of %d", key, len(stored), want))
		}
	}
	return short, nil
}
