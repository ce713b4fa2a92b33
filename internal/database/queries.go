package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AlmogShaul/bar-mitzva/internal/parasha"
	"github.com/AlmogShaul/bar-mitzva/internal/verses"
)

// =============================================================================
// Helper Functions
// =============================================================================

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns nil if parsing fails.
func parseTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}

	for _, layout := range []string{
		time.RFC3339,                 // with timezone
		"2006-01-02 15:04:05",        // SQLite datetime('now')
		"2006-01-02T15:04:05.999999", // ISO with microseconds
	} {
		if t, err := time.Parse(layout, ns.String); err == nil {
			return &t
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// =============================================================================
// Verse Queries
// =============================================================================

const upsertVerseSQL = `
	INSERT INTO verses (
		id, book, chapter, pasuk, hebrew, transliteration, translation,
		parasha, parasha_key, audio_url, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT(id) DO UPDATE SET
		book = excluded.book,
		chapter = excluded.chapter,
		pasuk = excluded.pasuk,
		hebrew = excluded.hebrew,
		transliteration = excluded.transliteration,
		translation = excluded.translation,
		parasha = excluded.parasha,
		parasha_key = excluded.parasha_key,
		audio_url = excluded.audio_url,
		updated_at = datetime('now')
`

// UpsertVerse inserts a verse or replaces the stored verse with the same id.
func (db *DB) UpsertVerse(ctx context.Context, v verses.Verse) error {
	return upsertVerse(ctx, db, v)
}

// UpsertVerse inserts or replaces a verse inside the transaction.
func (tx *Tx) UpsertVerse(ctx context.Context, v verses.Verse) error {
	return upsertVerse(ctx, tx, v)
}

func upsertVerse(ctx context.Context, ex execer, v verses.Verse) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("verse %d: %w", v.ID, err)
	}
	_, err := ex.ExecContext(ctx, upsertVerseSQL,
		v.ID, v.Book, v.Chapter, v.Number, v.Hebrew, v.Transliteration, v.Translation,
		v.Portion, parasha.Normalize(v.Portion), nullString(v.AudioURL),
	)
	if err != nil {
		return fmt.Errorf("upsert verse %d: %w", v.ID, err)
	}
	return nil
}

const selectVerseSQL = `
	SELECT id, book, chapter, pasuk, hebrew, transliteration, translation,
	       parasha, audio_url
	FROM verses
`

// ListVerses returns the whole corpus in id order.
func (db *DB) ListVerses(ctx context.Context) ([]verses.Verse, error) {
	rows, err := db.QueryContext(ctx, selectVerseSQL+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query verses: %w", err)
	}
	return scanVerses(rows)
}

// ListVersesByPortion returns the verses labelled with portion (compared
// under parasha.Normalize) in id order.
func (db *DB) ListVersesByPortion(ctx context.Context, portion string) ([]verses.Verse, error) {
	rows, err := db.QueryContext(ctx, selectVerseSQL+" WHERE parasha_key = ? ORDER BY id", parasha.Normalize(portion))
	if err != nil {
		return nil, fmt.Errorf("query verses for %q: %w", portion, err)
	}
	return scanVerses(rows)
}

// GetVerse returns one verse by id, or ErrNotFound.
func (db *DB) GetVerse(ctx context.Context, id int) (*verses.Verse, error) {
	rows, err := db.QueryContext(ctx, selectVerseSQL+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("query verse %d: %w", id, err)
	}
	vs, err := scanVerses(rows)
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return nil, ErrNotFound
	}
	return &vs[0], nil
}

func scanVerses(rows *sql.Rows) ([]verses.Verse, error) {
	defer rows.Close()

	out := []verses.Verse{}
	for rows.Next() {
		var v verses.Verse
		var audio sql.NullString
		if err := rows.Scan(
			&v.ID, &v.Book, &v.Chapter, &v.Number, &v.Hebrew,
			&v.Transliteration, &v.Translation, &v.Portion, &audio,
		); err != nil {
			return nil, fmt.Errorf("scan verse: %w", err)
		}
		v.AudioURL = audio.String
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verses: %w", err)
	}
	return out, nil
}

// CountVerses returns the number of stored verses.
func (db *DB) CountVerses(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM verses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count verses: %w", err)
	}
	return n, nil
}

// GetCorpusStats counts verses per portion label, largest first.
func (db *DB) GetCorpusStats(ctx context.Context) (*CorpusStats, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT parasha, COUNT(*) AS n
		FROM verses
		GROUP BY parasha_key
		ORDER BY n DESC, parasha
	`)
	if err != nil {
		return nil, fmt.Errorf("query corpus stats: %w", err)
	}
	defer rows.Close()

	stats := &CorpusStats{Portions: []PortionCount{}}
	for rows.Next() {
		var pc PortionCount
		if err := rows.Scan(&pc.Portion, &pc.Verses); err != nil {
			return nil, fmt.Errorf("scan corpus stats: %w", err)
		}
		stats.TotalVerses += pc.Verses
		stats.Portions = append(stats.Portions, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corpus stats: %w", err)
	}
	return stats, nil
}

// =============================================================================
// App State Queries
// =============================================================================

// GetState returns the value stored under key, or ErrNotFound.
func (db *DB) GetState(ctx context.Context, key string) (*StateEntry, error) {
	var entry StateEntry
	var updatedAt sql.NullString

	err := db.QueryRowContext(ctx,
		"SELECT key, value, updated_at FROM app_state WHERE key = ?", key,
	).Scan(&entry.Key, &entry.Value, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query state %q: %w", key, err)
	}

	if t := parseTimestamp(updatedAt); t != nil {
		entry.UpdatedAt = *t
	}
	return &entry, nil
}

// PutState stores value under key, replacing any previous value.
func (db *DB) PutState(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO app_state (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = datetime('now')
	`, key, value)
	if err != nil {
		return fmt.Errorf("put state %q: %w", key, err)
	}
	return nil
}

// DeleteState removes key. Deleting a missing key is not an error.
func (db *DB) DeleteState(ctx context.Context, key string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM app_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete state %q: %w", key, err)
	}
	return nil
}

// =============================================================================
// Selection Store
// =============================================================================

// LoadSelection returns the persisted selection document, if any.
func (db *DB) LoadSelection(ctx context.Context) ([]byte, bool, error) {
	entry, err := db.GetState(ctx, KeySelectedPortion)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(entry.Value), true, nil
}

// SaveSelection persists the selection document.
func (db *DB) SaveSelection(ctx context.Context, data []byte) error {
	return db.PutState(ctx, KeySelectedPortion, string(data))
}

// DeleteSelection removes the persisted selection.
func (db *DB) DeleteSelection(ctx context.Context) error {
	return db.DeleteState(ctx, KeySelectedPortion)
}
