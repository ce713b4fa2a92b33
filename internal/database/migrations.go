package database

// migrationsSQL contains all database migrations, keyed by version.
// Migrations are applied in version order and recorded in schema_migrations.
var migrationsSQL = map[int]string{
	1: migrationV1Verses,
	2: migrationV2AppState,
}

// migrationV1Verses creates the practice corpus.
//
// Verses are keyed by the corpus id; (book, chapter, pasuk) is unique too so
// a re-import with renumbered ids fails loudly instead of duplicating text.
// parasha_key holds the normalized portion name used for lookups.
const migrationV1Verses = `
CREATE TABLE IF NOT EXISTS verses (
    id INTEGER PRIMARY KEY,
    book TEXT NOT NULL,
    chapter INTEGER NOT NULL CHECK (chapter > 0),
    pasuk INTEGER NOT NULL CHECK (pasuk > 0),
    hebrew TEXT NOT NULL,
    transliteration TEXT NOT NULL DEFAULT '',
    translation TEXT NOT NULL DEFAULT '',
    parasha TEXT NOT NULL,
    parasha_key TEXT NOT NULL,
    audio_url TEXT,

    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE (book, chapter, pasuk)
);

CREATE INDEX IF NOT EXISTS idx_verses_parasha_key ON verses(parasha_key);
`

// migrationV2AppState creates a small key/value table for process state that
// must survive restarts. The selected portion lives under "selected_portion".
const migrationV2AppState = `
CREATE TABLE IF NOT EXISTS app_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`
