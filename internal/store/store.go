// Package store persists the corpus index in SQLite: notes and their
// derived sections, snippets and links, plus lint run history. Search reads
// from here instead of re-parsing the corpus.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store wraps the SQLite handle. A single connection with WAL keeps writer
// concurrency simple; the mutex serializes multi-statement operations.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	log  *zap.Logger
}

// Open opens or creates the index database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debug("pragma failed", zap.String("pragma", pragma), zap.Error(err))
		}
	}

	s := &Store{db: db, path: path, log: log}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	log.Debug("store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

const notesTable = `
CREATE TABLE IF NOT EXISTS notes (
	path TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	hash TEXT NOT NULL,
	word_count INTEGER NOT NULL DEFAULT 0,
	section_count INTEGER NOT NULL DEFAULT 0,
	snippet_count INTEGER NOT NULL DEFAULT 0,
	indexed_at DATETIME NOT NULL
);
`

const sectionsTable = `
CREATE TABLE IF NOT EXISTS sections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	note_path TEXT NOT NULL,
	line INTEGER NOT NULL,
	level INTEGER NOT NULL,
	heading TEXT NOT NULL,
	anchor TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sections_note ON sections(note_path);
CREATE INDEX IF NOT EXISTS idx_sections_heading ON sections(heading);
`

const snippetsTable = `
CREATE TABLE IF NOT EXISTS snippets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	note_path TEXT NOT NULL,
	line INTEGER NOT NULL,
	lang TEXT NOT NULL DEFAULT '',
	raw_info TEXT NOT NULL DEFAULT '',
	line_count INTEGER NOT NULL DEFAULT 0,
	valid INTEGER NOT NULL DEFAULT 1,
	symbols TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_snippets_note ON snippets(note_path);
CREATE INDEX IF NOT EXISTS idx_snippets_lang ON snippets(lang);
`

const linksTable = `
CREATE TABLE IF NOT EXISTS links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	note_path TEXT NOT NULL,
	line INTEGER NOT NULL,
	kind TEXT NOT NULL,
	target TEXT NOT NULL,
	ok INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_links_note ON links(note_path);
`

const runsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	notes INTEGER NOT NULL DEFAULT 0,
	errors INTEGER NOT NULL DEFAULT 0,
	warnings INTEGER NOT NULL DEFAULT 0,
	infos INTEGER NOT NULL DEFAULT 0
);
`

const findingsTable = `
CREATE TABLE IF NOT EXISTS findings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	rule TEXT NOT NULL,
	severity TEXT NOT NULL,
	path TEXT NOT NULL,
	line INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
`

func (s *Store) initialize() error {
	for _, ddl := range []string{
		notesTable, sectionsTable, snippetsTable, linksTable, runsTable, findingsTable,
	} {
		if _, err := s.db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// migration adds a column to an existing table. Databases created before the
// column existed are upgraded in place; CREATE TABLE IF NOT EXISTS alone
// would leave them behind.
type migration struct {
	table  string
	column string
	def    string
}

var pendingMigrations = []migration{
	// Snippet symbol extraction came after the first index format.
	{"snippets", "symbols", "TEXT NOT NULL DEFAULT '[]'"},
	// Link health was originally only in findings, not per link.
	{"links", "ok", "INTEGER NOT NULL DEFAULT 1"},
	{"findings", "detail", "TEXT NOT NULL DEFAULT ''"},
}

func (s *Store) migrate() error {
	for _, m := range pendingMigrations {
		if !s.tableExists(m.table) || s.columnExists(m.table, m.column) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.def)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("add %s.%s: %w", m.table, m.column, err)
		}
		s.log.Debug("applied migration",
			zap.String("table", m.table), zap.String("column", m.column))
	}
	return nil
}

func (s *Store) tableExists(table string) bool {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
	).Scan(&count)
	return err == nil && count > 0
}

func (s *Store) columnExists(table, column string) bool {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
