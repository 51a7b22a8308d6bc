package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"prepkit/internal/notes"
	"prepkit/internal/snippet"
)

// SnippetMeta carries per-snippet results from validation and symbol
// extraction, keyed by the snippet's fence line in IndexNote.
type SnippetMeta struct {
	Valid   bool
	Symbols []snippet.Symbol
}

// IndexNote replaces every derived row for one note in a single
// transaction. Snippets without a meta entry are stored as valid with no
// symbols.
func (s *Store) IndexNote(ctx context.Context, n *notes.Note, meta map[int]SnippetMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"sections", "snippets", "links"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE note_path = ?", table), n.Path); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notes (path, title, hash, word_count, section_count, snippet_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			hash = excluded.hash,
			word_count = excluded.word_count,
			section_count = excluded.section_count,
			snippet_count = excluded.snippet_count,
			indexed_at = excluded.indexed_at`,
		n.Path, n.Title, n.Hash, n.WordCount,
		len(n.Sections), len(n.Snippets), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("upsert note %s: %w", n.Path, err)
	}

	for _, sec := range n.Sections {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sections (note_path, line, level, heading, anchor, body)
			VALUES (?, ?, ?, ?, ?, ?)`,
			n.Path, sec.Line, sec.Level, sec.Title, sec.Anchor, sec.Body,
		); err != nil {
			return fmt.Errorf("insert section: %w", err)
		}
	}

	for _, sn := range n.Snippets {
		m, ok := meta[sn.Line]
		if !ok {
			m = SnippetMeta{Valid: true}
		}
		symbols := []byte("[]")
		if len(m.Symbols) > 0 {
			symbols, err = json.Marshal(m.Symbols)
			if err != nil {
				return fmt.Errorf("marshal symbols: %w", err)
			}
		}
		lineCount := strings.Count(sn.Content, "\n") + 1
		if sn.Content == "" {
			lineCount = 0
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO snippets (note_path, line, lang, raw_info, line_count, valid, symbols)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			n.Path, sn.Line, sn.Lang, sn.RawInfo, lineCount, m.Valid, string(symbols),
		); err != nil {
			return fmt.Errorf("insert snippet: %w", err)
		}
	}

	for _, l := range n.Links {
		target := l.Target
		if l.Kind == notes.KindAnchor {
			target = "#" + l.Fragment
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO links (note_path, line, kind, target)
			VALUES (?, ?, ?, ?)`,
			n.Path, l.Line, l.Kind.String(), target,
		); err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index transaction: %w", err)
	}
	s.log.Debug("indexed note", zap.String("path", n.Path),
		zap.Int("sections", len(n.Sections)), zap.Int("snippets", len(n.Snippets)))
	return nil
}

// DeleteNote removes a note and all rows derived from it.
func (s *Store) DeleteNote(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"sections", "snippets", "links"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE note_path = ?", table), path); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return tx.Commit()
}

// Paths lists every indexed note path, sorted.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT path FROM notes")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// NoteHash returns the stored content hash for incremental indexing. ok is
// false when the note has never been indexed.
func (s *Store) NoteHash(ctx context.Context, path string) (hash string, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRowContext(ctx,
		"SELECT hash FROM notes WHERE path = ?", path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// Stats summarizes the index contents.
type Stats struct {
	Notes         int            `json:"notes"`
	Sections      int            `json:"sections"`
	Snippets      int            `json:"snippets"`
	ValidSnippets int            `json:"valid_snippets"`
	Links         int            `json:"links"`
	DeadLinks     int            `json:"dead_links"`
	Runs          int            `json:"runs"`
	SnippetLangs  map[string]int `json:"snippet_langs"`
	LastIndexed   time.Time      `json:"last_indexed"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{SnippetLangs: make(map[string]int)}
	for table, dst := range map[string]*int{
		"notes":    &st.Notes,
		"sections": &st.Sections,
		"snippets": &st.Snippets,
		"links":    &st.Links,
		"runs":     &st.Runs,
	} {
		if err := s.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(dst); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM snippets WHERE valid = 1").Scan(&st.ValidSnippets); err != nil {
		return nil, fmt.Errorf("count valid snippets: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM links WHERE ok = 0").Scan(&st.DeadLinks); err != nil {
		return nil, fmt.Errorf("count dead links: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT lang, COUNT(*) FROM snippets GROUP BY lang")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			return nil, err
		}
		if lang == "" {
			lang = "(none)"
		}
		st.SnippetLangs[lang] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// MAX() drops the column decltype and the driver would hand back a
	// string, so pick the newest row directly.
	var last time.Time
	if err := s.db.QueryRowContext(ctx,
		"SELECT indexed_at FROM notes ORDER BY indexed_at DESC LIMIT 1").Scan(&last); err == nil {
		st.LastIndexed = last
	}
	return st, nil
}
