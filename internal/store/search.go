package store

import (
	"context"
	"encoding/json"
	"strings"

	"prepkit/internal/snippet"
)

// SectionRow is one heading with its body, as fed to the search ranker.
type SectionRow struct {
	Path    string
	Line    int
	Level   int
	Heading string
	Anchor  string
	Body    string
}

// SearchSections returns sections whose heading or body contains the term.
// Matching is broad on purpose; ranking happens in the search layer.
func (s *Store) SearchSections(ctx context.Context, term string, limit int) ([]SectionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 200
	}
	pattern := "%" + escapeLike(term) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT note_path, line, level, heading, anchor, body
		FROM sections
		WHERE heading LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\'
		ORDER BY note_path, line
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SectionRow
	for rows.Next() {
		var r SectionRow
		if err := rows.Scan(&r.Path, &r.Line, &r.Level, &r.Heading, &r.Anchor, &r.Body); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SymbolRow is one extracted code symbol occurrence.
type SymbolRow struct {
	Path string
	Line int
	Lang string
	Name string
	Kind string
}

// SearchSymbols returns snippet symbols whose name contains the term.
func (s *Store) SearchSymbols(ctx context.Context, term string, limit int) ([]SymbolRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 200
	}
	// The JSON filter only narrows candidate rows; names are matched
	// properly after decoding.
	pattern := "%" + escapeLike(term) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT note_path, line, lang, symbols
		FROM snippets
		WHERE symbols != '[]' AND symbols LIKE ? ESCAPE '\'
		ORDER BY note_path, line`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lower := strings.ToLower(term)
	var out []SymbolRow
	for rows.Next() {
		var path, lang, raw string
		var line int
		if err := rows.Scan(&path, &line, &lang, &raw); err != nil {
			return nil, err
		}
		var symbols []snippet.Symbol
		if err := json.Unmarshal([]byte(raw), &symbols); err != nil {
			continue
		}
		for _, sym := range symbols {
			if !strings.Contains(strings.ToLower(sym.Name), lower) {
				continue
			}
			out = append(out, SymbolRow{
				Path: path, Line: line, Lang: lang, Name: sym.Name, Kind: sym.Kind,
			})
			if len(out) >= limit {
				return out, rows.Err()
			}
		}
	}
	return out, rows.Err()
}

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
