// Package catalog scans the note roots into an in-memory corpus and keeps a
// manifest cache so repeated scans can report what changed.
package catalog

import (
	"path"
	"strings"

	"prepkit/internal/notes"
)

// ParseError records a note that could not be parsed. The scan keeps going;
// the linter turns these into findings.
type ParseError struct {
	Path string
	Err  error
}

// Corpus is the parsed state of every note under the configured roots.
type Corpus struct {
	Root   string // primary root, absolute
	Notes  []*notes.Note
	ByPath map[string]*notes.Note
	Errors []ParseError

	// Changed and Deleted are corpus-relative paths that differ from the
	// previous manifest. On a first scan every note is in Changed.
	Changed []string
	Deleted []string
}

// Note returns the note at a corpus-relative path.
func (c *Corpus) Note(rel string) (*notes.Note, bool) {
	n, ok := c.ByPath[rel]
	return n, ok
}

// Resolve maps a link target written in fromPath to a corpus-relative path.
// Targets are joined against the linking file's directory and cleaned, so
// "../guides/x.md" and "./x.md" both land on manifest keys.
func (c *Corpus) Resolve(fromPath, target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return fromPath
	}
	if path.IsAbs(target) {
		// Treat "/docs/x.md" as rooted at the corpus.
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	return path.Clean(path.Join(path.Dir(fromPath), target))
}

// Anchors returns the anchor set of the note a link resolves to.
func (c *Corpus) Anchors(rel string) (map[string]int, bool) {
	n, ok := c.ByPath[rel]
	if !ok {
		return nil, false
	}
	return n.Anchors, true
}

// Readme returns the index note: the preferred path when present, else
// README.md or readme.md at the corpus root.
func (c *Corpus) Readme(preferred string) (*notes.Note, bool) {
	for _, p := range []string{preferred, "README.md", "readme.md"} {
		if p == "" {
			continue
		}
		if n, ok := c.ByPath[p]; ok {
			return n, true
		}
	}
	return nil, false
}

// Stats aggregates corpus totals.
type Stats struct {
	Notes          int            `json:"notes"`
	Sections       int            `json:"sections"`
	Snippets       int            `json:"snippets"`
	SnippetsByLang map[string]int `json:"snippets_by_lang"`
	Links          int            `json:"links"`
	InternalLinks  int            `json:"internal_links"`
	ExternalLinks  int            `json:"external_links"`
	Words          int            `json:"words"`
	ParseErrors    int            `json:"parse_errors"`
}

func (c *Corpus) Stats() Stats {
	st := Stats{
		Notes:          len(c.Notes),
		ParseErrors:    len(c.Errors),
		SnippetsByLang: make(map[string]int),
	}
	for _, n := range c.Notes {
		st.Sections += len(n.Sections)
		st.Snippets += len(n.Snippets)
		st.Words += n.WordCount
		st.Links += len(n.Links)
		for _, sn := range n.Snippets {
			lang := sn.Lang
			if lang == "" {
				lang = "(none)"
			}
			st.SnippetsByLang[lang]++
		}
		for _, l := range n.Links {
			switch l.Kind {
			case notes.KindInternal, notes.KindAnchor:
				st.InternalLinks++
			case notes.KindExternal:
				st.ExternalLinks++
			}
		}
	}
	return st
}
