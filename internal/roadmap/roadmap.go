// Package roadmap models the README topic index: the "Available Topics"
// list that points at existing notes and the "Coming Soon" roadmap of
// planned ones. Diffing the model against the corpus catches dead entries,
// stale titles, unlisted notes, and roadmap items that already shipped.
package roadmap

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"prepkit/internal/catalog"
	"prepkit/internal/notes"
)

const (
	availableSlug = "available-topics"
	comingSlug    = "coming-soon"
)

// Entry is one list item in the README index. Coming Soon items are often
// linkless and carry only a title.
type Entry struct {
	Title    string `json:"title"`
	Target   string `json:"target,omitempty"` // link destination as written, "" when linkless
	Fragment string `json:"fragment,omitempty"`
	Line     int    `json:"line"`
}

// Roadmap is the parsed README index.
type Roadmap struct {
	Path      string // README corpus path
	Available []Entry
	Coming    []Entry
	HasIndex  bool // an "Available Topics" heading was found
	HasComing bool
}

// Parse extracts the topic index from a parsed README. Headings match by
// slug, so "## Available topics" and "## Available Topics" are the same
// section.
func Parse(note *notes.Note) *Roadmap {
	r := &Roadmap{Path: note.Path}
	if sec, ok := findSection(note, availableSlug); ok {
		r.HasIndex = true
		r.Available = listEntries(note, sec)
	}
	if sec, ok := findSection(note, comingSlug); ok {
		r.HasComing = true
		r.Coming = listEntries(note, sec)
	}
	return r
}

func findSection(note *notes.Note, slug string) (notes.Section, bool) {
	for _, sec := range note.Sections {
		if notes.Slugify(sec.Title) == slug {
			return sec, true
		}
	}
	return notes.Section{}, false
}

var listItemRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+\.)\s+(.+)$`)

// listEntries collects the list items between a heading and the next
// heading of the same or higher level.
func listEntries(note *notes.Note, sec notes.Section) []Entry {
	start, end := sectionRange(note, sec)

	linksByLine := make(map[int]notes.Link)
	for _, l := range note.Links {
		if l.Line < start || l.Line >= end {
			continue
		}
		if l.Kind != notes.KindInternal && l.Kind != notes.KindAnchor {
			continue
		}
		if _, taken := linksByLine[l.Line]; !taken {
			linksByLine[l.Line] = l
		}
	}

	var entries []Entry
	for i, line := range strings.Split(sec.Body, "\n") {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		lineNo := sec.Line + 1 + i
		e := Entry{Line: lineNo, Title: itemTitle(m[1])}
		if l, ok := linksByLine[lineNo]; ok {
			e.Title = strings.TrimSpace(l.Text)
			e.Target = l.Target
			e.Fragment = l.Fragment
			if e.Target == "" && l.Kind == notes.KindAnchor {
				e.Target = note.Path
			}
		}
		if e.Title != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

func sectionRange(note *notes.Note, sec notes.Section) (start, end int) {
	start = sec.Line + 1
	end = math.MaxInt32
	for _, other := range note.Sections {
		if other.Line > sec.Line && other.Level <= sec.Level {
			end = other.Line
			break
		}
	}
	return start, end
}

// itemTitle strips link syntax leftovers and emphasis from a bare list item.
func itemTitle(text string) string {
	text = strings.TrimSpace(text)
	// "Title - short description" keeps just the title part.
	for _, sep := range []string{" - ", " – ", ": "} {
		if i := strings.Index(text, sep); i > 0 {
			text = text[:i]
			break
		}
	}
	return strings.Trim(text, "*_` ")
}

// Mismatch is one index entry that disagrees with the corpus.
type Mismatch struct {
	Entry  Entry  `json:"entry"`
	Reason string `json:"reason"`         // "missing-file", "missing-fragment", "title-mismatch", "no-note"
	Want   string `json:"want,omitempty"` // what the corpus offers instead, for the report
}

// Diff is the roadmap compared against the corpus.
type Diff struct {
	DeadEntries     []Mismatch `json:"dead_entries,omitempty"`
	TitleMismatches []Mismatch `json:"title_mismatches,omitempty"`
	Unlisted        []string   `json:"unlisted,omitempty"`  // corpus note paths absent from Available Topics
	Premature       []Entry    `json:"premature,omitempty"` // Coming Soon entries that already have a note
}

// Empty reports whether the index and the corpus agree.
func (d *Diff) Empty() bool {
	return len(d.DeadEntries) == 0 && len(d.TitleMismatches) == 0 &&
		len(d.Unlisted) == 0 && len(d.Premature) == 0
}

// DiffCorpus checks every index entry against the corpus. Title matching is
// case-insensitive in slug space and accepts any H1 or H2 of the target.
func (r *Roadmap) DiffCorpus(c *catalog.Corpus) *Diff {
	d := &Diff{}
	listed := make(map[string]bool)

	for _, e := range r.Available {
		if e.Target == "" {
			if p, ok := findNoteByTitle(c, e.Title); ok {
				listed[p] = true
			} else {
				d.TitleMismatches = append(d.TitleMismatches, Mismatch{
					Entry: e, Reason: "no-note",
				})
			}
			continue
		}

		target := c.Resolve(r.Path, e.Target)
		note, ok := c.Note(target)
		if !ok {
			d.DeadEntries = append(d.DeadEntries, Mismatch{
				Entry: e, Reason: "missing-file", Want: target,
			})
			continue
		}
		listed[target] = true

		// Anchors are lowercase by construction; the written fragment must
		// match exactly or the link will not land on GitHub either.
		if e.Fragment != "" {
			if _, ok := note.Anchors[e.Fragment]; !ok {
				d.DeadEntries = append(d.DeadEntries, Mismatch{
					Entry: e, Reason: "missing-fragment", Want: target,
				})
				continue
			}
		}

		if !titleMatches(note, e.Title) {
			d.TitleMismatches = append(d.TitleMismatches, Mismatch{
				Entry: e, Reason: "title-mismatch", Want: topTitles(note),
			})
		}
	}

	for _, n := range c.Notes {
		if n.Path == r.Path || listed[n.Path] || n.Front.Draft {
			continue
		}
		d.Unlisted = append(d.Unlisted, n.Path)
	}
	sort.Strings(d.Unlisted)

	for _, e := range r.Coming {
		if e.Target != "" {
			if _, ok := c.Note(c.Resolve(r.Path, e.Target)); ok {
				d.Premature = append(d.Premature, e)
			}
			continue
		}
		if _, ok := findNoteByTitle(c, e.Title); ok {
			d.Premature = append(d.Premature, e)
		}
	}
	return d
}

// titleMatches accepts the entry title when it slug-matches the note title
// or any H1/H2 heading. Containment at hyphen boundaries counts as a match,
// so "React" agrees with "React Prep" but "JS" does not claim "JSON".
func titleMatches(note *notes.Note, title string) bool {
	want := notes.Slugify(title)
	if want == "" {
		return false
	}
	if slugsAgree(notes.Slugify(note.Title), want) {
		return true
	}
	for _, sec := range note.Sections {
		if sec.Level <= 2 && slugsAgree(notes.Slugify(sec.Title), want) {
			return true
		}
	}
	return false
}

func slugsAgree(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b ||
		strings.Contains("-"+a+"-", "-"+b+"-") ||
		strings.Contains("-"+b+"-", "-"+a+"-")
}

// findNoteByTitle locates a non-draft note whose title or H1/H2 matches.
func findNoteByTitle(c *catalog.Corpus, title string) (string, bool) {
	want := notes.Slugify(title)
	if want == "" {
		return "", false
	}
	for _, n := range c.Notes {
		if n.Front.Draft {
			continue
		}
		if titleMatches(n, title) {
			return n.Path, true
		}
	}
	return "", false
}

func topTitles(note *notes.Note) string {
	var titles []string
	for _, sec := range note.Sections {
		if sec.Level <= 2 {
			titles = append(titles, sec.Title)
		}
	}
	if len(titles) > 4 {
		titles = titles[:4]
	}
	return fmt.Sprintf("have: %s", strings.Join(titles, ", "))
}
