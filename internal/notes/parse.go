package notes

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Parse builds the structured model for one note. relPath is the
// corpus-relative path and is stored verbatim; the caller fills in file
// metadata. CRLF line endings are normalized before parsing so that line
// numbers are stable across platforms.
func Parse(relPath string, src []byte) (*Note, error) {
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))

	front, body, fmLines, err := splitFrontMatter(src)
	if err != nil {
		return nil, err
	}

	note := &Note{
		Path:    relPath,
		Front:   front,
		Anchors: make(map[string]int),
	}

	idx := newLineIndex(body)
	anchors := NewAnchorSet()
	doc := markdown.Parser().Parse(text.NewReader(body))

	walkErr := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Heading:
			title := flattenText(v, body)
			off, ok := blockOffset(v)
			if !ok {
				return ast.WalkContinue, nil
			}
			line := idx.lineAt(off) + fmLines
			anchor := anchors.Add(title)
			note.Anchors[anchor] = line
			note.Sections = append(note.Sections, Section{
				Level:  v.Level,
				Title:  title,
				Anchor: anchor,
				Line:   line,
			})
			if v.Level == 1 && note.Title == "" {
				note.Title = title
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			sn, ok := fencedSnippet(v, body, idx)
			if ok {
				sn.Line += fmLines
				note.Snippets = append(note.Snippets, sn)
			}

		case *ast.Link:
			note.Links = append(note.Links, newLink(
				string(v.Destination), flattenText(v, body), false,
				nodeLine(v, body, idx)+fmLines))
			return ast.WalkSkipChildren, nil

		case *ast.Image:
			note.Links = append(note.Links, newLink(
				string(v.Destination), flattenText(v, body), true,
				nodeLine(v, body, idx)+fmLines))
			return ast.WalkSkipChildren, nil

		case *ast.AutoLink:
			if v.AutoLinkType == ast.AutoLinkURL {
				dest := string(v.URL(body))
				note.Links = append(note.Links, newLink(
					dest, dest, false, nodeLine(v, body, idx)+fmLines))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if front.Title != "" {
		note.Title = front.Title
	} else if note.Title == "" {
		base := path.Base(relPath)
		note.Title = strings.TrimSuffix(base, path.Ext(base))
	}

	note.WordCount = len(strings.Fields(string(body)))
	fillSectionBodies(note, src)
	assignSnippetSections(note)
	return note, nil
}

// fillSectionBodies slices the raw source between consecutive headings.
func fillSectionBodies(note *Note, src []byte) {
	if len(note.Sections) == 0 {
		return
	}
	lines := strings.Split(string(src), "\n")
	for i := range note.Sections {
		start := note.Sections[i].Line // body begins on the line after the heading
		end := len(lines)
		if i+1 < len(note.Sections) {
			end = note.Sections[i+1].Line - 1
		}
		if start > end || start > len(lines) {
			continue
		}
		// Trailing trim only: line N of the body must stay line
		// sec.Line+1+N of the file for downstream line reporting.
		note.Sections[i].Body = strings.TrimRight(strings.Join(lines[start:end], "\n"), "\n \t")
	}
}

// assignSnippetSections attaches each snippet to the nearest heading above it.
func assignSnippetSections(note *Note) {
	for i := range note.Snippets {
		line := note.Snippets[i].Line
		for j := len(note.Sections) - 1; j >= 0; j-- {
			if note.Sections[j].Line < line {
				note.Snippets[i].Section = note.Sections[j].Anchor
				break
			}
		}
	}
}

func fencedSnippet(v *ast.FencedCodeBlock, src []byte, idx lineIndex) (Snippet, bool) {
	var sn Snippet
	if v.Info != nil {
		sn.RawInfo = string(v.Info.Segment.Value(src))
		sn.Lang = NormalizeLang(sn.RawInfo)
		sn.Line = idx.lineAt(v.Info.Segment.Start)
	} else if v.Lines().Len() > 0 {
		sn.Line = idx.lineAt(v.Lines().At(0).Start) - 1
	} else {
		// Empty fence with no info string carries nothing to check.
		return sn, false
	}
	var sb strings.Builder
	for i := 0; i < v.Lines().Len(); i++ {
		seg := v.Lines().At(i)
		sb.Write(seg.Value(src))
	}
	sn.Content = sb.String()
	return sn, true
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

func hasScheme(dest string) bool {
	return schemeRe.MatchString(dest)
}

func newLink(dest, label string, image bool, line int) Link {
	l := Link{Raw: dest, Text: label, Line: line}
	switch {
	case image:
		l.Kind = KindImage
		l.Target, l.Fragment = splitFragment(dest)
	case hasScheme(dest):
		l.Kind = KindExternal
		l.Target = dest
	case strings.HasPrefix(dest, "#"):
		l.Kind = KindAnchor
		l.Fragment = strings.TrimPrefix(dest, "#")
	default:
		l.Kind = KindInternal
		l.Target, l.Fragment = splitFragment(dest)
	}
	return l
}

func splitFragment(dest string) (target, fragment string) {
	target = dest
	if i := strings.IndexByte(dest, '#'); i >= 0 {
		target, fragment = dest[:i], dest[i+1:]
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	return target, fragment
}

// flattenText collects the plain text of a node's inline children.
func flattenText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// blockOffset returns the byte offset of a node's first content segment.
// Lines() is only callable on block nodes; inline nodes fall through to
// their first text child.
func blockOffset(n ast.Node) (int, bool) {
	if n.Type() != ast.TypeInline {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lines.At(0).Start, true
		}
	}
	off := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || off >= 0 {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			off = t.Segment.Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return off, off >= 0
}

// nodeLine locates an inline node: its first text segment when present,
// otherwise the first segment of the enclosing block.
func nodeLine(n ast.Node, src []byte, idx lineIndex) int {
	if off, ok := blockOffset(n); ok {
		return idx.lineAt(off)
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if off, ok := blockOffset(p); ok {
			return idx.lineAt(off)
		}
	}
	return 1
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range src {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (li lineIndex) lineAt(off int) int {
	return sort.Search(len(li), func(i int) bool { return li[i] > off })
}
