package notes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleNote = `# JavaScript Prep

Quick notes before the interview loop.

## Closures

A closure captures its lexical scope.

` + "```js\nfunction counter() {\n  let n = 0;\n  return () => n++;\n}\n```" + `

See [hoisting](#hoisting) and the [React notes](REACT-Prep.md#hooks).

## Hoisting

Declarations move up. External docs: [MDN](https://developer.mozilla.org/).

## Closures
`

func TestParseSections(t *testing.T) {
	note, err := Parse("JS-Prep.md", []byte(sampleNote))
	require.NoError(t, err)

	assert.Equal(t, "JavaScript Prep", note.Title)
	require.Len(t, note.Sections, 4)

	want := []struct {
		level  int
		title  string
		anchor string
		line   int
	}{
		{1, "JavaScript Prep", "javascript-prep", 1},
		{2, "Closures", "closures", 5},
		{2, "Hoisting", "hoisting", 18},
		{2, "Closures", "closures-1", 22},
	}
	for i, w := range want {
		sec := note.Sections[i]
		assert.Equal(t, w.level, sec.Level, "section %d level", i)
		assert.Equal(t, w.title, sec.Title, "section %d title", i)
		assert.Equal(t, w.anchor, sec.Anchor, "section %d anchor", i)
		assert.Equal(t, w.line, sec.Line, "section %d line", i)
	}

	for _, anchor := range []string{"javascript-prep", "closures", "hoisting", "closures-1"} {
		if _, ok := note.Anchors[anchor]; !ok {
			t.Errorf("anchor %q missing from Anchors map", anchor)
		}
	}
}

func TestParseSectionBodies(t *testing.T) {
	note, err := Parse("JS-Prep.md", []byte(sampleNote))
	require.NoError(t, err)

	assert.Contains(t, note.Sections[1].Body, "lexical scope")
	assert.Contains(t, note.Sections[1].Body, "function counter()")
	assert.NotContains(t, note.Sections[1].Body, "Declarations move up")
	assert.Contains(t, note.Sections[2].Body, "Declarations move up")
}

func TestParseSnippets(t *testing.T) {
	note, err := Parse("JS-Prep.md", []byte(sampleNote))
	require.NoError(t, err)
	require.Len(t, note.Snippets, 1)

	sn := note.Snippets[0]
	assert.Equal(t, "javascript", sn.Lang)
	assert.Equal(t, "js", sn.RawInfo)
	assert.Equal(t, 9, sn.Line)
	assert.Equal(t, "closures", sn.Section)
	assert.Equal(t, "function counter() {\n  let n = 0;\n  return () => n++;\n}\n", sn.Content)
}

func TestParseLinks(t *testing.T) {
	note, err := Parse("JS-Prep.md", []byte(sampleNote))
	require.NoError(t, err)
	require.Len(t, note.Links, 3)

	anchor := note.Links[0]
	assert.Equal(t, KindAnchor, anchor.Kind)
	assert.Equal(t, "hoisting", anchor.Fragment)
	assert.Equal(t, 16, anchor.Line)

	internal := note.Links[1]
	assert.Equal(t, KindInternal, internal.Kind)
	assert.Equal(t, "REACT-Prep.md", internal.Target)
	assert.Equal(t, "hooks", internal.Fragment)

	external := note.Links[2]
	assert.Equal(t, KindExternal, external.Kind)
	assert.Equal(t, "https://developer.mozilla.org/", external.Target)
	assert.True(t, external.Remote())
}

func TestParseFrontMatter(t *testing.T) {
	src := "---\ntitle: Custom Title\ntags: [js, react]\ndraft: true\n---\n# Body Heading\n"
	note, err := Parse("draft.md", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "Custom Title", note.Title)
	assert.Equal(t, []string{"js", "react"}, note.Front.Tags)
	assert.True(t, note.Front.Draft)
	require.Len(t, note.Sections, 1)
	// Heading sits on line 6 of the file, after the five front matter lines.
	assert.Equal(t, 6, note.Sections[0].Line)
}

func TestParseUnterminatedFrontMatter(t *testing.T) {
	src := "---\ntitle: never closed\n# Heading\n"
	_, err := Parse("broken.md", []byte(src))
	if !errors.Is(err, ErrUnterminatedFrontMatter) {
		t.Fatalf("expected ErrUnterminatedFrontMatter, got %v", err)
	}
}

func TestParseTitleFallback(t *testing.T) {
	note, err := Parse("guides/TS-Prep.md", []byte("No headings here, just prose.\n"))
	require.NoError(t, err)
	if note.Title != "TS-Prep" {
		t.Fatalf("title fallback = %q, want %q", note.Title, "TS-Prep")
	}
}

func TestParseCRLF(t *testing.T) {
	src := "# Title\r\n\r\n## Second\r\n"
	note, err := Parse("crlf.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, note.Sections, 2)
	assert.Equal(t, 1, note.Sections[0].Line)
	assert.Equal(t, 3, note.Sections[1].Line)
}

func TestParseImageLink(t *testing.T) {
	src := "# Diagrams\n\n![event loop](img/event-loop.png)\n![remote](https://example.com/x.png)\n"
	note, err := Parse("diagrams.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, note.Links, 2)

	local := note.Links[0]
	assert.Equal(t, KindImage, local.Kind)
	assert.Equal(t, "img/event-loop.png", local.Target)
	assert.False(t, local.Remote())

	remote := note.Links[1]
	assert.Equal(t, KindImage, remote.Kind)
	assert.True(t, remote.Remote())
}

func TestParseFenceAttributes(t *testing.T) {
	src := "# X\n\n```ts twoslash\nconst n: number = 1;\n```\n"
	note, err := Parse("attrs.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, note.Snippets, 1)
	assert.Equal(t, "typescript", note.Snippets[0].Lang)
	assert.Equal(t, "ts twoslash", note.Snippets[0].RawInfo)
}

func TestParseBareFence(t *testing.T) {
	src := "# X\n\n```\nplain text body\n```\n"
	note, err := Parse("bare.md", []byte(src))
	require.NoError(t, err)
	require.Len(t, note.Snippets, 1)
	assert.Equal(t, "", note.Snippets[0].Lang)
	assert.Equal(t, 3, note.Snippets[0].Line)
}
