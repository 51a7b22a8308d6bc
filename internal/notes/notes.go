// Package notes parses Markdown study notes into a structured model:
// sections with GitHub-style anchors, fenced code snippets, and links.
// The model is the input for linting, indexing, and search.
package notes

import "time"

// Note is one parsed Markdown file.
type Note struct {
	Path    string    // corpus-relative, forward slashes
	AbsPath string    // filled by the catalog scanner
	Hash    string    // sha256 hex of the raw bytes
	Size    int64
	ModTime time.Time

	Front     FrontMatter
	Title     string // front matter title, else first H1, else filename stem
	WordCount int
	Sections  []Section
	Snippets  []Snippet
	Links     []Link

	// Anchors maps every heading anchor in this file to the heading line.
	Anchors map[string]int
}

// Section is one heading plus the text that follows it, up to the next
// heading of any level.
type Section struct {
	Level  int
	Title  string
	Anchor string
	Line   int    // 1-based line of the heading
	Body   string // raw markdown between this heading and the next
}

// Snippet is one fenced code block.
type Snippet struct {
	Lang    string // normalized language, "" when the fence has no info string
	RawInfo string // info string as written
	Content string
	Line    int    // 1-based line of the opening fence
	Section string // anchor of the enclosing section, "" before the first heading
}

// LinkKind classifies a link destination.
type LinkKind int

const (
	// KindExternal is an absolute URL with a scheme (https, mailto, ...).
	KindExternal LinkKind = iota
	// KindInternal is a relative path to another file, optionally with a fragment.
	KindInternal
	// KindAnchor is a same-file fragment reference (#heading).
	KindAnchor
	// KindImage is an image reference; Target may be a path or a URL.
	KindImage
)

func (k LinkKind) String() string {
	switch k {
	case KindExternal:
		return "external"
	case KindInternal:
		return "internal"
	case KindAnchor:
		return "anchor"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Link is one link or image occurrence.
type Link struct {
	Kind     LinkKind
	Raw      string // destination exactly as written
	Target   string // path or URL portion, "" for same-file anchors
	Fragment string // portion after '#', without the '#'
	Text     string // link text, "" for bare images
	Line     int
}

// Remote reports whether the link target carries a URL scheme. Image links
// can point either at repository files or at remote URLs.
func (l Link) Remote() bool {
	return l.Kind == KindExternal || (l.Kind == KindImage && hasScheme(l.Raw))
}
