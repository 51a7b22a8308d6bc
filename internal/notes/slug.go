package notes

import (
	"fmt"
	"strings"
	"unicode"
)

// Slugify converts a heading title to its GitHub anchor form: lowercased,
// spaces turned into hyphens, punctuation other than '-' and '_' dropped.
// Unicode letters and digits survive.
func Slugify(title string) string {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			sb.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			sb.WriteByte('-')
		case r == '-' || r == '_':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// AnchorSet assigns anchors within one file, suffixing repeated titles with
// -1, -2, ... the way GitHub does.
type AnchorSet struct {
	counts map[string]int
	used   map[string]struct{}
}

func NewAnchorSet() *AnchorSet {
	return &AnchorSet{
		counts: make(map[string]int),
		used:   make(map[string]struct{}),
	}
}

// Add registers a heading title and returns the anchor assigned to it.
func (a *AnchorSet) Add(title string) string {
	base := Slugify(title)
	for n := a.counts[base]; ; n++ {
		anchor := base
		if n > 0 {
			anchor = fmt.Sprintf("%s-%d", base, n)
		}
		if _, taken := a.used[anchor]; taken {
			continue
		}
		a.counts[base] = n + 1
		a.used[anchor] = struct{}{}
		return anchor
	}
}
