// Package search ranks indexed sections and snippet symbols against a free
// text query. Extraction favors code-shaped terms: a query like
// "useEffect cleanup" should weight the hook name over the prose word.
package search

import (
	"regexp"
	"strings"
)

const (
	weightSymbol = 0.9
	weightQuoted = 0.8
	weightWord   = 0.5
)

// Terms is a query broken into weighted search terms.
type Terms struct {
	Symbols []string
	Quoted  []string
	Words   []string
	Weights map[string]float64
}

var (
	// Dotted chains first so Array.prototype.map is not eaten word by word,
	// then snake_case, then identifiers with an internal case change.
	symbolRe = regexp.MustCompile(
		`\b(?:[A-Za-z][A-Za-z0-9]*(?:\.[A-Za-z][A-Za-z0-9]*)+` +
			`|[A-Za-z][A-Za-z0-9]*(?:_[A-Za-z0-9]+)+` +
			`|[A-Za-z][a-z0-9]*[A-Z][A-Za-z0-9]*)\b`)
	quotedRe = regexp.MustCompile("[`\"']([^`\"'\n]+)[`\"']")
	wordRe   = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]+`)
)

// stopwords are question filler from typical note queries.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "and": true, "or": true,
	"but": true, "if": true, "then": true, "else": true, "when": true,
	"where": true, "why": true, "how": true, "what": true, "which": true,
	"who": true, "does": true, "do": true, "did": true, "can": true,
	"could": true, "should": true, "would": true, "will": true, "may": true,
	"might": true, "must": true, "to": true, "of": true, "in": true,
	"for": true, "on": true, "with": true, "at": true, "by": true,
	"from": true, "as": true, "into": true, "about": true, "between": true,
	"vs": true, "versus": true, "this": true, "that": true, "these": true,
	"those": true, "it": true, "its": true, "you": true, "your": true,
	"we": true, "our": true, "they": true, "their": true, "not": true,
	"no": true, "use": true, "using": true, "used": true, "like": true,
	"just": true, "also": true, "very": true, "more": true, "most": true,
	"some": true, "such": true, "explain": true, "example": true,
	"examples": true, "difference": true,
}

// ExtractTerms pulls weighted terms out of a query. Code symbols rank above
// quoted phrases, which rank above plain words; stopwords and two-letter
// words are dropped.
func ExtractTerms(query string) *Terms {
	t := &Terms{Weights: make(map[string]float64)}

	for _, sym := range symbolRe.FindAllString(query, -1) {
		if _, seen := t.Weights[sym]; seen {
			continue
		}
		t.Symbols = append(t.Symbols, sym)
		t.Weights[sym] = weightSymbol
	}

	for _, m := range quotedRe.FindAllStringSubmatch(query, -1) {
		phrase := strings.TrimSpace(m[1])
		if phrase == "" {
			continue
		}
		if _, seen := t.Weights[phrase]; seen {
			continue
		}
		t.Quoted = append(t.Quoted, phrase)
		t.Weights[phrase] = weightQuoted
	}

	stripped := quotedRe.ReplaceAllString(query, " ")
	for _, word := range wordRe.FindAllString(stripped, -1) {
		if len(word) <= 2 || stopwords[strings.ToLower(word)] {
			continue
		}
		if _, seen := t.Weights[word]; seen {
			continue
		}
		// Part of an already-extracted symbol, not a term of its own.
		if partOfSymbol(t.Symbols, word) {
			continue
		}
		t.Words = append(t.Words, word)
		t.Weights[word] = weightWord
	}

	return t
}

func partOfSymbol(symbols []string, word string) bool {
	for _, sym := range symbols {
		if strings.Contains(sym, word) {
			return true
		}
	}
	return false
}

// All returns every term, highest weight first.
func (t *Terms) All() []string {
	all := make([]string, 0, len(t.Symbols)+len(t.Quoted)+len(t.Words))
	all = append(all, t.Symbols...)
	all = append(all, t.Quoted...)
	all = append(all, t.Words...)
	return all
}

func (t *Terms) Empty() bool {
	return len(t.Weights) == 0
}
