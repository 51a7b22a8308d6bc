// Package snippet checks fenced code blocks for syntax errors and extracts
// the symbols they declare. Tree-sitter grammars cover the languages the
// corpus actually uses; JSON and YAML go through their regular decoders.
package snippet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"gopkg.in/yaml.v3"
)

// maxIssues caps how many syntax problems one snippet reports.
const maxIssues = 3

// Issue is one syntax problem inside a snippet. Line and Column are 1-based
// and relative to the snippet body, not the enclosing file.
type Issue struct {
	Line    int
	Column  int
	Message string
}

// Result is the outcome of validating one snippet.
type Result struct {
	Lang    string
	Checked bool // false when no checker covers the language
	Issues  []Issue
}

// Valid reports whether the snippet was checked and found clean.
func (r Result) Valid() bool {
	return r.Checked && len(r.Issues) == 0
}

// Validator validates snippet syntax. Parsers are built once per language;
// tree-sitter parsers are not safe for concurrent use, so a mutex serializes
// access.
type Validator struct {
	mu      sync.Mutex
	parsers map[string]*sitter.Parser
}

// NewValidator creates a validator with parsers for every supported grammar.
func NewValidator() *Validator {
	grammars := map[string]*sitter.Language{
		"javascript": javascript.GetLanguage(),
		"typescript": typescript.GetLanguage(),
		"tsx":        tsx.GetLanguage(),
		"go":         golang.GetLanguage(),
		"python":     python.GetLanguage(),
		"rust":       rust.GetLanguage(),
	}
	parsers := make(map[string]*sitter.Parser, len(grammars))
	for name, lang := range grammars {
		p := sitter.NewParser()
		p.SetLanguage(lang)
		parsers[name] = p
	}
	return &Validator{parsers: parsers}
}

// Close releases the tree-sitter parsers.
func (v *Validator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.parsers {
		p.Close()
	}
}

// Supported reports whether a checker exists for the normalized language.
func (v *Validator) Supported(lang string) bool {
	if lang == "json" || lang == "yaml" {
		return true
	}
	_, ok := v.parsers[lang]
	return ok
}

// Validate checks one snippet. Languages without a checker come back with
// Checked=false and no issues.
func (v *Validator) Validate(ctx context.Context, lang, content string) (Result, error) {
	res := Result{Lang: lang}
	switch lang {
	case "json":
		res.Checked = true
		res.Issues = checkJSON([]byte(content))
		return res, nil
	case "yaml":
		res.Checked = true
		res.Issues = checkYAML([]byte(content))
		return res, nil
	}

	v.mu.Lock()
	parser, ok := v.parsers[lang]
	if !ok {
		v.mu.Unlock()
		return res, nil
	}
	tree, err := parser.ParseCtx(ctx, nil, []byte(content))
	v.mu.Unlock()
	if err != nil {
		return res, fmt.Errorf("parse %s snippet: %w", lang, err)
	}
	defer tree.Close()

	res.Checked = true
	res.Issues = collectIssues(tree.RootNode(), []byte(content))
	return res, nil
}

// collectIssues walks the parse tree for ERROR and missing nodes.
func collectIssues(root *sitter.Node, content []byte) []Issue {
	if !root.HasError() {
		return nil
	}
	var issues []Issue
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if len(issues) >= maxIssues {
			return
		}
		switch {
		case n.Type() == "ERROR":
			issues = append(issues, Issue{
				Line:    int(n.StartPoint().Row) + 1,
				Column:  int(n.StartPoint().Column) + 1,
				Message: "syntax error near " + excerpt(n, content),
			})
			// One finding per ERROR subtree is enough.
			return
		case n.IsMissing():
			issues = append(issues, Issue{
				Line:    int(n.StartPoint().Row) + 1,
				Column:  int(n.StartPoint().Column) + 1,
				Message: fmt.Sprintf("missing %q", n.Type()),
			})
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if len(issues) == 0 {
		issues = append(issues, Issue{Line: 1, Column: 1, Message: "syntax error"})
	}
	return issues
}

func excerpt(n *sitter.Node, content []byte) string {
	text := string(content[n.StartByte():n.EndByte()])
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > 40 {
		text = string(runes[:40]) + "..."
	}
	if text == "" {
		return "end of snippet"
	}
	return fmt.Sprintf("%q", text)
}

func checkJSON(data []byte) []Issue {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		issue := Issue{Line: 1, Column: 1, Message: err.Error()}
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			issue.Line = 1 + bytes.Count(trimmed[:syn.Offset], []byte("\n"))
		}
		return []Issue{issue}
	}
	return nil
}

var yamlLineRe = regexp.MustCompile(`line (\d+):`)

func checkYAML(data []byte) []Issue {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			msg := strings.TrimPrefix(err.Error(), "yaml: ")
			line := 1
			if m := yamlLineRe.FindStringSubmatch(msg); m != nil {
				fmt.Sscanf(m[1], "%d", &line)
			}
			return []Issue{{Line: line, Column: 1, Message: msg}}
		}
	}
}
