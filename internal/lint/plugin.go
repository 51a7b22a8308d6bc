package lint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"

	"prepkit/internal/catalog"
	"prepkit/internal/notes"
)

// Custom rules are plain Go files interpreted with yaegi, so adding a check
// never requires rebuilding prepkit. Each file defines
//
//	func CheckNote(noteJSON string) (string, error)
//
// receiving one note as JSON and returning a JSON array of findings
// {rule, severity, line, message, detail}. Only whitelisted stdlib imports
// are available inside the interpreter.

// pluginPackages is the import whitelist for interpreted rules.
var pluginPackages = map[string]bool{
	"strings":       true,
	"strconv":       true,
	"fmt":           true,
	"math":          true,
	"regexp":        true,
	"encoding/json": true,
	"sort":          true,
	"unicode":       true,
	"unicode/utf8":  true,
	"bytes":         true,
	"time":          true,
}

const defaultPluginTimeout = 5 * time.Second

// LoadPlugins interprets every .go file under dir as a custom rule. A file
// that fails to load still yields a Rule; that rule reports a single
// plugin-error finding so the problem is visible in the lint output instead
// of only in a log.
func LoadPlugins(dir string, timeout time.Duration, log *zap.Logger) ([]Rule, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("plugins")
	if timeout <= 0 {
		timeout = defaultPluginTimeout
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, err
	}

	var rules []Rule
	for _, path := range files {
		stem := strings.TrimSuffix(filepath.Base(path), ".go")
		id := "custom/" + stem

		check, err := loadPlugin(path)
		if err != nil {
			log.Warn("custom rule failed to load", zap.String("path", path), zap.Error(err))
			rules = append(rules, &brokenPlugin{id: id, path: path, err: err})
			continue
		}
		log.Debug("custom rule loaded", zap.String("rule", id))
		rules = append(rules, &pluginRule{id: id, check: check, timeout: timeout, log: log})
	}
	return rules, nil
}

// loadPlugin evaluates one rule file and returns its CheckNote function.
func loadPlugin(path string) (func(string) (string, error), error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validatePluginImports(string(code)); err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib: %w", err)
	}
	if _, err := i.Eval(wrapPlugin(string(code))); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	fn, err := i.Eval("main.CheckNote")
	if err != nil {
		return nil, fmt.Errorf("CheckNote not found: %w", err)
	}
	check, ok := fn.Interface().(func(string) (string, error))
	if !ok {
		return nil, fmt.Errorf("CheckNote has wrong signature, want func(string) (string, error)")
	}
	return check, nil
}

// validatePluginImports rejects imports outside the whitelist before any
// code runs.
func validatePluginImports(code string) error {
	var forbidden []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
			continue
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
			continue
		}

		var pkg string
		if inBlock {
			pkg = strings.Trim(trimmed, `"`)
		} else if strings.HasPrefix(trimmed, "import ") {
			pkg = strings.Trim(strings.TrimPrefix(trimmed, "import "), `"`)
		} else {
			continue
		}
		if pkg == "" {
			continue
		}
		// Named imports like `j "encoding/json"`.
		if fields := strings.Fields(pkg); len(fields) == 2 {
			pkg = strings.Trim(fields[1], `"`)
		}
		if !pluginPackages[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports: %v", forbidden)
	}
	return nil
}

func wrapPlugin(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return "package main\n\n" + code
}

// pluginNote is the JSON shape handed to CheckNote.
type pluginNote struct {
	Path     string          `json:"path"`
	Title    string          `json:"title"`
	Sections []pluginSection `json:"sections"`
	Snippets []pluginSnippet `json:"snippets"`
	Links    []pluginLink    `json:"links"`
}

type pluginSection struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Anchor string `json:"anchor"`
	Line   int    `json:"line"`
	Body   string `json:"body"`
}

type pluginSnippet struct {
	Lang    string `json:"lang"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

type pluginLink struct {
	Kind     string `json:"kind"`
	Target   string `json:"target"`
	Fragment string `json:"fragment"`
	Line     int    `json:"line"`
	Text     string `json:"text"`
}

// pluginFinding is what CheckNote returns, one per problem.
type pluginFinding struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
	Detail   string `json:"detail"`
}

// pluginRule adapts an interpreted CheckNote function to the Rule interface.
type pluginRule struct {
	id      string
	check   func(string) (string, error)
	timeout time.Duration
	log     *zap.Logger
}

func (p *pluginRule) ID() string { return p.id }

func (p *pluginRule) Check(ctx context.Context, c *catalog.Corpus) []Finding {
	var findings []Finding
	for _, n := range c.Notes {
		out, err := p.checkNote(ctx, n)
		if err != nil {
			p.log.Warn("custom rule failed", zap.String("rule", p.id),
				zap.String("note", n.Path), zap.Error(err))
			return append(findings, Finding{
				Rule: "plugin-error", Severity: SeverityWarning, Path: n.Path,
				Message: fmt.Sprintf("custom rule %s failed", p.id),
				Detail:  err.Error(),
			})
		}
		findings = append(findings, out...)
	}
	return findings
}

// checkNote runs the interpreted function on one note with a deadline. The
// interpreter cannot be preempted, so on timeout the goroutine is abandoned
// and the rule reports the failure.
func (p *pluginRule) checkNote(ctx context.Context, n *notes.Note) ([]Finding, error) {
	payload, err := json.Marshal(toPluginNote(n))
	if err != nil {
		return nil, err
	}

	type result struct {
		out string
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		out, err := p.check(string(payload))
		resCh <- result{out, err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, res.err
		}
		return p.decodeFindings(n.Path, res.out)
	case <-timer.C:
		return nil, fmt.Errorf("timed out after %s", p.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pluginRule) decodeFindings(path, out string) ([]Finding, error) {
	out = strings.TrimSpace(out)
	if out == "" || out == "[]" || out == "null" {
		return nil, nil
	}
	var raw []pluginFinding
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}

	findings := make([]Finding, 0, len(raw))
	for _, pf := range raw {
		f := Finding{
			Rule:     p.id,
			Severity: SeverityWarning,
			Path:     path,
			Line:     pf.Line,
			Message:  pf.Message,
			Detail:   pf.Detail,
		}
		if pf.Rule != "" {
			f.Rule = pf.Rule
		}
		if sev, err := ParseSeverity(pf.Severity); err == nil {
			f.Severity = sev
		}
		if f.Message == "" {
			continue
		}
		findings = append(findings, f)
	}
	return findings, nil
}

func toPluginNote(n *notes.Note) pluginNote {
	pn := pluginNote{Path: n.Path, Title: n.Title}
	for _, s := range n.Sections {
		pn.Sections = append(pn.Sections, pluginSection{
			Level: s.Level, Title: s.Title, Anchor: s.Anchor, Line: s.Line, Body: s.Body,
		})
	}
	for _, s := range n.Snippets {
		pn.Snippets = append(pn.Snippets, pluginSnippet{
			Lang: s.Lang, Line: s.Line, Content: s.Content,
		})
	}
	for _, l := range n.Links {
		pn.Links = append(pn.Links, pluginLink{
			Kind: l.Kind.String(), Target: l.Target, Fragment: l.Fragment,
			Line: l.Line, Text: l.Text,
		})
	}
	return pn
}

// brokenPlugin surfaces a load failure as a finding instead of aborting the
// whole run.
type brokenPlugin struct {
	id   string
	path string
	err  error
}

func (b *brokenPlugin) ID() string { return b.id }

func (b *brokenPlugin) Check(context.Context, *catalog.Corpus) []Finding {
	return []Finding{{
		Rule:     "plugin-error",
		Severity: SeverityWarning,
		Path:     filepath.ToSlash(b.path),
		Message:  fmt.Sprintf("custom rule %s failed to load", b.id),
		Detail:   b.err.Error(),
	}}
}
