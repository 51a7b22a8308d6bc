package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prepkit/internal/config"
	"prepkit/internal/lint"
	"prepkit/internal/roadmap"
)

// setupCLI points the package globals at a temp corpus the way
// PersistentPreRunE would after flag parsing.
func setupCLI(t *testing.T, root string) {
	t.Helper()
	logger = zap.NewNop()
	timeout = 30 * time.Second

	cfg = config.DefaultConfig()
	cfg.Docs.Roots = []string{root}
	cfg.Store.DatabasePath = filepath.Join(t.TempDir(), "index.db")
	cfg.Store.CacheDir = ""
	cfg.Lint.PluginsDir = ""
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// cleanCorpus lints without findings: one listed note, resolving links,
// valid snippets.
func cleanCorpus(t *testing.T) string {
	t.Helper()
	return writeCorpus(t, map[string]string{
		"README.md": "# Study Notes\n\n## Available Topics\n\n- [JavaScript Prep](JS-Prep.md)\n",
		"JS-Prep.md": "# JavaScript Prep\n\n## Closures\n\nA closure keeps its scope alive.\n\n" +
			"```javascript\nfunction counter() {\n  let n = 0;\n  return () => ++n;\n}\n```\n",
	})
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	return cmd, buf
}

func TestLintCmdCleanCorpus(t *testing.T) {
	setupCLI(t, cleanCorpus(t))
	cmd, buf := newTestCmd()

	if err := runLint(cmd, nil); err != nil {
		t.Fatalf("runLint failed: %v", err)
	}
	if !strings.Contains(buf.String(), "checked 2 notes") {
		t.Errorf("summary missing from output:\n%s", buf.String())
	}
}

func TestLintCmdFailsOnDeadAnchor(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"README.md":  "# Study Notes\n\n## Available Topics\n\n- [JavaScript Prep](JS-Prep.md)\n",
		"JS-Prep.md": "# JavaScript Prep\n\nSee [hoisting](#hoisting) for details.\n",
	})
	setupCLI(t, root)
	cmd, buf := newTestCmd()

	err := runLint(cmd, nil)
	if err == nil {
		t.Fatal("expected lint to fail on a dead anchor")
	}
	if !strings.Contains(err.Error(), "lint failed") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "dead anchor") {
		t.Errorf("finding missing from output:\n%s", buf.String())
	}
}

func TestLintCmdJSONFilteredByPath(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"README.md":     "# Study Notes\n\n## Available Topics\n\n- [JavaScript Prep](JS-Prep.md)\n- [React Prep](REACT-Prep.md)\n",
		"JS-Prep.md":    "# JavaScript Prep\n\nSee [hoisting](#hoisting).\n",
		"REACT-Prep.md": "# React Prep\n\nSee [hooks](#hooks).\n",
	})
	setupCLI(t, root)
	cmd, buf := newTestCmd()

	lintFormat = "json"
	defer func() { lintFormat = "text" }()

	err := runLint(cmd, []string{"JS-Prep.md"})
	if err == nil {
		t.Fatal("expected lint to fail")
	}

	var report lint.Report
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not a JSON report: %v", err)
	}
	if len(report.Findings) == 0 {
		t.Fatal("filtered report has no findings")
	}
	for _, f := range report.Findings {
		if f.Path != "JS-Prep.md" {
			t.Errorf("finding for %s survived the path filter", f.Path)
		}
	}
}

func TestIndexSearchStatsFlow(t *testing.T) {
	setupCLI(t, cleanCorpus(t))

	cmd, buf := newTestCmd()
	if err := runIndex(cmd, nil); err != nil {
		t.Fatalf("runIndex failed: %v", err)
	}
	if !strings.Contains(buf.String(), "indexed 2 notes") {
		t.Errorf("unexpected index summary:\n%s", buf.String())
	}

	// A second changed-only pass skips everything.
	indexChanged = true
	defer func() { indexChanged = false }()
	cmd, buf = newTestCmd()
	if err := runIndex(cmd, nil); err != nil {
		t.Fatalf("incremental runIndex failed: %v", err)
	}
	if !strings.Contains(buf.String(), "indexed 0 notes (2 skipped") {
		t.Errorf("unexpected incremental summary:\n%s", buf.String())
	}

	cmd, buf = newTestCmd()
	if err := runSearch(cmd, []string{"closures"}); err != nil {
		t.Fatalf("runSearch failed: %v", err)
	}
	if !strings.Contains(buf.String(), "JS-Prep.md") {
		t.Errorf("hit missing from search output:\n%s", buf.String())
	}

	// Lint records its run now that the index exists.
	cmd, _ = newTestCmd()
	if err := runLint(cmd, nil); err != nil {
		t.Fatalf("runLint failed: %v", err)
	}

	cmd, buf = newTestCmd()
	if err := runStats(cmd, nil); err != nil {
		t.Fatalf("runStats failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Index (") {
		t.Errorf("index section missing from stats:\n%s", out)
	}
	if !strings.Contains(out, "lint runs: 1") {
		t.Errorf("run history missing from stats:\n%s", out)
	}
}

func TestSearchCmdEmptyIndex(t *testing.T) {
	setupCLI(t, cleanCorpus(t))
	cmd, _ := newTestCmd()

	err := runSearch(cmd, []string{"closures"})
	if err == nil || !strings.Contains(err.Error(), "index is empty") {
		t.Fatalf("expected empty-index error, got %v", err)
	}
}

func TestStatsCmdJSON(t *testing.T) {
	setupCLI(t, cleanCorpus(t))
	cmd, buf := newTestCmd()

	statsFormat = "json"
	defer func() { statsFormat = "text" }()

	if err := runStats(cmd, nil); err != nil {
		t.Fatalf("runStats failed: %v", err)
	}

	var out statsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if out.Corpus.Notes != 2 {
		t.Errorf("corpus notes = %d, want 2", out.Corpus.Notes)
	}
	if out.Index != nil {
		t.Error("index stats reported without a database")
	}
}

func TestTopicsCmdReportsDrift(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"README.md":  "# Study Notes\n\n## Available Topics\n\n- [JavaScript Prep](JS-Prep.md)\n\n## Coming Soon\n\n- TypeScript\n",
		"JS-Prep.md": "# JavaScript Prep\n\nBody.\n",
		"TS-Prep.md": "# TypeScript Prep\n\nBody.\n",
	})
	setupCLI(t, root)
	cmd, buf := newTestCmd()

	topicsFormat = "json"
	defer func() { topicsFormat = "text" }()

	if err := runTopics(cmd, nil); err != nil {
		t.Fatalf("runTopics failed: %v", err)
	}

	var diff roadmap.Diff
	if err := json.Unmarshal(buf.Bytes(), &diff); err != nil {
		t.Fatalf("output is not a JSON diff: %v", err)
	}
	if len(diff.Premature) != 1 || diff.Premature[0].Title != "TypeScript" {
		t.Errorf("premature entries = %+v", diff.Premature)
	}
	if len(diff.Unlisted) != 1 || diff.Unlisted[0] != "TS-Prep.md" {
		t.Errorf("unlisted notes = %+v", diff.Unlisted)
	}
}

func TestTopicsCmdNoIndexSection(t *testing.T) {
	root := writeCorpus(t, map[string]string{
		"README.md": "# Study Notes\n\nNo index here.\n",
	})
	setupCLI(t, root)
	cmd, _ := newTestCmd()

	err := runTopics(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "no Available Topics section") {
		t.Fatalf("expected missing-section error, got %v", err)
	}
}

func TestTocCmdSingleNote(t *testing.T) {
	setupCLI(t, cleanCorpus(t))
	cmd, buf := newTestCmd()

	if err := runToc(cmd, []string{"JS-Prep.md"}); err != nil {
		t.Fatalf("runToc failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Closures") || !strings.Contains(out, "#closures") {
		t.Errorf("outline missing heading or anchor:\n%s", out)
	}
	if strings.Contains(out, "README.md") {
		t.Errorf("single-note outline included other notes:\n%s", out)
	}
}

func TestTocCmdUnknownNote(t *testing.T) {
	setupCLI(t, cleanCorpus(t))
	cmd, _ := newTestCmd()

	if err := runToc(cmd, []string{"GO-Prep.md"}); err == nil {
		t.Fatal("expected an error for an unknown note")
	}
}

func TestRenderCmd(t *testing.T) {
	root := cleanCorpus(t)
	setupCLI(t, root)
	cmd, buf := newTestCmd()

	if err := runRender(cmd, []string{filepath.Join(root, "JS-Prep.md")}); err != nil {
		t.Fatalf("runRender failed: %v", err)
	}
	if !strings.Contains(buf.String(), "JavaScript Prep") {
		t.Errorf("rendered output missing title:\n%s", buf.String())
	}

	// Corpus-relative paths work too.
	cmd, buf = newTestCmd()
	if err := runRender(cmd, []string{"JS-Prep.md"}); err != nil {
		t.Fatalf("runRender by corpus path failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Closures") {
		t.Errorf("rendered output missing heading:\n%s", buf.String())
	}
}

func TestInitCmd(t *testing.T) {
	setupCLI(t, t.TempDir())
	ws := t.TempDir()

	oldPath := cfgPath
	cfgPath = filepath.Join(ws, ".prepkit.yaml")
	defer func() { cfgPath = oldPath }()

	cmd, buf := newTestCmd()
	if err := runInit(cmd, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}
	if !strings.Contains(buf.String(), "wrote") {
		t.Errorf("unexpected init output:\n%s", buf.String())
	}

	// The scaffolded config must load and the sample rule must exist.
	loaded, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("scaffolded config does not load: %v", err)
	}
	if loaded.Lint.FailOn != "error" {
		t.Errorf("scaffolded fail_on = %q", loaded.Lint.FailOn)
	}
	if _, err := os.Stat(filepath.Join(ws, ".prepkit", "rules", "todo.go")); err != nil {
		t.Errorf("sample rule missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ws, ".prepkit", ".gitignore")); err != nil {
		t.Errorf(".gitignore missing: %v", err)
	}

	// A second run refuses to clobber the config.
	if err := runInit(cmd, nil); err == nil {
		t.Fatal("expected runInit to refuse overwriting")
	}
}

func TestVersionCmd(t *testing.T) {
	buf := new(bytes.Buffer)
	versionCmd.SetOut(buf)
	versionCmd.Run(versionCmd, nil)
	if !strings.Contains(buf.String(), "prepkit "+version) {
		t.Errorf("unexpected version output: %q", buf.String())
	}
}

func TestFilterReport(t *testing.T) {
	report := &lint.Report{
		Findings: []lint.Finding{
			{Rule: "a", Severity: lint.SeverityError, Path: "JS-Prep.md"},
			{Rule: "b", Severity: lint.SeverityWarning, Path: "guides/CSS-Prep.md"},
			{Rule: "c", Severity: lint.SeverityInfo, Path: "REACT-Prep.md"},
		},
		Errors: 1, Warnings: 1, Infos: 1,
	}

	got := filterReport(report, []string{"guides/"})
	if len(got.Findings) != 1 || got.Findings[0].Path != "guides/CSS-Prep.md" {
		t.Fatalf("filtered findings = %+v", got.Findings)
	}
	if got.Errors != 0 || got.Warnings != 1 || got.Infos != 0 {
		t.Errorf("recount = %d/%d/%d, want 0/1/0", got.Errors, got.Warnings, got.Infos)
	}
	if len(report.Findings) != 3 {
		t.Error("filter mutated the original report")
	}
}

func TestRuleOverrides(t *testing.T) {
	setupCLI(t, t.TempDir())

	cfg.Lint.Rules = map[string]config.RuleOverride{
		"snippet-language": {Severity: "info"},
		"roadmap-overlap":  {Disabled: true},
	}
	overrides, err := ruleOverrides()
	if err != nil {
		t.Fatalf("ruleOverrides failed: %v", err)
	}
	if ov := overrides["snippet-language"]; ov.Severity == nil || *ov.Severity != lint.SeverityInfo {
		t.Errorf("severity override = %+v", ov)
	}
	if !overrides["roadmap-overlap"].Disabled {
		t.Error("disabled override lost")
	}

	cfg.Lint.Rules = map[string]config.RuleOverride{"x": {Severity: "loud"}}
	if _, err := ruleOverrides(); err == nil {
		t.Fatal("expected an error for an invalid severity")
	}
}
