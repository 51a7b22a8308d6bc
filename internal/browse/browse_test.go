package browse

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"prepkit/internal/catalog"
	"prepkit/internal/lint"
)

func testCorpus(t *testing.T) *catalog.Corpus {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"JS-Prep.md":    "# JavaScript Prep\n\n## Closures\n\nA closure remembers its scope.\n",
		"REACT-Prep.md": "# React Prep\n\n## Hooks\n\nHooks need a stable call order.\n",
	}
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	c, err := catalog.NewScanner(catalog.ScanConfig{Roots: []string{root}}, nil).Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return c
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func TestModelListsNotes(t *testing.T) {
	m := sized(t, New(testCorpus(t), nil, DefaultStyles()))

	view := m.View()
	if !strings.Contains(view, "JavaScript Prep") {
		t.Fatalf("expected first note title in view")
	}
	if !strings.Contains(view, "React Prep") {
		t.Fatalf("expected second note title in view")
	}
	if !strings.Contains(view, "sections") {
		t.Fatalf("expected section count in item description")
	}
}

func TestModelPreviewFollowsCursor(t *testing.T) {
	m := sized(t, New(testCorpus(t), nil, DefaultStyles()))

	if m.current == nil || m.current.Path != "JS-Prep.md" {
		t.Fatalf("expected first note selected, got %+v", m.current)
	}
	if !strings.Contains(m.viewport.View(), "closure") {
		t.Fatalf("expected rendered note body in viewport")
	}
}

func TestModelEnterFocusesViewport(t *testing.T) {
	m := sized(t, New(testCorpus(t), nil, DefaultStyles()))

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if !m.focusViewport {
		t.Fatalf("expected viewport focus after enter")
	}
}

func TestModelTabTogglesFocus(t *testing.T) {
	m := sized(t, New(testCorpus(t), nil, DefaultStyles()))

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if !m.focusViewport {
		t.Fatalf("expected viewport focus after tab")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	if m.focusViewport {
		t.Fatalf("expected list focus after second tab")
	}
}

func TestModelEscBacksOutThenQuits(t *testing.T) {
	m := sized(t, New(testCorpus(t), nil, DefaultStyles()))

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.focusViewport {
		t.Fatalf("expected esc to return focus to the list")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message, got %T", cmd())
	}
}

func TestModelShowsFindingCounts(t *testing.T) {
	report := &lint.Report{
		Findings: []lint.Finding{
			{Rule: "link-resolve", Severity: lint.SeverityError, Path: "JS-Prep.md", Line: 3, Message: "dead anchor"},
			{Rule: "snippet-syntax", Severity: lint.SeverityError, Path: "JS-Prep.md", Line: 5, Message: "syntax error"},
		},
	}
	m := sized(t, New(testCorpus(t), report, DefaultStyles()))

	if !strings.Contains(m.View(), "2 findings") {
		t.Fatalf("expected finding count in list description")
	}
}

func TestSafeRenderFallsBackWithoutRenderer(t *testing.T) {
	src := "# Heading\n\nbody\n"
	if got := safeRender(nil, src); got != src {
		t.Fatalf("expected raw source passthrough, got %q", got)
	}
}

func TestNoteItemDescription(t *testing.T) {
	c := testCorpus(t)
	item := noteItem{note: c.Notes[0], findings: 0}
	desc := item.Description()
	if !strings.Contains(desc, "JS-Prep.md") || strings.Contains(desc, "findings") {
		t.Fatalf("unexpected description %q", desc)
	}

	item.findings = 3
	if !strings.Contains(item.Description(), "3 findings") {
		t.Fatalf("expected finding count in %q", item.Description())
	}
}

func TestSeverityStyles(t *testing.T) {
	s := DefaultStyles()
	if !s.Severity(lint.SeverityError).GetBold() {
		t.Fatalf("error style should be bold")
	}
	if s.Severity(lint.SeverityInfo).GetBold() {
		t.Fatalf("info style should not be bold")
	}
}
