package browse

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"prepkit/internal/catalog"
	"prepkit/internal/lint"
	"prepkit/internal/notes"
)

// noteItem adapts notes.Note to list.Item.
type noteItem struct {
	note     *notes.Note
	findings int
}

func (i noteItem) Title() string {
	if i.note.Title != "" {
		return i.note.Title
	}
	return i.note.Path
}

func (i noteItem) Description() string {
	desc := fmt.Sprintf("%s | %d sections | %d snippets",
		i.note.Path, len(i.note.Sections), len(i.note.Snippets))
	if i.findings > 0 {
		desc += fmt.Sprintf(" | %d findings", i.findings)
	}
	return desc
}

func (i noteItem) FilterValue() string { return i.note.Title + " " + i.note.Path }

// Model is the browser: note list on the left, rendered note on the right.
type Model struct {
	list     list.Model
	viewport viewport.Model
	styles   Styles
	renderer *glamour.TermRenderer

	corpus *catalog.Corpus

	focusViewport bool
	current       *notes.Note
	width         int
	height        int
	ready         bool
}

// New builds the browser over a scanned corpus. report may be nil; when
// present each note shows its finding count in the list.
func New(corpus *catalog.Corpus, report *lint.Report, styles Styles) Model {
	counts := make(map[string]int)
	if report != nil {
		for _, f := range report.Findings {
			counts[f.Path]++
		}
	}

	items := make([]list.Item, 0, len(corpus.Notes))
	for _, n := range corpus.Notes {
		items = append(items, noteItem{note: n, findings: counts[n.Path]})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Notes"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = styles.Title

	vp := viewport.New(0, 0)
	vp.SetContent("Select a note to read it.")

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return Model{
		list:     l,
		viewport: vp,
		styles:   styles,
		renderer: renderer,
		corpus:   corpus,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		m.ready = true
		if m.current != nil {
			m.showNote(m.current)
		}

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "q", "esc":
				if m.focusViewport {
					m.focusViewport = false
					return m, nil
				}
				return m, tea.Quit

			case "tab":
				if m.current != nil {
					m.focusViewport = !m.focusViewport
				}
				return m, nil

			case "enter":
				if !m.focusViewport {
					if sel, ok := m.list.SelectedItem().(noteItem); ok {
						m.showNote(sel.note)
						m.focusViewport = true
					}
					return m, nil
				}

			case "r":
				if m.current != nil {
					m.showNote(m.current)
					cmds = append(cmds, m.list.NewStatusMessage(
						m.styles.Muted.Render("re-rendered "+m.current.Path)))
				}
			}
		}
	}

	// Route events to the focused component. Non-key messages go to both.
	_, isKey := msg.(tea.KeyMsg)
	updateList := !isKey || !m.focusViewport || m.list.FilterState() == list.Filtering
	updateViewport := !isKey || (m.focusViewport && m.list.FilterState() != list.Filtering)

	if updateList {
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}
	if updateViewport {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	// The preview follows the list cursor.
	if sel, ok := m.list.SelectedItem().(noteItem); ok {
		if m.current == nil || m.current.Path != sel.note.Path {
			m.showNote(sel.note)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "loading corpus..."
	}

	// List pane 35%, reading pane the rest.
	listWidth := int(float64(m.width) * 0.35)
	viewWidth := m.width - listWidth

	listStyle := m.styles.Pane.BorderForeground(m.styles.FocusedBorder)
	viewStyle := m.styles.Pane.BorderForeground(m.styles.BlurredBorder)
	if m.focusViewport {
		listStyle = m.styles.Pane.BorderForeground(m.styles.BlurredBorder)
		viewStyle = m.styles.Pane.BorderForeground(m.styles.FocusedBorder)
	}

	listView := listStyle.Width(listWidth - 2).Render(m.list.View())
	contentView := viewStyle.Width(viewWidth - 2).Render(m.viewport.View())
	main := lipgloss.JoinHorizontal(lipgloss.Top, listView, contentView)

	footer := m.styles.Footer.Render(" • enter: open • tab: focus • /: filter • r: re-render • q: quit")
	if sel, ok := m.list.SelectedItem().(noteItem); ok && sel.findings > 0 {
		badge := m.styles.Badge.Render(fmt.Sprintf("%d findings", sel.findings))
		footer = lipgloss.JoinHorizontal(lipgloss.Center, badge, footer)
	}
	return lipgloss.JoinVertical(lipgloss.Left, main, footer)
}

func (m *Model) setSize(w, h int) {
	m.width = w
	m.height = h

	listWidth := int(float64(w) * 0.35)
	viewWidth := w - listWidth

	// Border(2) + Padding(2) per pane, one footer line.
	chromeW := 4
	paneH := h - 3
	if paneH < 1 {
		paneH = 1
	}

	m.list.SetSize(listWidth-chromeW, paneH)
	m.viewport.Width = viewWidth - chromeW
	m.viewport.Height = paneH

	wrap := viewWidth - chromeW - 2
	if wrap < 20 {
		wrap = 20
	}
	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
}

func (m *Model) showNote(n *notes.Note) {
	m.current = n
	data, err := os.ReadFile(n.AbsPath)
	if err != nil {
		m.viewport.SetContent(m.styles.Error.Render(fmt.Sprintf("read %s: %v", n.Path, err)))
		return
	}
	m.viewport.SetContent(safeRender(m.renderer, string(data)))
	m.viewport.GotoTop()
}

// safeRender renders markdown through glamour, falling back to the raw
// source when the renderer errors or panics on the input.
func safeRender(r *glamour.TermRenderer, src string) (out string) {
	if r == nil {
		return src
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = src
		}
	}()
	rendered, err := r.Render(src)
	if err != nil {
		return src
	}
	return rendered
}

// Run opens the browser and blocks until the user quits.
func Run(corpus *catalog.Corpus, report *lint.Report) error {
	m := New(corpus, report, DefaultStyles())
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
