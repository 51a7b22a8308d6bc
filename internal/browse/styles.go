// Package browse is the TUI corpus browser: a note list on the left, the
// rendered note on the right.
package browse

import (
	"github.com/charmbracelet/lipgloss"

	"prepkit/internal/lint"
)

// Semantic colors, the same in light and dark terminals.
var (
	colorError   = lipgloss.Color("#e53935")
	colorWarning = lipgloss.Color("#FFC107")
	colorInfo    = lipgloss.Color("#2196F3")
	colorSuccess = lipgloss.Color("#8BC34A")

	colorTitle = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	colorMuted = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
)

// Styles holds the lipgloss styling shared by the browser and the CLI
// output printers.
type Styles struct {
	Title  lipgloss.Style
	Muted  lipgloss.Style
	Footer lipgloss.Style
	Badge  lipgloss.Style

	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style

	Pane          lipgloss.Style
	FocusedBorder lipgloss.TerminalColor
	BlurredBorder lipgloss.TerminalColor
}

// NewStyles builds the style set.
func NewStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(colorTitle).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(colorMuted),

		Footer: lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1),

		Badge: lipgloss.NewStyle().
			Background(colorTitle).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(colorInfo),

		Success: lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true),

		Pane: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()),

		FocusedBorder: colorTitle,
		BlurredBorder: colorMuted,
	}
}

// DefaultStyles returns the style set every command shares.
func DefaultStyles() Styles {
	return NewStyles()
}

// Severity returns the style for a finding severity. The lint and topics
// commands color their text output with it.
func (s Styles) Severity(sev lint.Severity) lipgloss.Style {
	switch sev {
	case lint.SeverityError:
		return s.Error
	case lint.SeverityWarning:
		return s.Warning
	default:
		return s.Info
	}
}
