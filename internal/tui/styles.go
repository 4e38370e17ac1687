package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/livetodo/internal/ui"
)

// ------- Lip Gloss styles, rebuilt from the active ui theme -------
var (
	titleStyle    lipgloss.Style
	successStyle  lipgloss.Style
	pendingStyle  lipgloss.Style
	accentStyle   lipgloss.Style
	mutedStyle    lipgloss.Style
	errorStyle    lipgloss.Style
	selectedStyle lipgloss.Style
	doneStyle     lipgloss.Style
	helpStyle     lipgloss.Style
	frameStyle    lipgloss.Style
)

func init() { applyTheme(ui.Current()) }

func applyTheme(t ui.Theme) {
	fg := func(c string) lipgloss.Style {
		s := lipgloss.NewStyle()
		if c != "" && !t.NoColor {
			s = s.Foreground(lipgloss.Color(c))
		}
		return s
	}
	p := t.Colors

	titleStyle = lipgloss.NewStyle().Bold(true)
	successStyle = fg(p.Success)
	pendingStyle = fg(p.Pending)
	accentStyle = fg(p.Accent)
	mutedStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = fg(p.Error).Bold(true)

	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	helpStyle = lipgloss.NewStyle().Faint(true)

	border := lipgloss.RoundedBorder()
	if t.NoColor {
		border = lipgloss.NormalBorder()
	}
	frameStyle = lipgloss.NewStyle().
		Border(border).
		BorderForeground(lipgloss.Color(p.Border)).
		Padding(0, 1)
}

func boxes() (checked, unchecked string) {
	t := ui.Current()
	return t.BoxChecked, t.BoxUnchecked
}

func panelString(inner string) string {
	return frameStyle.Render(inner)
}
