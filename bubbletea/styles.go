package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/tutor"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	Student lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Muted   lipgloss.Style
	Accent  lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t tutor.Theme) Styles {
	return Styles{
		Student: lipgloss.NewStyle().Foreground(ansiColor(t.Student)).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Hint:    lipgloss.NewStyle().Foreground(ansiColor(t.Hint)).Italic(true),
		Muted:   lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
		Accent:  lipgloss.NewStyle().Foreground(ansiColor(t.Accent)).Bold(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
