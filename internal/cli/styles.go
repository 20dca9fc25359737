package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorTitle   = lipgloss.Color("#7C3AED")
	colorAccent  = lipgloss.Color("#06B6D4")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorFree    = lipgloss.Color("#3B82F6")
)

// styles are bound to the renderer of the writer they print to, so output to a pipe or buffer carries no escape codes.
type styles struct {
	title   lipgloss.Style
	accent  lipgloss.Style
	success lipgloss.Style
	money   lipgloss.Style
	free    lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(colorTitle),
		accent:  r.NewStyle().Foreground(colorAccent),
		success: r.NewStyle().Bold(true).Foreground(colorSuccess),
		money:   r.NewStyle().Bold(true).Foreground(colorSuccess),
		free:    r.NewStyle().Bold(true).Foreground(colorFree),
		warn:    r.NewStyle().Foreground(colorWarning),
		err:     r.NewStyle().Bold(true).Foreground(colorError),
	}
}
