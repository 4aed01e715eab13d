package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// surface is an editing panel shown over the map. The root model holds
// at most one surface at a time; opening another replaces it.
type surface interface {
	// Update handles a message, mutating the surface in place.
	Update(msg tea.Msg) tea.Cmd
	// View renders the surface into the content area.
	View(width, height int) string
	// Title is the breadcrumb segment for the surface.
	Title() string
}

func renderFormField(label string, input textinput.Model, focused bool) string {
	style := BorderStyle
	if focused {
		style = ActiveBorderStyle
	}

	field := lipgloss.JoinVertical(
		lipgloss.Left,
		LabelStyle.Render(label),
		input.View(),
	)

	return style.Render(field)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
