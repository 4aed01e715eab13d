package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"atlas/internal/model"
)

// renderDegradedRoster lists places textually when the map cannot
// draw. Marker selection and popup state still apply, so the usual
// keys keep working against rows instead of markers.
func renderDegradedRoster(places []model.Place, selectedID, popupID int64, width, height int) string {
	notice := EmptyStateStyle.Render("map unavailable")

	if len(places) == 0 {
		empty := EmptyStateStyle.Render("No places yet. Press  a  to add one.")
		return lipgloss.JoinVertical(lipgloss.Left, notice, empty)
	}

	var rows []string
	for _, p := range places {
		badge, ok := StatusBadgeStyles[p.Status]
		if !ok {
			badge = NormalRowStyle
		}

		glyph := "●"
		if p.ID == selectedID {
			glyph = "◉"
		}

		line := fmt.Sprintf("%s %s  %s", glyph, p.Name, badge.Render(p.Status))
		if n := len(p.Visits); n == 1 {
			line += HelpDescStyle.Render("  · 1 visit")
		} else if n > 1 {
			line += HelpDescStyle.Render(fmt.Sprintf("  · %d visits", n))
		}
		if _, hasCoord := p.Coord(); !hasCoord {
			line += HelpDescStyle.Render("  (no coordinate)")
		}

		if p.ID == selectedID {
			line = SelectedRowStyle.Render(line)
		} else {
			line = NormalRowStyle.Render(line)
		}
		rows = append(rows, line)

		if p.ID == popupID {
			rows = append(rows, renderRosterDetail(p, width)...)
		}
	}

	if len(rows) > height-2 {
		rows = rows[:max(0, height-2)]
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		notice,
		strings.Join(rows, "\n"),
	)
}

// renderRosterDetail expands the popup content under a roster row.
func renderRosterDetail(p model.Place, width int) []string {
	var lines []string

	var loc []string
	if p.Address != "" {
		loc = append(loc, p.Address)
	}
	if p.City != "" {
		loc = append(loc, p.City)
	}
	if p.Country != "" {
		loc = append(loc, p.Country)
	}
	if len(loc) > 0 {
		lines = append(lines, "    "+HelpDescStyle.Render(strings.Join(loc, ", ")))
	}
	if p.Category != "" {
		lines = append(lines, "    "+HelpDescStyle.Render(p.Category))
	}
	if len(p.Tags) > 0 {
		lines = append(lines, "    "+HelpDescStyle.Render("#"+strings.Join(p.Tags, " #")))
	}
	lines = append(lines, "    "+HelpKeyStyle.Render("e")+HelpDescStyle.Render(" edit  ")+
		HelpKeyStyle.Render("v")+HelpDescStyle.Render(" plan  ")+
		HelpKeyStyle.Render("l")+HelpDescStyle.Render(" visits  ")+
		HelpKeyStyle.Render("d")+HelpDescStyle.Render(" delete"))
	return lines
}
