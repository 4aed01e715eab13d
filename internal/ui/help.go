package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"atlas/internal/model"
)

// RenderHelp renders the context-sensitive help footer.
func RenderHelp(mode model.UIMode, popupOpen, pinning bool, width int) string {
	if pinning {
		return renderPinHelp(width)
	}

	switch mode {
	case model.ModeIdle:
		if popupOpen {
			return renderPopupHelp(width)
		}
		return renderMapHelp(width)
	case model.ModeVisitsList:
		return renderVisitsListHelp(width)
	case model.ModeSeeReview:
		return renderReviewViewHelp(width)
	case model.ModeAddPlace, model.ModeEditPlace:
		return renderPlaceFormHelp(width)
	default:
		return renderFormHelp(width)
	}
}

func renderMapHelp(width int) string {
	keys := []string{
		helpKey("hjkl", "pan"),
		helpKey("+/-", "zoom"),
		helpKey("tab", "next marker"),
		helpKey("enter", "popup"),
		helpKey("a", "add place"),
		helpKey("f", "fit all"),
		helpKey("r", "refresh"),
		helpKey("q", "quit"),
		helpKey("?", "help"),
	}
	return renderHelpLine(keys, width)
}

func renderPopupHelp(width int) string {
	keys := []string{
		helpKey("e", "edit"),
		helpKey("v", "plan visit"),
		helpKey("l", "visits"),
		helpKey("d", "delete"),
		helpKey("tab", "next marker"),
		helpKey("esc", "close"),
	}
	return renderHelpLine(keys, width)
}

func renderPinHelp(width int) string {
	keys := []string{
		helpKey("hjkl", "move pin"),
		helpKey("enter", "confirm"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func renderVisitsListHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("s", "sort"),
		helpKey("v", "plan"),
		helpKey("e", "reschedule"),
		helpKey("r", "review"),
		helpKey("x", "see review"),
		helpKey("c", "calendar"),
		helpKey("d", "delete"),
		helpKey("esc", "back"),
	}
	return renderHelpLine(keys, width)
}

func renderReviewViewHelp(width int) string {
	keys := []string{
		helpKey("e", "edit review"),
		helpKey("esc", "back"),
	}
	return renderHelpLine(keys, width)
}

func renderPlaceFormHelp(width int) string {
	keys := []string{
		helpKey("tab", "next field"),
		helpKey("ctrl+g", "geocode"),
		helpKey("ctrl+p", "pick on map"),
		helpKey("ctrl+s", "save"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func renderFormHelp(width int) string {
	keys := []string{
		helpKey("tab", "next field"),
		helpKey("shift+tab", "prev field"),
		helpKey("ctrl+s", "save"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(height-6).
		Padding(1, 2)

	sections := []string{
		titleSection("Map"),
		helpSection([]helpItem{
			{"h/j/k/l or arrows", "Pan the map"},
			{"+ / -", "Zoom in / out"},
			{"tab / shift+tab", "Cycle marker selection"},
			{"enter", "Open popup on selected marker"},
			{"f", "Fit all markers"},
			{"a", "Add a place"},
			{"r", "Refresh from server"},
			{"q", "Quit"},
			{"?", "Toggle help"},
		}),
		titleSection("Marker Popup"),
		helpSection([]helpItem{
			{"e", "Edit place"},
			{"v", "Plan a visit"},
			{"l", "Open visits list"},
			{"d", "Delete place"},
			{"esc", "Close popup"},
		}),
		titleSection("Visits List"),
		helpSection([]helpItem{
			{"j / k", "Move cursor"},
			{"g / G", "Jump to top / bottom"},
			{"s", "Cycle sort: newest, rating, title"},
			{"v", "Plan another visit"},
			{"e", "Reschedule selected visit"},
			{"r", "Review selected visit"},
			{"x", "See review"},
			{"c", "Export calendar event"},
			{"d", "Delete selected visit"},
			{"esc", "Back to map"},
		}),
		titleSection("Forms"),
		helpSection([]helpItem{
			{"tab / shift+tab", "Next / previous field"},
			{"ctrl+g", "Geocode the address (place form)"},
			{"ctrl+p", "Pick coordinate on map (place form)"},
			{"ctrl+x", "Toggle image removal (review form)"},
			{"ctrl+s", "Save"},
			{"esc", "Cancel"},
		}),
		titleSection("Map Pinning"),
		helpSection([]helpItem{
			{"h/j/k/l or arrows", "Move the pin"},
			{"enter", "Confirm coordinate"},
			{"esc", "Cancel, keep form values"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
