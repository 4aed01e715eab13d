package ui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"atlas/internal/model"
	"atlas/internal/util"
)

// visitsWindow is the number of rows kept on screen while scrolling.
const visitsWindow = 10

// Visit sort orders, cycled with the s key. sortByWhen keeps the
// server's ordering, newest first.
const (
	sortByWhen = iota
	sortByRating
	sortByTitle
	sortKeyCount
)

// VisitsListModel is the visits surface for a single place. The rows
// it displays are derived from the server's visit ordering; s cycles
// a local sort by rating or review title without touching the
// underlying place.
type VisitsListModel struct {
	place   model.Place
	rows    []model.Visit
	sortKey int
	cursor  int
	offset  int
}

// NewVisitsListModel creates a visits list for place.
func NewVisitsListModel(place model.Place) *VisitsListModel {
	m := &VisitsListModel{place: place}
	m.rebuild()
	return m
}

// SetPlace swaps in a re-fetched copy of the place and keeps the
// cursor on a valid row. The current sort order is preserved.
func (m *VisitsListModel) SetPlace(p model.Place) {
	m.place = p
	m.rebuild()
}

// Place returns the place backing the list.
func (m *VisitsListModel) Place() model.Place {
	return m.place
}

// PlaceID returns the id of the listed place.
func (m *VisitsListModel) PlaceID() int64 {
	return m.place.ID
}

// SelectedVisit returns the visit under the cursor.
func (m *VisitsListModel) SelectedVisit() (model.Visit, bool) {
	if len(m.rows) == 0 {
		return model.Visit{}, false
	}
	return m.rows[m.cursor], true
}

// Title returns the breadcrumb segment.
func (m *VisitsListModel) Title() string {
	return "Visits"
}

// Update is a no-op; the root model drives this surface directly.
func (m *VisitsListModel) Update(tea.Msg) tea.Cmd {
	return nil
}

// CycleSort advances to the next sort order and resets the cursor.
func (m *VisitsListModel) CycleSort() {
	m.sortKey = (m.sortKey + 1) % sortKeyCount
	m.cursor = 0
	m.offset = 0
	m.rebuild()
}

// rebuild derives the displayed rows from the place's visits and the
// current sort key. Unrated and untitled visits sort to the bottom of
// their respective orders; ties keep the server's ordering.
func (m *VisitsListModel) rebuild() {
	rows := append([]model.Visit(nil), m.place.Visits...)

	switch m.sortKey {
	case sortByRating:
		sort.SliceStable(rows, func(i, j int) bool {
			ri, rj := rows[i].Rating, rows[j].Rating
			if (ri == nil) != (rj == nil) {
				return rj == nil
			}
			if ri == nil {
				return false
			}
			return *ri > *rj
		})
	case sortByTitle:
		sort.SliceStable(rows, func(i, j int) bool {
			ti := strings.ToLower(rows[i].ReviewTitle)
			tj := strings.ToLower(rows[j].ReviewTitle)
			if (ti == "") != (tj == "") {
				return tj == ""
			}
			return ti < tj
		})
	}

	m.rows = rows
	m.clampCursor()
}

// MoveDown moves the cursor down.
func (m *VisitsListModel) MoveDown() {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
		if m.cursor >= m.offset+visitsWindow {
			m.offset++
		}
	}
}

// MoveUp moves the cursor up.
func (m *VisitsListModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
		if m.cursor < m.offset {
			m.offset--
		}
	}
}

// JumpToTop jumps to the first visit.
func (m *VisitsListModel) JumpToTop() {
	m.cursor = 0
	m.offset = 0
}

// JumpToBottom jumps to the last visit.
func (m *VisitsListModel) JumpToBottom() {
	if len(m.rows) > 0 {
		m.cursor = len(m.rows) - 1
		if m.cursor >= visitsWindow {
			m.offset = m.cursor - visitsWindow + 1
		}
	}
}

func (m *VisitsListModel) clampCursor() {
	if len(m.rows) == 0 {
		m.cursor = 0
		m.offset = 0
		return
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
}

// View renders the visits list.
func (m *VisitsListModel) View(width, height int) string {
	badge, ok := StatusBadgeStyles[m.place.Status]
	if !ok {
		badge = NormalRowStyle
	}
	title := TitleStyle.Render(m.place.Name) + "  " + badge.Render(m.place.Status)

	if len(m.rows) == 0 {
		emptyMsg := `    No visits yet.
    Press  v  to plan the first one.`
		body := EmptyStateStyle.
			Width(width - 4).
			Render(emptyMsg)
		return lipgloss.JoinVertical(lipgloss.Left, title, body)
	}

	widths := []int{18, 9, 7, 0}
	headers := []string{"WHEN", "RATING", "REVIEW", "TITLE"}
	totalFixed := 0
	for _, w := range widths {
		totalFixed += w
	}
	if extra := width - totalFixed - 4; extra > 0 {
		widths[len(widths)-1] = extra
	} else {
		widths[len(widths)-1] = 12
	}

	header := renderTableRow(headers, widths, TableHeaderStyle)

	var rows []string
	for i := m.offset; i < len(m.rows) && i < m.offset+visitsWindow; i++ {
		v := m.rows[i]
		style := NormalRowStyle
		if i == m.cursor {
			style = SelectedRowStyle
		}

		ratingCell := util.FormatRating(v.Rating)
		if v.Rating != nil && i != m.cursor {
			ratingCell = lipgloss.NewStyle().Foreground(ColorYellow).Render(ratingCell)
		}

		reviewCell := "—"
		if v.Reviewed() {
			reviewCell = "✎"
		}
		if v.ImageURL != "" {
			reviewCell += " ◉"
		}

		cells := []string{
			util.FormatDateTimeHuman(v.When),
			ratingCell,
			reviewCell,
			util.TruncateString(v.ReviewTitle, widths[3]-2),
		}
		rows = append(rows, renderTableRow(cells, widths, style))
	}

	meta := ""
	switch m.sortKey {
	case sortByRating:
		meta = "  ·  sort RATING"
	case sortByTitle:
		meta = "  ·  sort TITLE"
	}
	status := StatusBarStyle.Render(fmt.Sprintf("Total visits: %d%s", len(m.rows), meta))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		header,
		strings.Join(rows, "\n"),
		"",
		status,
	)
}

// renderTableRow lays cells out in fixed-width columns.
func renderTableRow(cells []string, widths []int, style lipgloss.Style) string {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			continue
		}
		parts = append(parts, style.Width(widths[i]).Render(cell))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
