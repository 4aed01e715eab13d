package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"atlas/internal/api"
	"atlas/internal/model"
	"atlas/internal/util"
)

// IcsExportModel is the calendar export surface. It writes the server's
// iCalendar payload for a visit to a local file.
type IcsExportModel struct {
	client *api.Client
	place  model.Place
	visit  model.Visit

	path      textinput.Model
	errorText string
	saving    bool
}

// NewIcsExportModel creates an export form with a suggested file path.
func NewIcsExportModel(client *api.Client, place model.Place, visit model.Visit, exportDir string) *IcsExportModel {
	path := textinput.New()
	path.CharLimit = 256
	path.Focus()

	suggested := fmt.Sprintf("visit-%d.ics", visit.ID)
	if exportDir != "" {
		suggested = filepath.Join(exportDir, suggested)
	}
	path.SetValue(suggested)

	return &IcsExportModel{
		client: client,
		place:  place,
		visit:  visit,
		path:   path,
	}
}

// Title returns the breadcrumb segment.
func (m *IcsExportModel) Title() string {
	return "Export Calendar"
}

// PlaceID returns the id of the exported visit's place.
func (m *IcsExportModel) PlaceID() int64 {
	return m.place.ID
}

// Update handles form input.
func (m *IcsExportModel) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(model.ErrorMsg); ok {
		m.saving = false
		return nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch keyMsg.String() {
	case "esc":
		return func() tea.Msg { return model.FormCancelledMsg{} }
	case "ctrl+s", "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(keyMsg)
	return cmd
}

func (m *IcsExportModel) submit() tea.Cmd {
	if m.saving {
		return nil
	}
	path := expandHome(strings.TrimSpace(m.path.Value()))
	if path == "" {
		m.errorText = "a file path is required"
		return nil
	}
	m.errorText = ""
	m.saving = true

	client := m.client
	visitID := m.visit.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		data, err := client.CalendarEvent(ctx, visitID)
		if err != nil {
			return model.ErrorMsg{Kind: model.ErrMutation, Err: err}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return model.ErrorMsg{Kind: model.ErrMutation, Err: err}
		}
		return model.CalendarSavedMsg{Path: path}
	}
}

// View renders the form.
func (m *IcsExportModel) View(width, height int) string {
	var parts []string

	header := fmt.Sprintf("%s · %s", m.place.Name, util.FormatDateTime(m.visit.When))
	parts = append(parts, TitleStyle.Render(header), "")
	parts = append(parts, renderFormField("Save to *", m.path, true))
	parts = append(parts, HelpDescStyle.Render("enter saves an .ics file you can import into any calendar"))

	if m.saving {
		parts = append(parts, "", HelpDescStyle.Render("Saving..."))
	} else if m.errorText != "" {
		parts = append(parts, "", ErrorStyle.Render(m.errorText))
	}

	return PanelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
