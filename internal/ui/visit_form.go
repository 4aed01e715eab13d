package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"atlas/internal/api"
	"atlas/internal/model"
	"atlas/internal/util"
)

// VisitFormModel is the plan/reschedule surface. It edits a single
// field, the visit date and time; review content has its own form.
type VisitFormModel struct {
	client    *api.Client
	place     model.Place
	visitID   int64 // 0 while planning a new visit
	when      textinput.Model
	errorText string
	saving    bool
}

// NewVisitFormModel creates a form planning a new visit to place.
func NewVisitFormModel(client *api.Client, place model.Place) *VisitFormModel {
	when := textinput.New()
	when.Placeholder = "2026-09-12 19:30"
	when.Focus()
	when.CharLimit = 48

	return &VisitFormModel{
		client: client,
		place:  place,
		when:   when,
	}
}

// LoadVisit prefills the form for rescheduling.
func (m *VisitFormModel) LoadVisit(v model.Visit) {
	m.visitID = v.ID
	m.when.SetValue(util.FormatDateTime(v.When))
}

// Title returns the breadcrumb segment.
func (m *VisitFormModel) Title() string {
	if m.visitID > 0 {
		return "Reschedule Visit"
	}
	return "Plan Visit"
}

// PlaceID returns the id of the place this visit belongs to.
func (m *VisitFormModel) PlaceID() int64 {
	return m.place.ID
}

// Update handles form input.
func (m *VisitFormModel) Update(msg tea.Msg) tea.Cmd {
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
	m.when, cmd = m.when.Update(keyMsg)
	return cmd
}

func (m *VisitFormModel) submit() tea.Cmd {
	if m.saving {
		return nil
	}
	raw := strings.TrimSpace(m.when.Value())
	if raw == "" {
		m.errorText = "a date and time is required"
		return nil
	}
	when, err := util.ParseDateTimeInput(raw)
	if err != nil {
		m.errorText = err.Error()
		return nil
	}
	m.errorText = ""
	m.saving = true
	return m.save(when)
}

func (m *VisitFormModel) save(when time.Time) tea.Cmd {
	client := m.client
	placeID := m.place.ID
	visitID := m.visitID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if visitID > 0 {
			updated, err := client.UpdateVisit(ctx, visitID, model.VisitUpdate{When: when})
			if err != nil {
				return model.ErrorMsg{Kind: model.ErrMutation, Err: err}
			}
			return model.VisitSavedMsg{Visit: updated}
		}

		created, err := client.CreateVisit(ctx, placeID, model.NewVisit{When: when})
		if err != nil {
			return model.ErrorMsg{Kind: model.ErrMutation, Err: err}
		}
		return model.VisitSavedMsg{Visit: created}
	}
}

// View renders the form.
func (m *VisitFormModel) View(width, height int) string {
	var parts []string

	parts = append(parts, LabelStyle.Render("Place"))
	parts = append(parts, "  "+m.place.Name)
	parts = append(parts, "")
	parts = append(parts, renderFormField("When *", m.when, true))
	parts = append(parts, HelpDescStyle.Render("accepts 2026-09-12 19:30, Sep 12, 2026 19:30, 9/12/2026"))

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
