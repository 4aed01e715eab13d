package ui

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"atlas/internal/api"
	"atlas/internal/model"
	"atlas/internal/util"
)

// Review form field indexes.
const (
	reviewFieldRating = iota
	reviewFieldTitle
	reviewFieldBody
	reviewFieldImage
	reviewFieldCount
)

// ReviewFormModel is the review surface for a visit: rating, title,
// markdown body and an optional image.
type ReviewFormModel struct {
	client *api.Client
	place  model.Place
	visit  model.Visit

	focusedField int
	rating       textinput.Model
	title        textinput.Model
	body         textarea.Model
	imagePath    textinput.Model
	removeImage  bool
	errorText    string
	saving       bool
}

// NewReviewFormModel creates a review form prefilled from the visit.
func NewReviewFormModel(client *api.Client, place model.Place, visit model.Visit) *ReviewFormModel {
	rating := textinput.New()
	rating.Placeholder = "1-5 (optional)"
	rating.CharLimit = 1
	rating.Focus()
	if visit.Rating != nil {
		rating.SetValue(strconv.Itoa(*visit.Rating))
	}

	title := textinput.New()
	title.Placeholder = "Review title (optional)"
	title.CharLimit = 120
	title.SetValue(visit.ReviewTitle)

	body := textarea.New()
	body.Placeholder = "How was it? Markdown supported."
	body.CharLimit = 4000
	body.SetWidth(64)
	body.SetHeight(6)
	body.SetValue(visit.ReviewText)

	imagePath := textinput.New()
	imagePath.Placeholder = "~/photos/trip.jpg (optional)"
	imagePath.CharLimit = 256

	return &ReviewFormModel{
		client:    client,
		place:     place,
		visit:     visit,
		rating:    rating,
		title:     title,
		body:      body,
		imagePath: imagePath,
	}
}

// Title returns the breadcrumb segment.
func (m *ReviewFormModel) Title() string {
	return "Review Visit"
}

// PlaceID returns the id of the place this review belongs to.
func (m *ReviewFormModel) PlaceID() int64 {
	return m.place.ID
}

// Update handles form input.
func (m *ReviewFormModel) Update(msg tea.Msg) tea.Cmd {
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
	case "ctrl+s":
		return m.submit()
	case "ctrl+x":
		m.removeImage = !m.removeImage
		return nil
	case "tab":
		m.nextField()
		return nil
	case "shift+tab":
		m.prevField()
		return nil
	}

	var cmd tea.Cmd
	switch m.focusedField {
	case reviewFieldRating:
		m.rating, cmd = m.rating.Update(keyMsg)
	case reviewFieldTitle:
		m.title, cmd = m.title.Update(keyMsg)
	case reviewFieldBody:
		m.body, cmd = m.body.Update(keyMsg)
	case reviewFieldImage:
		m.imagePath, cmd = m.imagePath.Update(keyMsg)
	}
	return cmd
}

func (m *ReviewFormModel) submit() tea.Cmd {
	if m.saving {
		return nil
	}
	var rating *int
	if s := strings.TrimSpace(m.rating.Value()); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 5 {
			m.errorText = "rating must be between 1 and 5"
			return nil
		}
		rating = &n
	}

	imagePath := expandHome(strings.TrimSpace(m.imagePath.Value()))
	if imagePath != "" {
		if _, err := os.Stat(imagePath); err != nil {
			m.errorText = fmt.Sprintf("image not found: %s", imagePath)
			return nil
		}
	}

	m.errorText = ""
	update := model.ReviewUpdate{
		Rating:      rating,
		Title:       strings.TrimSpace(m.title.Value()),
		Text:        strings.TrimSpace(m.body.Value()),
		ImagePath:   imagePath,
		RemoveImage: m.removeImage && imagePath == "",
	}
	m.saving = true
	return m.save(update)
}

func (m *ReviewFormModel) save(update model.ReviewUpdate) tea.Cmd {
	client := m.client
	visitID := m.visit.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		updated, err := client.AttachReview(ctx, visitID, update)
		if err != nil {
			return model.ErrorMsg{Kind: model.ErrMutation, Err: err}
		}
		return model.VisitSavedMsg{Visit: updated}
	}
}

func (m *ReviewFormModel) nextField() {
	m.blurField(m.focusedField)
	m.focusedField = (m.focusedField + 1) % reviewFieldCount
	m.focusField(m.focusedField)
}

func (m *ReviewFormModel) prevField() {
	m.blurField(m.focusedField)
	m.focusedField--
	if m.focusedField < 0 {
		m.focusedField = reviewFieldCount - 1
	}
	m.focusField(m.focusedField)
}

func (m *ReviewFormModel) blurField(idx int) {
	switch idx {
	case reviewFieldRating:
		m.rating.Blur()
	case reviewFieldTitle:
		m.title.Blur()
	case reviewFieldBody:
		m.body.Blur()
	case reviewFieldImage:
		m.imagePath.Blur()
	}
}

func (m *ReviewFormModel) focusField(idx int) {
	switch idx {
	case reviewFieldRating:
		m.rating.Focus()
	case reviewFieldTitle:
		m.title.Focus()
	case reviewFieldBody:
		m.body.Focus()
	case reviewFieldImage:
		m.imagePath.Focus()
	}
}

// View renders the form.
func (m *ReviewFormModel) View(width, height int) string {
	var parts []string

	header := fmt.Sprintf("%s · %s", m.place.Name, util.FormatDateTime(m.visit.When))
	parts = append(parts, TitleStyle.Render(header), "")

	parts = append(parts, renderFormField("Rating", m.rating, m.focusedField == reviewFieldRating))
	parts = append(parts, renderFormField("Title", m.title, m.focusedField == reviewFieldTitle))

	bodyLabel := LabelStyle.Render("Review")
	if m.focusedField == reviewFieldBody {
		bodyLabel = ActiveLabelStyle.Render("Review")
	}
	parts = append(parts, lipgloss.JoinVertical(lipgloss.Left, bodyLabel, m.body.View()))

	parts = append(parts, renderFormField("Image", m.imagePath, m.focusedField == reviewFieldImage))

	switch {
	case m.removeImage:
		parts = append(parts, WarnStyle.Render("current image will be removed (ctrl+x to keep it)"))
	case m.visit.ImageURL != "":
		parts = append(parts, HelpDescStyle.Render("has an image; set a new path to replace, ctrl+x to remove"))
	}

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

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
