package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"atlas/internal/api"
	"atlas/internal/model"
	"atlas/internal/util"
)

// reviewImageMsg carries a fetched review image back to the view.
type reviewImageMsg struct {
	visitID int64
	data    []byte
	err     error
}

// ReviewViewModel is the read-only review surface for a visit.
type ReviewViewModel struct {
	client *api.Client
	place  model.Place
	visit  model.Visit
	caps   TerminalCapabilities

	imageASCII   string
	imageNote    string
	imageLoading bool
}

// NewReviewViewModel creates a review view.
func NewReviewViewModel(client *api.Client, place model.Place, visit model.Visit, caps TerminalCapabilities) *ReviewViewModel {
	return &ReviewViewModel{
		client: client,
		place:  place,
		visit:  visit,
		caps:   caps,
	}
}

// Title returns the breadcrumb segment.
func (m *ReviewViewModel) Title() string {
	return "Review"
}

// PlaceID returns the id of the reviewed place.
func (m *ReviewViewModel) PlaceID() int64 {
	return m.place.ID
}

// Visit returns the visit being shown.
func (m *ReviewViewModel) Visit() model.Visit {
	return m.visit
}

// LoadImage fetches the review image in the background. Returns nil
// when the visit has no image.
func (m *ReviewViewModel) LoadImage() tea.Cmd {
	if m.visit.ImageURL == "" {
		return nil
	}
	m.imageLoading = true
	client := m.client
	visitID := m.visit.ID
	imageURL := m.visit.ImageURL
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		data, err := client.FetchImage(ctx, imageURL)
		return reviewImageMsg{visitID: visitID, data: data, err: err}
	}
}

// Update handles the image fetch result.
func (m *ReviewViewModel) Update(msg tea.Msg) tea.Cmd {
	imgMsg, ok := msg.(reviewImageMsg)
	if !ok || imgMsg.visitID != m.visit.ID {
		return nil
	}
	m.imageLoading = false
	if imgMsg.err != nil {
		m.imageNote = "image unavailable"
		return nil
	}
	ascii, err := RenderReviewImage(imgMsg.data, m.caps, 64, 18)
	if err != nil {
		m.imageNote = "image could not be rendered"
		return nil
	}
	m.imageASCII = ascii
	return nil
}

// View renders the review.
func (m *ReviewViewModel) View(width, height int) string {
	var sections []string

	shortcuts := HelpDescStyle.Render("e edit  esc back")

	var fields []string
	fields = append(fields, renderDetailField("Place", m.place.Name))
	fields = append(fields, renderDetailField("When", util.FormatDateTime(m.visit.When)))

	ratingValue := util.FormatRating(m.visit.Rating)
	if m.visit.Rating != nil {
		ratingValue = lipgloss.NewStyle().Foreground(ColorYellow).Render(ratingValue)
	}
	fields = append(fields, LabelStyle.Render("Rating:")+" "+ratingValue)

	sections = append(sections, strings.Join(fields, "\n"))

	divider := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Render(strings.Repeat("─", max(8, width-8)))
	sections = append(sections, divider)

	if m.visit.ReviewTitle != "" {
		sections = append(sections, TitleStyle.Render(m.visit.ReviewTitle))
	}

	if m.visit.ReviewText != "" {
		sections = append(sections, renderMarkdown(m.visit.ReviewText, max(20, width-12)))
	} else {
		sections = append(sections, HelpDescStyle.Render("No review text for this visit"))
	}

	switch {
	case m.imageLoading:
		sections = append(sections, HelpDescStyle.Render("loading image..."))
	case m.imageASCII != "":
		sections = append(sections, m.imageASCII)
	case m.imageNote != "":
		sections = append(sections, HelpDescStyle.Render(m.imageNote))
	}

	content := PanelStyle.
		Width(width - 4).
		Render(strings.Join(sections, "\n\n"))

	header := lipgloss.NewStyle().
		Width(width - 4).
		Align(lipgloss.Right).
		Render(shortcuts)

	return lipgloss.JoinVertical(lipgloss.Left, header, content)
}

func renderDetailField(label, value string) string {
	if value == "" {
		value = "—"
	}
	return LabelStyle.Render(label+":") + " " + NormalRowStyle.Render(value)
}
