package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"atlas/internal/api"
	"atlas/internal/model"
	"atlas/internal/util"
)

// Place form field indexes.
const (
	placeFieldName = iota
	placeFieldCategory
	placeFieldAddress
	placeFieldCity
	placeFieldCountry
	placeFieldTags
	placeFieldLat
	placeFieldLon
	placeFieldCount
)

// PlaceFormModel is the add/edit place surface.
type PlaceFormModel struct {
	client  *api.Client
	placeID int64 // 0 while creating

	focusedField int
	inputs       []textinput.Model
	errorText    string
	infoText     string
	saving       bool

	// Geocode state
	geocodeSeq int
	geocoding  bool
	spinner    spinner.Model

	tagVocab []string
}

// NewPlaceFormModel creates an empty form for a new place.
func NewPlaceFormModel(client *api.Client, tagVocab []string) *PlaceFormModel {
	inputs := make([]textinput.Model, placeFieldCount)

	inputs[placeFieldName] = textinput.New()
	inputs[placeFieldName].Placeholder = "Place name"
	inputs[placeFieldName].Focus()
	inputs[placeFieldName].CharLimit = 120

	inputs[placeFieldCategory] = textinput.New()
	inputs[placeFieldCategory].Placeholder = "cafe, museum, park... (optional)"
	inputs[placeFieldCategory].CharLimit = 60

	inputs[placeFieldAddress] = textinput.New()
	inputs[placeFieldAddress].Placeholder = "Street address (optional)"
	inputs[placeFieldAddress].CharLimit = 160

	inputs[placeFieldCity] = textinput.New()
	inputs[placeFieldCity].Placeholder = "City (optional)"
	inputs[placeFieldCity].CharLimit = 80

	inputs[placeFieldCountry] = textinput.New()
	inputs[placeFieldCountry].Placeholder = "Country (optional)"
	inputs[placeFieldCountry].CharLimit = 56

	inputs[placeFieldTags] = textinput.New()
	inputs[placeFieldTags].Placeholder = "comma separated (optional)"
	inputs[placeFieldTags].CharLimit = 200

	inputs[placeFieldLat] = textinput.New()
	inputs[placeFieldLat].Placeholder = "48.8584"
	inputs[placeFieldLat].CharLimit = 24

	inputs[placeFieldLon] = textinput.New()
	inputs[placeFieldLon].Placeholder = "2.2945"
	inputs[placeFieldLon].CharLimit = 24

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &PlaceFormModel{
		client:   client,
		inputs:   inputs,
		spinner:  sp,
		tagVocab: tagVocab,
	}
}

// LoadPlace prefills the form for editing.
func (m *PlaceFormModel) LoadPlace(p model.Place) {
	m.placeID = p.ID
	m.inputs[placeFieldName].SetValue(p.Name)
	m.inputs[placeFieldCategory].SetValue(p.Category)
	m.inputs[placeFieldAddress].SetValue(p.Address)
	m.inputs[placeFieldCity].SetValue(p.City)
	m.inputs[placeFieldCountry].SetValue(p.Country)
	m.inputs[placeFieldTags].SetValue(strings.Join(p.Tags, ", "))
	if p.Latitude != nil {
		m.inputs[placeFieldLat].SetValue(formatCoordInput(*p.Latitude))
	}
	if p.Longitude != nil {
		m.inputs[placeFieldLon].SetValue(formatCoordInput(*p.Longitude))
	}
}

// Title returns the breadcrumb segment.
func (m *PlaceFormModel) Title() string {
	if m.placeID > 0 {
		return "Edit Place"
	}
	return "Add Place"
}

// FormID identifies this form for pinning sessions.
func (m *PlaceFormModel) FormID() string {
	if m.placeID > 0 {
		return fmt.Sprintf("place:%d", m.placeID)
	}
	return "place:new"
}

// PlaceID returns the edited place id, 0 while creating.
func (m *PlaceFormModel) PlaceID() int64 {
	return m.placeID
}

// CommittedCoordinate parses the coordinate fields. ok is false when
// they are empty or not a valid pair.
func (m *PlaceFormModel) CommittedCoordinate() (model.Coordinate, bool) {
	lat, err := util.ParseOptionalFloat(m.inputs[placeFieldLat].Value())
	if err != nil || lat == nil {
		return model.Coordinate{}, false
	}
	lon, err := util.ParseOptionalFloat(m.inputs[placeFieldLon].Value())
	if err != nil || lon == nil {
		return model.Coordinate{}, false
	}
	coord := model.Coordinate{Lat: *lat, Lon: *lon}
	return coord, coord.Valid()
}

// CommitCoordinate writes a coordinate picked on the map into the
// form's fields.
func (m *PlaceFormModel) CommitCoordinate(c model.Coordinate) {
	m.inputs[placeFieldLat].SetValue(formatCoordInput(c.Lat))
	m.inputs[placeFieldLon].SetValue(formatCoordInput(c.Lon))
	m.errorText = ""
	m.infoText = "coordinate set from map pin"
}

// Update handles form input and geocode responses.
func (m *PlaceFormModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case model.ErrorMsg:
		// The save call failed; submitting is allowed again.
		m.saving = false
		return nil

	case model.GeocodedMsg:
		if msg.Seq != m.geocodeSeq {
			return nil
		}
		m.geocoding = false
		if msg.Err != nil {
			m.errorText = fmt.Sprintf("geocoding failed: %v", msg.Err)
			return nil
		}
		m.errorText = ""
		m.applyGeocode(msg.Result)
		return nil

	case spinner.TickMsg:
		if !m.geocoding {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
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
	case "ctrl+g":
		return m.startGeocode()
	case "tab":
		m.nextField()
		return nil
	case "shift+tab":
		m.prevField()
		return nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(keyMsg)
	return cmd
}

func (m *PlaceFormModel) applyGeocode(res model.GeocodeResult) {
	m.inputs[placeFieldLat].SetValue(formatCoordInput(res.Latitude))
	m.inputs[placeFieldLon].SetValue(formatCoordInput(res.Longitude))
	// Only fill location fields the user left blank.
	if strings.TrimSpace(m.inputs[placeFieldAddress].Value()) == "" && res.Address != "" {
		m.inputs[placeFieldAddress].SetValue(res.Address)
	}
	if strings.TrimSpace(m.inputs[placeFieldCity].Value()) == "" && res.City != "" {
		m.inputs[placeFieldCity].SetValue(res.City)
	}
	if strings.TrimSpace(m.inputs[placeFieldCountry].Value()) == "" && res.Country != "" {
		m.inputs[placeFieldCountry].SetValue(res.Country)
	}
	m.infoText = util.TruncateString(res.DisplayName, 72)
}

func (m *PlaceFormModel) startGeocode() tea.Cmd {
	var parts []string
	for _, idx := range []int{placeFieldAddress, placeFieldCity, placeFieldCountry} {
		if v := strings.TrimSpace(m.inputs[idx].Value()); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		m.errorText = "enter an address, city or country to geocode"
		return nil
	}

	m.geocodeSeq++
	seq := m.geocodeSeq
	m.geocoding = true
	m.errorText = ""
	m.infoText = ""
	query := strings.Join(parts, ", ")

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		res, err := m.client.Geocode(ctx, query)
		return model.GeocodedMsg{Seq: seq, Result: res, Err: err}
	})
}

// submit validates inline and only then dispatches the save call.
// While a save is in flight further submits are ignored.
func (m *PlaceFormModel) submit() tea.Cmd {
	if m.saving {
		return nil
	}
	name := strings.TrimSpace(m.inputs[placeFieldName].Value())
	if name == "" {
		m.errorText = "name is required"
		return nil
	}

	latStr := strings.TrimSpace(m.inputs[placeFieldLat].Value())
	lonStr := strings.TrimSpace(m.inputs[placeFieldLon].Value())
	if latStr == "" && lonStr == "" {
		m.errorText = "a coordinate is required: ctrl+g geocodes the address, ctrl+p picks on the map"
		return nil
	}
	lat, err := util.ParseOptionalFloat(latStr)
	if err != nil {
		m.errorText = "latitude must be a number"
		return nil
	}
	lon, err := util.ParseOptionalFloat(lonStr)
	if err != nil {
		m.errorText = "longitude must be a number"
		return nil
	}
	if lat == nil || lon == nil {
		m.errorText = "latitude and longitude must both be set"
		return nil
	}
	if !(model.Coordinate{Lat: *lat, Lon: *lon}).Valid() {
		m.errorText = "coordinate out of range"
		return nil
	}

	m.errorText = ""
	payload := model.NewPlace{
		Name:      name,
		Category:  strings.TrimSpace(m.inputs[placeFieldCategory].Value()),
		Address:   strings.TrimSpace(m.inputs[placeFieldAddress].Value()),
		City:      strings.TrimSpace(m.inputs[placeFieldCity].Value()),
		Country:   strings.TrimSpace(m.inputs[placeFieldCountry].Value()),
		Latitude:  lat,
		Longitude: lon,
		Tags:      util.ParseTags(m.inputs[placeFieldTags].Value()),
	}
	m.saving = true
	return m.save(payload)
}

func (m *PlaceFormModel) save(payload model.NewPlace) tea.Cmd {
	client := m.client
	placeID := m.placeID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if placeID > 0 {
			updated, err := client.UpdatePlace(ctx, placeID, model.PlaceUpdate{
				Name:      payload.Name,
				Category:  payload.Category,
				Address:   payload.Address,
				City:      payload.City,
				Country:   payload.Country,
				Latitude:  payload.Latitude,
				Longitude: payload.Longitude,
				Tags:      payload.Tags,
			})
			if err != nil {
				return model.ErrorMsg{Kind: model.ErrMutation, Err: err}
			}
			return model.PlaceSavedMsg{Place: updated}
		}

		created, err := client.CreatePlace(ctx, payload)
		if err != nil {
			return model.ErrorMsg{Kind: model.ErrMutation, Err: err}
		}
		return model.PlaceSavedMsg{Place: created, Created: true}
	}
}

func (m *PlaceFormModel) nextField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField = (m.focusedField + 1) % len(m.inputs)
	m.inputs[m.focusedField].Focus()
}

func (m *PlaceFormModel) prevField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField--
	if m.focusedField < 0 {
		m.focusedField = len(m.inputs) - 1
	}
	m.inputs[m.focusedField].Focus()
}

// View renders the form.
func (m *PlaceFormModel) View(width, height int) string {
	var fields []string

	fields = append(fields, renderFormField("Name *", m.inputs[placeFieldName], m.focusedField == placeFieldName))
	fields = append(fields, renderFormField("Category", m.inputs[placeFieldCategory], m.focusedField == placeFieldCategory))
	fields = append(fields, renderFormField("Address", m.inputs[placeFieldAddress], m.focusedField == placeFieldAddress))
	fields = append(fields, renderFormField("City", m.inputs[placeFieldCity], m.focusedField == placeFieldCity))
	fields = append(fields, renderFormField("Country", m.inputs[placeFieldCountry], m.focusedField == placeFieldCountry))

	tagsField := renderFormField("Tags", m.inputs[placeFieldTags], m.focusedField == placeFieldTags)
	if len(m.tagVocab) > 0 && m.focusedField == placeFieldTags {
		hint := HelpDescStyle.Render("suggestions: " + util.TruncateString(strings.Join(m.tagVocab, ", "), max(20, width-20)))
		tagsField = lipgloss.JoinVertical(lipgloss.Left, tagsField, hint)
	}
	fields = append(fields, tagsField)

	coordRow := lipgloss.JoinHorizontal(
		lipgloss.Top,
		renderFormField("Latitude *", m.inputs[placeFieldLat], m.focusedField == placeFieldLat),
		"  ",
		renderFormField("Longitude *", m.inputs[placeFieldLon], m.focusedField == placeFieldLon),
	)
	coordHint := HelpDescStyle.Render("ctrl+g geocode from address  ·  ctrl+p pick on map")
	if m.geocoding {
		coordHint = HelpDescStyle.Render(m.spinner.View() + " Geocoding...")
	}
	fields = append(fields, lipgloss.JoinVertical(lipgloss.Left, coordRow, coordHint))

	if m.saving {
		fields = append(fields, HelpDescStyle.Render("Saving..."))
	} else if m.errorText != "" {
		fields = append(fields, ErrorStyle.Render(m.errorText))
	} else if m.infoText != "" {
		fields = append(fields, SuccessStyle.Render(m.infoText))
	}

	return PanelStyle.
		Width(width - 4).
		Height(height - 4).
		Render(strings.Join(fields, "\n"))
}

func formatCoordInput(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
