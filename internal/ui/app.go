package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"atlas/internal/api"
	"atlas/internal/mapview"
	"atlas/internal/model"
	"atlas/internal/util"
)

// resizeDebounce is how long a resize burst must settle before the map
// re-projects. Input stays live the whole time.
const resizeDebounce = 250 * time.Millisecond

// chromeHeight is the header plus footer rows around the content area.
const chromeHeight = 4

// Model is the root Bubble Tea model. It owns the place collection,
// the map engine and the single active editing surface.
type Model struct {
	client           *api.Client
	termCapabilities TerminalCapabilities
	mode             model.UIMode

	places   []model.Place
	tagVocab []string

	engine *mapview.Engine
	pins   *mapview.PinController
	active surface

	width     int
	height    int
	resizeSeq int

	error       string
	warning     string
	info        string
	showingHelp bool
	confirm     *confirmPrompt

	// listOrigin notes that the active form was opened from the visits
	// list, so closing it returns there instead of to the map.
	listOrigin bool

	keys         KeyMap
	formKeys     FormKeyMap
	prefs        UIPreferences
	prefsApplied bool
}

// New creates the root model from the server's bootstrap payload.
func New(client *api.Client, boot model.Bootstrap, termCaps TerminalCapabilities, mapDisabled bool) Model {
	engine := mapview.NewEngine(mapview.NewTermCanvas(mapDisabled))
	engine.Render(boot.Places)

	return Model{
		client:           client,
		termCapabilities: termCaps,
		mode:             model.ModeIdle,
		places:           boot.Places,
		tagVocab:         boot.TagVocabulary,
		engine:           engine,
		pins:             mapview.NewPinController(engine),
		keys:             DefaultKeyMap(),
		formKeys:         DefaultFormKeyMap(),
		prefs:            loadUIPreferences(),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		first := m.width == 0
		m.width = msg.Width
		m.height = msg.Height
		if first {
			m.applyCanvasSize()
			return m, nil
		}
		m.resizeSeq++
		seq := m.resizeSeq
		return m, tea.Tick(resizeDebounce, func(time.Time) tea.Msg {
			return resizeAppliedMsg{seq: seq}
		})

	case resizeAppliedMsg:
		if msg.seq != m.resizeSeq {
			return m, nil
		}
		m.applyCanvasSize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case model.ErrorMsg:
		switch msg.Kind {
		case model.ErrReconcile, model.ErrCapability:
			m.warning = msg.Err.Error()
		default:
			m.error = msg.Err.Error()
		}
		// The surface that dispatched the failed call re-enables its
		// submit affordance.
		if m.active != nil {
			return m, m.active.Update(msg)
		}
		return m, nil

	case model.PlaceSavedMsg:
		m.upsertPlace(msg.Place)
		if !msg.Created && m.engine.PopupID() == msg.Place.ID {
			// The popup was built from the pre-edit fields.
			m.engine.ClosePopup()
		}
		m.engine.Render(m.places)
		if msg.Created {
			if c, ok := msg.Place.Coord(); ok {
				_, zoom := m.engine.Viewport()
				m.engine.FlyTo(c, zoom)
			}
		}
		if m.mode == model.ModeAddPlace || m.mode == model.ModeEditPlace {
			m.hideAll()
		}
		m.info = "Place saved"
		m.error = ""
		return m, nil

	case model.PlaceDeletedMsg:
		m.removePlace(msg.ID)
		m.engine.Render(m.places)
		if m.surfaceBoundTo(msg.ID) {
			m.hideAll()
		}
		m.info = "Place deleted"
		m.error = ""
		return m, nil

	case model.VisitSavedMsg:
		m.info = "Visit saved"
		m.error = ""
		if m.mode == model.ModePlanVisit || m.mode == model.ModeReviewVisit {
			if m.listOrigin {
				m.reopenVisitsList(msg.Visit.PlaceID)
			} else {
				m.hideAll()
			}
		}
		return m, refetchPlaceCmd(m.client, msg.Visit.PlaceID)

	case model.VisitDeletedMsg:
		m.info = "Visit deleted"
		m.error = ""
		return m, refetchPlaceCmd(m.client, msg.PlaceID)

	case model.PlaceRefetchedMsg:
		// A late response for a since-deleted place misses the
		// collection and falls through harmlessly.
		if !m.replacePlace(msg.Place) {
			return m, nil
		}
		m.engine.Render(m.places)
		if list, ok := m.active.(*VisitsListModel); ok && list.PlaceID() == msg.Place.ID {
			list.SetPlace(msg.Place)
		}
		return m, nil

	case model.ReconcileFailedMsg:
		m.warning = "saved, but the view may be out of date; press r to refresh"
		return m, nil

	case model.PlacesReloadedMsg:
		m.places = msg.Places
		m.tagVocab = msg.TagVocabulary
		m.engine.Render(m.places)
		if m.active != nil {
			if id := m.activePlaceID(); id != 0 {
				if p, ok := m.placeByID(id); ok {
					if list, isList := m.active.(*VisitsListModel); isList {
						list.SetPlace(p)
					}
				} else {
					m.hideAll()
				}
			}
		}
		m.info = "Refreshed"
		m.error = ""
		m.warning = ""
		return m, nil

	case model.CalendarSavedMsg:
		m.info = "Calendar event saved to " + msg.Path
		m.error = ""
		m.prefs.ExportDir = filepath.Dir(msg.Path)
		_ = saveUIPreferences(m.prefs)
		if m.mode == model.ModeIcsExport {
			if m.listOrigin {
				m.reopenVisitsList(m.activePlaceID())
			} else {
				m.hideAll()
			}
		}
		return m, nil

	case model.FormCancelledMsg:
		if m.listOrigin {
			m.reopenVisitsList(m.activePlaceID())
			return m, nil
		}
		m.hideAll()
		return m, nil

	default:
		// Geocode results, spinner ticks, image fetches and other
		// surface-local messages.
		if m.active != nil {
			return m, m.active.Update(msg)
		}
	}

	return m, nil
}

// handleKey routes key input by layer: quit, confirmation prompt,
// pinning, help, then the active mode.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	// A pending confirmation swallows everything except its answer.
	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y":
			action := m.confirm.action
			m.confirm = nil
			return m, action
		case "n", "N", "esc":
			m.confirm = nil
			m.info = "Cancelled"
			return m, nil
		}
		return m, nil
	}

	// While pinning, the map borrows navigation; the suspended form
	// keeps its state but receives nothing.
	if m.pins.Active() {
		return m.handlePinKeys(msg)
	}

	if m.showingHelp {
		if msg.String() == "esc" || msg.String() == "?" {
			m.showingHelp = false
		}
		return m, nil
	}

	switch m.mode {
	case model.ModeIdle:
		return m.handleMapKeys(msg)
	case model.ModeVisitsList:
		return m.handleVisitsListKeys(msg)
	case model.ModeSeeReview:
		return m.handleReviewViewKeys(msg)
	default:
		return m.handleFormKeys(msg)
	}
}

func (m Model) handlePinKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h", "left":
		m.pins.Move(-2, 0)
	case "l", "right":
		m.pins.Move(2, 0)
	case "k", "up":
		m.pins.Move(0, -1)
	case "j", "down":
		m.pins.Move(0, 1)
	case "enter":
		m.pins.Confirm()
	case "esc", "ctrl+p":
		m.pins.Cancel()
	}
	return m, nil
}

// handleMapKeys handles idle-mode input. Popup affordances win over
// the pan bindings they share keys with.
func (m Model) handleMapKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if popupID := m.engine.PopupID(); popupID != 0 {
		switch msg.String() {
		case "e":
			if p, ok := m.placeByID(popupID); ok {
				return m.openEditPlace(p)
			}
			return m, nil
		case "v":
			if p, ok := m.placeByID(popupID); ok {
				return m.openPlanVisit(p, false)
			}
			return m, nil
		case "l":
			if p, ok := m.placeByID(popupID); ok {
				return m.openVisitsList(p)
			}
			return m, nil
		case "d":
			if p, ok := m.placeByID(popupID); ok {
				m.confirm = &confirmPrompt{
					prompt: fmt.Sprintf("Delete %q and all its visits? (y/n)", p.Name),
					action: deletePlaceCmd(m.client, p.ID),
				}
			}
			return m, nil
		case "esc":
			m.engine.ClosePopup()
			return m, nil
		}
	}

	switch msg.String() {
	case "q":
		return m.quit()
	case "?":
		m.showingHelp = true
		return m, nil
	case "h", "left":
		m.engine.Pan(-4, 0)
	case "l", "right":
		m.engine.Pan(4, 0)
	case "k", "up":
		m.engine.Pan(0, -2)
	case "j", "down":
		m.engine.Pan(0, 2)
	case "+", "=":
		m.engine.ZoomBy(1)
	case "-", "_":
		m.engine.ZoomBy(-1)
	case "tab", "n":
		m.engine.SelectNext()
		if m.engine.PopupID() != 0 {
			m.engine.OpenPopup(m.engine.SelectedID())
		}
	case "shift+tab", "N":
		m.engine.SelectPrev()
		if m.engine.PopupID() != 0 {
			m.engine.OpenPopup(m.engine.SelectedID())
		}
	case "enter":
		if id := m.engine.SelectedID(); id != 0 {
			if m.engine.PopupID() == id {
				m.engine.ClosePopup()
			} else {
				m.engine.OpenPopup(id)
			}
		}
	case "a":
		return m.openAddPlace()
	case "f":
		m.engine.Fit()
	case "r":
		m.info = "Refreshing..."
		return m, reloadPlacesCmd(m.client)
	case "esc":
		m.error = ""
		m.warning = ""
		m.info = ""
	}
	return m, nil
}

func (m Model) handleVisitsListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list, ok := m.active.(*VisitsListModel)
	if !ok {
		return m, nil
	}

	switch msg.String() {
	case "esc", "b":
		m.hideAll()
		return m, nil
	case "j", "down":
		list.MoveDown()
		return m, nil
	case "k", "up":
		list.MoveUp()
		return m, nil
	case "g":
		list.JumpToTop()
		return m, nil
	case "G":
		list.JumpToBottom()
		return m, nil
	case "s":
		list.CycleSort()
		return m, nil
	case "v":
		return m.openPlanVisit(list.Place(), true)
	case "e":
		if v, ok := list.SelectedVisit(); ok {
			return m.openRescheduleVisit(list.Place(), v)
		}
		return m, nil
	case "r":
		if v, ok := list.SelectedVisit(); ok {
			return m.openReviewForm(list.Place(), v)
		}
		return m, nil
	case "x":
		if v, ok := list.SelectedVisit(); ok {
			if !v.Reviewed() {
				m.info = "No review yet; press r to write one"
				return m, nil
			}
			return m.openReviewView(list.Place(), v)
		}
		return m, nil
	case "c":
		if v, ok := list.SelectedVisit(); ok {
			return m.openIcsExport(list.Place(), v)
		}
		return m, nil
	case "d":
		if v, ok := list.SelectedVisit(); ok {
			m.confirm = &confirmPrompt{
				prompt: fmt.Sprintf("Delete the visit on %s? (y/n)", util.FormatDateTime(v.When)),
				action: deleteVisitCmd(m.client, v.ID, v.PlaceID),
			}
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleReviewViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view, ok := m.active.(*ReviewViewModel)
	if !ok {
		return m, nil
	}

	switch msg.String() {
	case "esc", "h", "b":
		m.reopenVisitsList(view.PlaceID())
		return m, nil
	case "e":
		if p, ok := m.placeByID(view.PlaceID()); ok {
			return m.openReviewForm(p, view.Visit())
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if form, ok := m.active.(*PlaceFormModel); ok && msg.String() == "ctrl+p" {
		return m.togglePin(form)
	}
	if m.active != nil {
		return m, m.active.Update(msg)
	}
	return m, nil
}

func (m Model) togglePin(form *PlaceFormModel) (tea.Model, tea.Cmd) {
	var initial *model.Coordinate
	if c, ok := form.CommittedCoordinate(); ok {
		initial = &c
	}
	if err := m.pins.Toggle(form.FormID(), initial, form.CommitCoordinate); err != nil {
		m.warning = err.Error()
	}
	return m, nil
}

// Surface transitions. Opening a surface always replaces the previous
// one and cancels any pinning session it owned.

func (m Model) openAddPlace() (tea.Model, tea.Cmd) {
	m.show(NewPlaceFormModel(m.client, m.tagVocab), model.ModeAddPlace, false)
	return m, nil
}

func (m Model) openEditPlace(p model.Place) (tea.Model, tea.Cmd) {
	form := NewPlaceFormModel(m.client, m.tagVocab)
	form.LoadPlace(p)
	m.show(form, model.ModeEditPlace, false)
	return m, nil
}

func (m Model) openPlanVisit(p model.Place, fromList bool) (tea.Model, tea.Cmd) {
	m.show(NewVisitFormModel(m.client, p), model.ModePlanVisit, fromList)
	return m, nil
}

func (m Model) openRescheduleVisit(p model.Place, v model.Visit) (tea.Model, tea.Cmd) {
	form := NewVisitFormModel(m.client, p)
	form.LoadVisit(v)
	m.show(form, model.ModePlanVisit, true)
	return m, nil
}

func (m Model) openVisitsList(p model.Place) (tea.Model, tea.Cmd) {
	m.show(NewVisitsListModel(p), model.ModeVisitsList, false)
	return m, nil
}

func (m Model) openReviewForm(p model.Place, v model.Visit) (tea.Model, tea.Cmd) {
	m.show(NewReviewFormModel(m.client, p, v), model.ModeReviewVisit, true)
	return m, nil
}

func (m Model) openReviewView(p model.Place, v model.Visit) (tea.Model, tea.Cmd) {
	view := NewReviewViewModel(m.client, p, v, m.termCapabilities)
	m.show(view, model.ModeSeeReview, true)
	return m, view.LoadImage()
}

func (m Model) openIcsExport(p model.Place, v model.Visit) (tea.Model, tea.Cmd) {
	m.show(NewIcsExportModel(m.client, p, v, m.prefs.ExportDir), model.ModeIcsExport, true)
	return m, nil
}

func (m *Model) show(s surface, mode model.UIMode, fromList bool) {
	if m.pins.Active() {
		m.pins.Cancel()
	}
	m.active = s
	m.mode = mode
	m.listOrigin = fromList
	m.error = ""
	m.info = ""
}

// hideAll dismisses the active surface and any pinning session and
// returns to the idle map. Safe to call when nothing is open.
func (m *Model) hideAll() {
	if m.pins.Active() {
		m.pins.Cancel()
	}
	m.active = nil
	m.mode = model.ModeIdle
	m.listOrigin = false
}

// reopenVisitsList restores the visits list for a place, falling back
// to the idle map when the place no longer exists.
func (m *Model) reopenVisitsList(placeID int64) {
	if p, ok := m.placeByID(placeID); ok {
		m.active = NewVisitsListModel(p)
		m.mode = model.ModeVisitsList
		m.listOrigin = false
		return
	}
	m.hideAll()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if !m.engine.Degraded() {
		center, zoom := m.engine.Viewport()
		m.prefs.Map = &MapPrefs{CenterLat: center.Lat, CenterLon: center.Lon, Zoom: zoom}
	}
	_ = saveUIPreferences(m.prefs)
	return m, tea.Quit
}

func (m *Model) applyCanvasSize() {
	m.engine.InvalidateSize(m.width, m.height-chromeHeight)
	if m.prefsApplied {
		return
	}
	m.prefsApplied = true
	if m.prefs.Map != nil {
		at := model.Coordinate{Lat: m.prefs.Map.CenterLat, Lon: m.prefs.Map.CenterLon}
		if at.Valid() {
			m.engine.FlyTo(at, m.prefs.Map.Zoom)
		}
	}
	if notice := m.engine.DegradedNotice(); notice != "" {
		m.warning = notice
	}
}

// Collection helpers. The slice keeps the server's newest-first order.

func (m Model) placeByID(id int64) (model.Place, bool) {
	for _, p := range m.places {
		if p.ID == id {
			return p, true
		}
	}
	return model.Place{}, false
}

func (m *Model) upsertPlace(p model.Place) {
	for i := range m.places {
		if m.places[i].ID == p.ID {
			m.places[i] = p
			return
		}
	}
	m.places = append([]model.Place{p}, m.places...)
}

func (m *Model) replacePlace(p model.Place) bool {
	for i := range m.places {
		if m.places[i].ID == p.ID {
			m.places[i] = p
			return true
		}
	}
	return false
}

func (m *Model) removePlace(id int64) {
	for i := range m.places {
		if m.places[i].ID == id {
			m.places = append(m.places[:i], m.places[i+1:]...)
			return
		}
	}
}

// surfaceBoundTo reports whether the active surface shows data of the
// given place.
func (m Model) surfaceBoundTo(placeID int64) bool {
	return m.activePlaceID() == placeID && placeID != 0
}

func (m Model) activePlaceID() int64 {
	if b, ok := m.active.(interface{ PlaceID() int64 }); ok {
		return b.PlaceID()
	}
	return 0
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	contentHeight := m.height - chromeHeight

	breadcrumbParts := []string{"Map"}
	var content string
	switch {
	case m.pins.Active():
		if m.active != nil {
			breadcrumbParts = append(breadcrumbParts, m.active.Title(), "Pick location")
		}
		content = m.engine.View()
	case m.active != nil:
		breadcrumbParts = append(breadcrumbParts, m.active.Title())
		content = m.active.View(m.width, contentHeight)
	case m.engine.Degraded():
		content = renderDegradedRoster(m.places, m.engine.SelectedID(), m.engine.PopupID(), m.width, contentHeight)
	default:
		content = m.engine.View()
	}

	header := renderHeader(breadcrumbParts, m.width)
	footer := RenderHelp(m.mode, m.engine.PopupID() != 0, m.pins.Active(), m.width)
	if m.confirm != nil {
		footer = FooterStyle.Width(m.width).Render(ErrorStyle.Render(m.confirm.prompt))
	}

	content = lipgloss.NewStyle().
		Width(m.width).
		Height(contentHeight).
		Render(content)

	rows := []string{header}
	if m.error != "" {
		rows = append(rows, ErrorStyle.Width(m.width).Render("Error: "+m.error))
	}
	if m.warning != "" {
		rows = append(rows, WarnStyle.Width(m.width).Render(m.warning))
	}
	if m.info != "" {
		rows = append(rows, SuccessStyle.Width(m.width).Render(m.info))
	}
	rows = append(rows, content, footer)
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderHeader(breadcrumbParts []string, width int) string {
	title := HeaderStyle.Render("atlas")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb

	now := time.Now()
	dateStr := now.Format("Mon 02 Jan")
	right := BreadcrumbStyle.Render(dateStr) + "  "

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)
	padding := width - leftLen - rightLen
	if padding < 0 {
		padding = 0
	}

	headerContent := left + strings.Repeat(" ", padding) + right
	return TitleStyle.Width(width).Render(headerContent)
}

// Commands

func reloadPlacesCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		boot, err := client.Bootstrap(ctx)
		if err != nil {
			return model.ErrorMsg{Kind: model.ErrMutation, Err: fmt.Errorf("refresh failed: %w", err)}
		}
		return model.PlacesReloadedMsg{Places: boot.Places, TagVocabulary: boot.TagVocabulary}
	}
}

func refetchPlaceCmd(client *api.Client, placeID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		place, err := client.GetPlace(ctx, placeID)
		if err != nil {
			return model.ReconcileFailedMsg{PlaceID: placeID, Err: err}
		}
		return model.PlaceRefetchedMsg{Place: place}
	}
}

func deletePlaceCmd(client *api.Client, placeID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := client.DeletePlace(ctx, placeID); err != nil {
			return model.ErrorMsg{Kind: model.ErrMutation, Err: fmt.Errorf("failed to delete place: %w", err)}
		}
		return model.PlaceDeletedMsg{ID: placeID}
	}
}

func deleteVisitCmd(client *api.Client, visitID, placeID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := client.DeleteVisit(ctx, visitID); err != nil {
			return model.ErrorMsg{Kind: model.ErrMutation, Err: fmt.Errorf("failed to delete visit: %w", err)}
		}
		return model.VisitDeletedMsg{ID: visitID, PlaceID: placeID}
	}
}

// resizeAppliedMsg fires when a resize burst has settled.
type resizeAppliedMsg struct {
	seq int
}

// confirmPrompt is a pending yes/no question shown in the footer.
type confirmPrompt struct {
	prompt string
	action tea.Cmd
}
