package ui

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"atlas/internal/api"
	"atlas/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

func testPlace(id int64, name string, lat, lon float64) model.Place {
	return model.Place{
		ID:        id,
		Name:      name,
		Status:    model.StatusPending,
		Latitude:  floatPtr(lat),
		Longitude: floatPtr(lon),
	}
}

// keyMsg builds the key message for a binding string.
func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+g":
		return tea.KeyMsg{Type: tea.KeyCtrlG}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyCtrlP}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+x":
		return tea.KeyMsg{Type: tea.KeyCtrlX}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// newTestModel builds a sized root model over the given places. The
// client only matters for tests that execute returned commands.
func newTestModel(t *testing.T, client *api.Client, places ...model.Place) Model {
	t.Helper()
	m := New(client, model.Bootstrap{Places: places, TagVocabulary: []string{"food", "park"}}, TerminalCapabilities{}, false)
	m.prefs = defaultUIPreferences()
	m.prefsApplied = false
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func newDegradedModel(t *testing.T, client *api.Client, places ...model.Place) Model {
	t.Helper()
	m := New(client, model.Bootstrap{Places: places}, TerminalCapabilities{}, true)
	m.prefs = defaultUIPreferences()
	m.prefsApplied = false
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestOpeningSurfacesIsExclusive(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))

	m, _ = update(t, m, keyMsg("a"))
	if m.mode != model.ModeAddPlace {
		t.Fatalf("mode = %v, want %v", m.mode, model.ModeAddPlace)
	}
	if _, ok := m.active.(*PlaceFormModel); !ok {
		t.Fatalf("active = %T, want *PlaceFormModel", m.active)
	}

	// A pinning session owned by the form dies with it.
	m, _ = update(t, m, keyMsg("ctrl+p"))
	if !m.pins.Active() {
		t.Fatal("pin session should be active")
	}

	next, _ := m.openVisitsList(m.places[0])
	m = next.(Model)
	if m.mode != model.ModeVisitsList {
		t.Fatalf("mode = %v, want %v", m.mode, model.ModeVisitsList)
	}
	if _, ok := m.active.(*VisitsListModel); !ok {
		t.Fatalf("active = %T, want *VisitsListModel", m.active)
	}
	if m.pins.Active() {
		t.Fatal("pin session should have been cancelled by the surface switch")
	}
}

func TestEscCancelsFormBackToMap(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"))

	m, _ = update(t, m, keyMsg("a"))
	m, cmd := update(t, m, keyMsg("esc"))
	if cmd == nil {
		t.Fatal("esc should produce a cancel command")
	}
	m, _ = update(t, m, cmd())
	if m.mode != model.ModeIdle || m.active != nil {
		t.Fatalf("mode = %v, active = %T, want idle map", m.mode, m.active)
	}

	// Cancelling again is harmless.
	m, _ = update(t, m, model.FormCancelledMsg{})
	if m.mode != model.ModeIdle || m.active != nil {
		t.Fatal("repeated cancel should stay on the idle map")
	}
}

func TestOpeningSurfaceClearsBanners(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"))
	m.error = "previous error"
	m.info = "previous info"

	m, _ = update(t, m, keyMsg("a"))
	if m.error != "" || m.info != "" {
		t.Fatalf("banners not cleared: error=%q info=%q", m.error, m.info)
	}
}

func TestPlaceSavedClosesFormAndCentersMap(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"))

	m, _ = update(t, m, keyMsg("a"))
	saved := testPlace(42, "Sagrada Familia", 41.4036, 2.1744)
	m, _ = update(t, m, model.PlaceSavedMsg{Place: saved, Created: true})

	if m.mode != model.ModeIdle || m.active != nil {
		t.Fatalf("form should close after save, mode = %v", m.mode)
	}
	if len(m.places) != 1 || m.places[0].ID != 42 {
		t.Fatalf("places = %+v", m.places)
	}
	if m.engine.Lookup(42) == nil {
		t.Fatal("marker for new place missing")
	}
	center, _ := m.engine.Viewport()
	if math.Abs(center.Lat-41.4036) > 1e-6 || math.Abs(center.Lon-2.1744) > 1e-6 {
		t.Fatalf("viewport center = %+v, want new place", center)
	}
	if m.info != "Place saved" {
		t.Fatalf("info = %q", m.info)
	}
}

func TestPlaceSavedUpdateReplacesInPlace(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"),
		testPlace(1, "Louvre", 48.86, 2.33),
		testPlace(2, "Orsay", 48.859, 2.326))

	renamed := testPlace(2, "Musée d'Orsay", 48.859, 2.326)
	m, _ = update(t, m, model.PlaceSavedMsg{Place: renamed})

	if len(m.places) != 2 {
		t.Fatalf("places = %+v", m.places)
	}
	if m.places[0].ID != 1 || m.places[1].Name != "Musée d'Orsay" {
		t.Fatalf("order or content wrong: %+v", m.places)
	}
}

func TestPlaceSavedClosesPopupOnEditedPlace(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"),
		testPlace(1, "Louvre", 48.86, 2.33),
		testPlace(2, "Orsay", 48.859, 2.326))

	m.engine.OpenPopup(2)
	renamed := testPlace(2, "Musée d'Orsay", 48.859, 2.326)
	m, _ = update(t, m, model.PlaceSavedMsg{Place: renamed})
	if m.engine.PopupID() != 0 {
		t.Fatalf("popup built from pre-edit fields should close, popup = %d", m.engine.PopupID())
	}

	// A popup on an unrelated place stays open through the save.
	m.engine.OpenPopup(1)
	m, _ = update(t, m, model.PlaceSavedMsg{Place: renamed})
	if m.engine.PopupID() != 1 {
		t.Fatalf("popup on another place should survive, popup = %d", m.engine.PopupID())
	}
}

func TestPlaceDeletedClosesBoundSurface(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))

	next, _ := m.openVisitsList(m.places[0])
	m = next.(Model)

	m, _ = update(t, m, model.PlaceDeletedMsg{ID: 1})
	if m.mode != model.ModeIdle || m.active != nil {
		t.Fatalf("surface bound to deleted place should close, mode = %v", m.mode)
	}
	if len(m.places) != 0 {
		t.Fatalf("places = %+v", m.places)
	}
	if m.engine.Lookup(1) != nil {
		t.Fatal("marker for deleted place still present")
	}
}

func TestPlaceDeletedWhileEditFormOpen(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), testPlace(5, "Cafe A", 4.71, -74.07))

	next, _ := m.openEditPlace(m.places[0])
	m = next.(Model)
	if m.mode != model.ModeEditPlace {
		t.Fatalf("mode = %v", m.mode)
	}

	m, _ = update(t, m, model.PlaceDeletedMsg{ID: 5})
	if m.mode != model.ModeIdle || m.active != nil {
		t.Fatalf("edit form for the deleted place should close, mode = %v", m.mode)
	}
	if m.engine.Lookup(5) != nil {
		t.Fatal("marker for deleted place still present")
	}
	if len(m.places) != 0 {
		t.Fatalf("places = %+v", m.places)
	}
}

func TestVisitSavedReopensListAndReconciles(t *testing.T) {
	t.Parallel()

	refreshed := testPlace(1, "Louvre", 48.86, 2.33)
	refreshed.Status = model.StatusPlanned
	refreshed.Visits = []model.Visit{{ID: 7, PlaceID: 1, When: time.Now().Add(48 * time.Hour)}}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/v1/places/1" {
			_ = json.NewEncoder(w).Encode(refreshed)
			return
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	m := newTestModel(t, api.NewClient(ts.URL), testPlace(1, "Louvre", 48.86, 2.33))

	next, _ := m.openVisitsList(m.places[0])
	m = next.(Model)
	m, _ = update(t, m, keyMsg("v"))
	if m.mode != model.ModePlanVisit {
		t.Fatalf("mode = %v, want %v", m.mode, model.ModePlanVisit)
	}

	m, cmd := update(t, m, model.VisitSavedMsg{Visit: model.Visit{ID: 7, PlaceID: 1}})
	if m.mode != model.ModeVisitsList {
		t.Fatalf("mode = %v, want back on the visits list", m.mode)
	}
	if cmd == nil {
		t.Fatal("expected a reconciliation fetch command")
	}

	msg := cmd()
	refetch, ok := msg.(model.PlaceRefetchedMsg)
	if !ok {
		t.Fatalf("msg = %T, want PlaceRefetchedMsg", msg)
	}
	m, _ = update(t, m, refetch)

	if m.places[0].Status != model.StatusPlanned {
		t.Fatalf("status = %q, want server-derived %q", m.places[0].Status, model.StatusPlanned)
	}
	list := m.active.(*VisitsListModel)
	if got := len(list.Place().Visits); got != 1 {
		t.Fatalf("list visits = %d, want 1", got)
	}
}

func TestVisitSavedReconcileFailureWarns(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	m := newTestModel(t, api.NewClient(ts.URL), testPlace(1, "Louvre", 48.86, 2.33))

	m, cmd := update(t, m, model.VisitSavedMsg{Visit: model.Visit{ID: 7, PlaceID: 1}})
	if cmd == nil {
		t.Fatal("expected a reconciliation fetch command")
	}
	m, _ = update(t, m, cmd())

	if !strings.Contains(m.warning, "press r to refresh") {
		t.Fatalf("warning = %q", m.warning)
	}
	if m.places[0].Status != model.StatusPending {
		t.Fatalf("status should be untouched on failed refetch, got %q", m.places[0].Status)
	}
}

func TestLateRefetchForRemovedPlaceIsNoop(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))

	m, _ = update(t, m, model.PlaceRefetchedMsg{Place: testPlace(99, "Ghost", 0, 0)})
	if len(m.places) != 1 || m.places[0].ID != 1 {
		t.Fatalf("late refetch should not add places: %+v", m.places)
	}
}

func TestConfirmGuardsPlaceDelete(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/api/v1/places/1" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	m := newTestModel(t, api.NewClient(ts.URL), testPlace(1, "Louvre", 48.86, 2.33))
	if !m.engine.OpenPopup(1) {
		t.Fatal("popup should open for a rendered marker")
	}

	m, _ = update(t, m, keyMsg("d"))
	if m.confirm == nil || !strings.Contains(m.confirm.prompt, "Louvre") {
		t.Fatalf("confirm = %+v", m.confirm)
	}

	// Anything but an answer is swallowed.
	m, _ = update(t, m, keyMsg("j"))
	if m.confirm == nil {
		t.Fatal("confirm should survive unrelated keys")
	}

	m, _ = update(t, m, keyMsg("n"))
	if m.confirm != nil || m.info != "Cancelled" {
		t.Fatalf("decline should cancel, confirm=%v info=%q", m.confirm, m.info)
	}
	if len(m.places) != 1 {
		t.Fatal("place should survive a declined delete")
	}

	m, _ = update(t, m, keyMsg("d"))
	m, cmd := update(t, m, keyMsg("y"))
	if cmd == nil {
		t.Fatal("accepting should run the delete")
	}
	m, _ = update(t, m, cmd())
	if len(m.places) != 0 || m.engine.PopupID() != 0 {
		t.Fatalf("places = %+v, popup = %d", m.places, m.engine.PopupID())
	}
}

func TestVisitDeleteReconcilesList(t *testing.T) {
	t.Parallel()

	emptied := testPlace(1, "Louvre", 48.86, 2.33)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/visits/7":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/places/1":
			_ = json.NewEncoder(w).Encode(emptied)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	place := testPlace(1, "Louvre", 48.86, 2.33)
	place.Status = model.StatusPlanned
	place.Visits = []model.Visit{{ID: 7, PlaceID: 1, When: time.Now().Add(48 * time.Hour)}}

	m := newTestModel(t, api.NewClient(ts.URL), place)
	next, _ := m.openVisitsList(place)
	m = next.(Model)

	m, _ = update(t, m, keyMsg("d"))
	if m.confirm == nil {
		t.Fatal("delete should ask first")
	}
	m, cmd := update(t, m, keyMsg("y"))
	m, cmd2 := update(t, m, cmd())
	if cmd2 == nil {
		t.Fatal("visit delete should trigger a reconciliation fetch")
	}
	m, _ = update(t, m, cmd2())

	list := m.active.(*VisitsListModel)
	if _, ok := list.SelectedVisit(); ok {
		t.Fatal("list should be empty after delete and refetch")
	}
	if m.places[0].Status != model.StatusPending {
		t.Fatalf("status = %q, want server-derived %q", m.places[0].Status, model.StatusPending)
	}
}

func TestReloadRefreshesCollection(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(model.Bootstrap{
			Places:        []model.Place{testPlace(5, "Alhambra", 37.176, -3.588)},
			TagVocabulary: []string{"unesco"},
		})
	}))
	defer ts.Close()

	m := newTestModel(t, api.NewClient(ts.URL), testPlace(1, "Louvre", 48.86, 2.33))

	m, cmd := update(t, m, keyMsg("r"))
	if m.info != "Refreshing..." || cmd == nil {
		t.Fatalf("info = %q, cmd = %v", m.info, cmd)
	}
	m, _ = update(t, m, cmd())

	if len(m.places) != 1 || m.places[0].ID != 5 {
		t.Fatalf("places = %+v", m.places)
	}
	if m.engine.Lookup(5) == nil || m.engine.Lookup(1) != nil {
		t.Fatal("markers should follow the reloaded collection")
	}
	if m.info != "Refreshed" {
		t.Fatalf("info = %q", m.info)
	}
}

func TestReloadClosesSurfaceForVanishedPlace(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))

	next, _ := m.openVisitsList(m.places[0])
	m = next.(Model)

	m, _ = update(t, m, model.PlacesReloadedMsg{Places: []model.Place{testPlace(5, "Alhambra", 37.176, -3.588)}})
	if m.mode != model.ModeIdle || m.active != nil {
		t.Fatalf("surface for vanished place should close, mode = %v", m.mode)
	}
}

func TestErrorKindRouting(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"))

	m, _ = update(t, m, model.ErrorMsg{Kind: model.ErrMutation, Err: errString("save failed")})
	if m.error != "save failed" || m.warning != "" {
		t.Fatalf("error=%q warning=%q", m.error, m.warning)
	}

	m.error = ""
	m, _ = update(t, m, model.ErrorMsg{Kind: model.ErrReconcile, Err: errString("stale view")})
	if m.warning != "stale view" || m.error != "" {
		t.Fatalf("error=%q warning=%q", m.error, m.warning)
	}
}

func TestSelectionCyclesAndPopupFollows(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"),
		testPlace(1, "Louvre", 48.86, 2.33),
		testPlace(2, "Orsay", 48.859, 2.326))

	m, _ = update(t, m, keyMsg("tab"))
	first := m.engine.SelectedID()
	if first == 0 {
		t.Fatal("tab should select a marker")
	}

	m, _ = update(t, m, keyMsg("enter"))
	if m.engine.PopupID() != first {
		t.Fatalf("popup = %d, want %d", m.engine.PopupID(), first)
	}

	m, _ = update(t, m, keyMsg("tab"))
	second := m.engine.SelectedID()
	if second == first {
		t.Fatal("tab should move the selection")
	}
	if m.engine.PopupID() != second {
		t.Fatalf("popup should follow the selection, popup = %d", m.engine.PopupID())
	}

	m, _ = update(t, m, keyMsg("esc"))
	if m.engine.PopupID() != 0 {
		t.Fatal("esc should close the popup")
	}
}

func TestVisitsListNoReviewHint(t *testing.T) {
	t.Parallel()

	place := testPlace(1, "Louvre", 48.86, 2.33)
	place.Visits = []model.Visit{{ID: 7, PlaceID: 1, When: time.Now()}}

	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), place)
	next, _ := m.openVisitsList(place)
	m = next.(Model)

	m, _ = update(t, m, keyMsg("x"))
	if m.mode != model.ModeVisitsList {
		t.Fatalf("mode = %v, want to stay on the list", m.mode)
	}
	if !strings.Contains(m.info, "No review yet") {
		t.Fatalf("info = %q", m.info)
	}
}

func TestSortKeyReordersVisitsList(t *testing.T) {
	t.Parallel()

	rating := 5
	place := testPlace(1, "Louvre", 48.86, 2.33)
	place.Visits = []model.Visit{
		{ID: 7, PlaceID: 1, When: time.Now()},
		{ID: 8, PlaceID: 1, When: time.Now().AddDate(0, 0, -1), Rating: &rating},
	}

	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), place)
	next, _ := m.openVisitsList(place)
	m = next.(Model)

	m, _ = update(t, m, keyMsg("s"))
	list, ok := m.active.(*VisitsListModel)
	if !ok {
		t.Fatalf("active = %T", m.active)
	}
	if v, ok := list.SelectedVisit(); !ok || v.ID != 8 {
		t.Fatalf("selected = %+v, want the rated visit on top", v)
	}
}

func TestReviewViewRoundTrip(t *testing.T) {
	t.Parallel()

	rating := 5
	place := testPlace(1, "Louvre", 48.86, 2.33)
	place.Visits = []model.Visit{{ID: 7, PlaceID: 1, When: time.Now(), Rating: &rating, ReviewText: "Stunning."}}

	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), place)
	next, _ := m.openVisitsList(place)
	m = next.(Model)

	m, cmd := update(t, m, keyMsg("x"))
	if m.mode != model.ModeSeeReview {
		t.Fatalf("mode = %v, want %v", m.mode, model.ModeSeeReview)
	}
	if cmd != nil {
		t.Fatal("no image fetch expected for a visit without an image")
	}

	m, _ = update(t, m, keyMsg("esc"))
	if m.mode != model.ModeVisitsList {
		t.Fatalf("mode = %v, want back on the list", m.mode)
	}
}

func TestPinSessionCommitsToForm(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))

	m, _ = update(t, m, keyMsg("a"))
	m, _ = update(t, m, keyMsg("ctrl+p"))
	if !m.pins.Active() {
		t.Fatal("pin session should start")
	}
	if !strings.Contains(m.View(), "Pick location") {
		t.Fatal("pinning should put the map on screen with a breadcrumb")
	}

	m, _ = update(t, m, keyMsg("l"))
	m, _ = update(t, m, keyMsg("j"))
	m, _ = update(t, m, keyMsg("enter"))

	if m.pins.Active() {
		t.Fatal("confirm should end the session")
	}
	form := m.active.(*PlaceFormModel)
	committed, ok := form.CommittedCoordinate()
	if !ok {
		t.Fatal("coordinate should be committed into the form")
	}

	// Cancelling a second session leaves the committed value alone.
	m, _ = update(t, m, keyMsg("ctrl+p"))
	m, _ = update(t, m, keyMsg("l"))
	m, _ = update(t, m, keyMsg("esc"))
	if m.pins.Active() {
		t.Fatal("esc should cancel the session")
	}
	after, ok := form.CommittedCoordinate()
	if !ok || after != committed {
		t.Fatalf("cancel must not move the committed coordinate: %+v vs %+v", after, committed)
	}
	if m.mode != model.ModeAddPlace {
		t.Fatalf("form should still be open, mode = %v", m.mode)
	}
}

func TestPinUnavailableWhenDegraded(t *testing.T) {
	t.Parallel()
	m := newDegradedModel(t, api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))

	m, _ = update(t, m, keyMsg("a"))
	m.warning = ""
	m, _ = update(t, m, keyMsg("ctrl+p"))
	if m.pins.Active() {
		t.Fatal("pin session must not start without a map")
	}
	if !strings.Contains(m.warning, "map unavailable") {
		t.Fatalf("warning = %q", m.warning)
	}
}

func TestDegradedModeShowsRosterAndKeepsEditing(t *testing.T) {
	t.Parallel()
	m := newDegradedModel(t, api.NewClient("http://127.0.0.1:0"),
		testPlace(1, "Louvre", 48.86, 2.33),
		testPlace(2, "Orsay", 48.859, 2.326))

	if !strings.Contains(m.warning, "map unavailable") {
		t.Fatalf("warning = %q, want one-time capability notice", m.warning)
	}

	view := m.View()
	if !strings.Contains(view, "map unavailable") || !strings.Contains(view, "Louvre") {
		t.Fatal("roster should list places with the capability notice")
	}

	// Selection and popups still work against the textual roster.
	m, _ = update(t, m, keyMsg("tab"))
	m, _ = update(t, m, keyMsg("enter"))
	if m.engine.PopupID() == 0 {
		t.Fatal("popup should open in degraded mode")
	}
	if !strings.Contains(m.View(), "e edit") {
		t.Fatal("roster should show popup affordances")
	}

	m, _ = update(t, m, keyMsg("e"))
	if m.mode != model.ModeEditPlace {
		t.Fatalf("editing should work without a map, mode = %v", m.mode)
	}
}

func TestResizeDebounceIgnoresStaleTicks(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))
	if m.engine.Degraded() {
		t.Fatal("canvas should be ready at 100x30")
	}

	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 10, Height: 5})
	if cmd == nil {
		t.Fatal("later resizes should debounce")
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 12, Height: 6})

	// The first burst's tick arrives late and must not apply.
	m, _ = update(t, m, resizeAppliedMsg{seq: 1})
	if m.engine.Degraded() {
		t.Fatal("stale resize tick should be ignored")
	}

	m, _ = update(t, m, resizeAppliedMsg{seq: 2})
	if !m.engine.Degraded() {
		t.Fatal("settled resize should reach the canvas")
	}
}

func TestHelpOverlayToggles(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"))

	m, _ = update(t, m, keyMsg("?"))
	if !m.showingHelp {
		t.Fatal("? should open help")
	}
	if !strings.Contains(m.View(), "Map Pinning") {
		t.Fatal("full help should document pinning")
	}

	m, _ = update(t, m, keyMsg("esc"))
	if m.showingHelp {
		t.Fatal("esc should close help")
	}
}

func TestQuitPersistsViewportPrefs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), testPlace(1, "Louvre", 48.86, 2.33))
	_, cmd := update(t, m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should quit from the idle map")
	}

	data, err := os.ReadFile(filepath.Join(home, ".atlas", "ui_prefs.json"))
	if err != nil {
		t.Fatalf("prefs not written: %v", err)
	}
	if !strings.Contains(string(data), "zoom") {
		t.Fatalf("prefs payload = %s", data)
	}
}

func TestCalendarSavedRemembersExportDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	place := testPlace(1, "Louvre", 48.86, 2.33)
	place.Visits = []model.Visit{{ID: 7, PlaceID: 1, When: time.Now()}}

	m := newTestModel(t, api.NewClient("http://127.0.0.1:0"), place)
	next, _ := m.openVisitsList(place)
	m = next.(Model)
	m, _ = update(t, m, keyMsg("c"))
	if m.mode != model.ModeIcsExport {
		t.Fatalf("mode = %v, want %v", m.mode, model.ModeIcsExport)
	}

	exportPath := filepath.Join(home, "exports", "visit-7.ics")
	m, _ = update(t, m, model.CalendarSavedMsg{Path: exportPath})

	if m.mode != model.ModeVisitsList {
		t.Fatalf("mode = %v, want back on the list", m.mode)
	}
	if m.prefs.ExportDir != filepath.Dir(exportPath) {
		t.Fatalf("ExportDir = %q", m.prefs.ExportDir)
	}
}

// errString is a trivial error for routing tests.
type errString string

func (e errString) Error() string { return string(e) }
