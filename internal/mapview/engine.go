package mapview

import (
	"fmt"
	"strings"

	"atlas/internal/model"
)

// Engine keeps the drawn map in lockstep with the place collection.
// It owns the marker registry and the viewport; every change goes
// through a full rebuild so the rendered set can never drift from the
// collection. Collection sizes are small, so rebuild cost is fine.
type Engine struct {
	canvas   Canvas
	markers  map[int64]*Marker
	order    []int64
	selected int64
	popupID  int64

	viewSet bool // an explicit view was chosen; skip auto-fit
	noticed bool // one-time degraded notice already delivered
}

// Marker is the engine's handle for one rendered place marker.
type Marker struct {
	PlaceID int64
	Coord   model.Coordinate
	Label   string
	Status  string
	popup   []string
}

// NewEngine creates an engine drawing onto canvas.
func NewEngine(canvas Canvas) *Engine {
	return &Engine{
		canvas:  canvas,
		markers: make(map[int64]*Marker),
	}
}

// Render clears all markers and recreates one per place with a valid
// coordinate. Afterwards the registry keys are exactly those place
// ids. An open popup whose place disappeared is closed; one whose
// place survived is rebound to the fresh fields.
func (e *Engine) Render(places []model.Place) {
	e.canvas.ClearMarkers()
	e.markers = make(map[int64]*Marker, len(places))
	e.order = e.order[:0]

	for _, p := range places {
		coord, ok := p.Coord()
		if !ok {
			continue
		}
		m := &Marker{
			PlaceID: p.ID,
			Coord:   coord,
			Label:   p.Name,
			Status:  p.Status,
			popup:   popupLines(p),
		}
		e.markers[p.ID] = m
		e.order = append(e.order, p.ID)
		e.canvas.AddMarker(p.ID, coord, m.Label, m.Status)
	}

	if e.selected != 0 {
		if _, ok := e.markers[e.selected]; !ok {
			e.selected = 0
		}
	}
	e.canvas.SetSelected(e.selected)

	// The rebuild dropped any open popup; rebind it if its place is
	// still here.
	if e.popupID != 0 {
		if m, ok := e.markers[e.popupID]; ok {
			e.canvas.ShowPopup(e.popupID, m.popup)
		} else {
			e.popupID = 0
		}
	}

	if !e.viewSet && len(e.order) > 0 && e.canvas.Ready() {
		e.fitAll()
	}
}

// Lookup returns the marker handle for a place id, or nil.
func (e *Engine) Lookup(id int64) *Marker {
	return e.markers[id]
}

// MarkerIDs returns the registry keys in render order.
func (e *Engine) MarkerIDs() []int64 {
	ids := make([]int64, len(e.order))
	copy(ids, e.order)
	return ids
}

// FlyTo recenters the viewport. No-op when the map is unavailable.
func (e *Engine) FlyTo(at model.Coordinate, zoom int) {
	if !e.canvas.Ready() {
		return
	}
	e.canvas.SetView(at, zoom)
	e.viewSet = true
}

// InvalidateSize recomputes viewport geometry for a new container
// size. Callers debounce; this applies the final size directly.
func (e *Engine) InvalidateSize(width, height int) {
	e.canvas.Resize(width, height)
	if !e.viewSet && len(e.order) > 0 && e.canvas.Ready() {
		e.fitAll()
	}
}

// Degraded reports whether the map capability is unavailable.
func (e *Engine) Degraded() bool {
	return !e.canvas.Ready()
}

// DegradedNotice returns the capability notice exactly once while the
// map is unavailable, and "" on every later call.
func (e *Engine) DegradedNotice() string {
	if e.noticed || e.canvas.Ready() {
		return ""
	}
	e.noticed = true
	return "map unavailable, places and visits can still be edited"
}

// Pan shifts the viewport by terminal cells.
func (e *Engine) Pan(dcol, drow int) {
	if !e.canvas.Ready() {
		return
	}
	e.canvas.Pan(dcol, drow)
	e.viewSet = true
}

// ZoomBy changes the zoom level.
func (e *Engine) ZoomBy(delta int) {
	if !e.canvas.Ready() {
		return
	}
	e.canvas.ZoomBy(delta)
	e.viewSet = true
}

// Viewport reports the current center and zoom, for persistence.
func (e *Engine) Viewport() (model.Coordinate, int) {
	return e.canvas.Center(), e.canvas.Zoom()
}

// Fit recenters and rezooms so every marker is visible.
func (e *Engine) Fit() {
	if !e.canvas.Ready() || len(e.order) == 0 {
		return
	}
	e.fitAll()
	e.viewSet = true
}

// SelectNext moves the marker cursor forward in render order,
// recentering when the marker is off-screen.
func (e *Engine) SelectNext() {
	e.cycle(1)
}

// SelectPrev moves the marker cursor backward in render order.
func (e *Engine) SelectPrev() {
	e.cycle(-1)
}

func (e *Engine) cycle(dir int) {
	if len(e.order) == 0 {
		return
	}
	idx := -1
	for i, id := range e.order {
		if id == e.selected {
			idx = i
			break
		}
	}
	idx += dir
	if idx < 0 {
		idx = len(e.order) - 1
	}
	if idx >= len(e.order) {
		idx = 0
	}
	e.selected = e.order[idx]
	e.canvas.SetSelected(e.selected)
	e.ensureVisible(e.selected)
}

// SelectedID returns the marker cursor's place id, 0 for none.
func (e *Engine) SelectedID() int64 {
	return e.selected
}

// OpenPopup opens the popup bound to a marker. Returns false when the
// place has no marker.
func (e *Engine) OpenPopup(id int64) bool {
	m, ok := e.markers[id]
	if !ok {
		return false
	}
	e.selected = id
	e.canvas.SetSelected(id)
	e.popupID = id
	e.canvas.ShowPopup(id, m.popup)
	e.ensureVisible(id)
	return true
}

// ClosePopup closes any open popup.
func (e *Engine) ClosePopup() {
	e.popupID = 0
	e.canvas.HidePopup()
}

// PopupID returns the place id of the open popup, 0 for none.
func (e *Engine) PopupID() int64 {
	return e.popupID
}

// ShowPin, MovePin, PinPosition and HidePin expose the pinning cursor
// to the session controller.

func (e *Engine) ShowPin(at model.Coordinate) {
	e.canvas.ShowPin(at)
}

func (e *Engine) MovePin(dcol, drow int) {
	e.canvas.MovePin(dcol, drow)
}

func (e *Engine) PinPosition() (model.Coordinate, bool) {
	return e.canvas.PinPosition()
}

func (e *Engine) HidePin() {
	e.canvas.HidePin()
}

// View renders the map.
func (e *Engine) View() string {
	return e.canvas.View()
}

func (e *Engine) ensureVisible(id int64) {
	if !e.canvas.Ready() || e.canvas.Visible(id) {
		return
	}
	if m, ok := e.markers[id]; ok {
		e.canvas.SetView(m.Coord, e.canvas.Zoom())
		e.viewSet = true
	}
}

func (e *Engine) fitAll() {
	coords := make([]model.Coordinate, 0, len(e.order))
	for _, id := range e.order {
		coords = append(coords, e.markers[id].Coord)
	}
	w, h := e.canvas.Size()
	center, zoom := fitView(coords, float64(w), float64(h)*2.0)
	e.canvas.SetView(center, zoom)
}

// popupLines builds the popup content from a place's current fields,
// ending with the action affordance hints.
func popupLines(p model.Place) []string {
	lines := []string{p.Name}

	meta := p.Status
	if p.Category != "" {
		meta = p.Category + " · " + meta
	}
	switch n := len(p.Visits); n {
	case 0:
	case 1:
		meta += " · 1 visit"
	default:
		meta += fmt.Sprintf(" · %d visits", n)
	}
	lines = append(lines, meta)

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
		lines = append(lines, strings.Join(loc, ", "))
	}

	if len(p.Tags) > 0 {
		lines = append(lines, "#"+strings.Join(p.Tags, " #"))
	}

	lines = append(lines, "e edit  v plan  l visits  d delete")
	return lines
}
