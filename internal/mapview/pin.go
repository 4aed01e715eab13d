package mapview

import (
	"errors"

	"atlas/internal/model"
)

// ErrMapUnavailable is returned when a pinning session is requested
// while the map capability is degraded.
var ErrMapUnavailable = errors.New("map unavailable")

// PinController owns the map-borrowing coordinate capture session.
// At most one form holds the session at a time; a commit happens at
// most once per session and only through Confirm.
type PinController struct {
	engine   *Engine
	formID   string
	onCommit func(model.Coordinate)
}

// NewPinController creates a controller driving the engine's pin.
func NewPinController(engine *Engine) *PinController {
	return &PinController{engine: engine}
}

// Active reports whether any session is running.
func (p *PinController) Active() bool {
	return p.formID != ""
}

// ActiveFor reports whether formID holds the session.
func (p *PinController) ActiveFor(formID string) bool {
	return p.formID != "" && p.formID == formID
}

// Toggle starts a session for formID, or ends it without committing
// when formID already holds one. A session held by another form is
// cancelled first, then the new one activates. The pin starts at
// initial when given and valid, else at the viewport center.
func (p *PinController) Toggle(formID string, initial *model.Coordinate, onCommit func(model.Coordinate)) error {
	if p.ActiveFor(formID) {
		p.Cancel()
		return nil
	}
	if p.Active() {
		p.Cancel()
	}
	if !p.engine.canvas.Ready() {
		return ErrMapUnavailable
	}

	start := p.engine.canvas.Center()
	if initial != nil && initial.Valid() {
		start = *initial
	}
	p.formID = formID
	p.onCommit = onCommit
	p.engine.ShowPin(start)
	return nil
}

// Move nudges the pin by terminal cells.
func (p *PinController) Move(dcol, drow int) {
	if !p.Active() {
		return
	}
	p.engine.MovePin(dcol, drow)
}

// Confirm commits the pin position to the requesting form exactly
// once and ends the session.
func (p *PinController) Confirm() {
	if !p.Active() {
		return
	}
	at, ok := p.engine.PinPosition()
	commit := p.onCommit
	p.formID = ""
	p.onCommit = nil
	p.engine.HidePin()
	if ok && commit != nil {
		commit(at)
	}
}

// Cancel ends the session without committing.
func (p *PinController) Cancel() {
	if !p.Active() {
		return
	}
	p.formID = ""
	p.onCommit = nil
	p.engine.HidePin()
}
