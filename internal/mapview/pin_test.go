package mapview

import (
	"errors"
	"math"
	"testing"

	"atlas/internal/model"
)

func pinFixture(t *testing.T) (*Engine, *PinController) {
	t.Helper()
	c := NewTermCanvas(false)
	c.Resize(80, 24)
	e := NewEngine(c)
	e.FlyTo(model.Coordinate{Lat: 40.7128, Lon: -74.0060}, 12)
	return e, NewPinController(e)
}

func TestToggleStartsSessionAtInitial(t *testing.T) {
	_, p := pinFixture(t)

	initial := model.Coordinate{Lat: 40.75, Lon: -73.99}
	if err := p.Toggle("place:new", &initial, func(model.Coordinate) {}); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !p.ActiveFor("place:new") {
		t.Fatal("session not active for requester")
	}

	at, ok := p.engine.PinPosition()
	if !ok {
		t.Fatal("no pin after toggle")
	}
	if math.Abs(at.Lat-initial.Lat) > 1e-9 || math.Abs(at.Lon-initial.Lon) > 1e-9 {
		t.Errorf("pin at %+v, want %+v", at, initial)
	}
}

func TestToggleWithoutInitialUsesViewportCenter(t *testing.T) {
	e, p := pinFixture(t)

	if err := p.Toggle("place:new", nil, func(model.Coordinate) {}); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	at, _ := e.PinPosition()
	center, _ := e.Viewport()
	if math.Abs(at.Lat-center.Lat) > 1e-9 || math.Abs(at.Lon-center.Lon) > 1e-9 {
		t.Errorf("pin at %+v, want viewport center %+v", at, center)
	}
}

func TestToggleTwiceCancelsWithoutCommit(t *testing.T) {
	e, p := pinFixture(t)

	commits := 0
	p.Toggle("place:new", nil, func(model.Coordinate) { commits++ })
	p.Toggle("place:new", nil, func(model.Coordinate) { commits++ })

	if p.Active() {
		t.Error("session still active after second toggle")
	}
	if commits != 0 {
		t.Errorf("commit invoked %d times by toggle-off", commits)
	}
	if _, ok := e.PinPosition(); ok {
		t.Error("pin still shown after toggle-off")
	}
}

func TestToggleStealsSessionFromOtherForm(t *testing.T) {
	_, p := pinFixture(t)

	aCommits := 0
	p.Toggle("place:7", nil, func(model.Coordinate) { aCommits++ })
	if err := p.Toggle("place:new", nil, func(model.Coordinate) {}); err != nil {
		t.Fatalf("steal toggle: %v", err)
	}

	if !p.ActiveFor("place:new") {
		t.Error("session not transferred to the new requester")
	}
	if p.ActiveFor("place:7") {
		t.Error("old requester still owns the session")
	}

	p.Confirm()
	if aCommits != 0 {
		t.Errorf("stolen session committed to the old form %d times", aCommits)
	}
}

func TestConfirmCommitsExactlyOnce(t *testing.T) {
	e, p := pinFixture(t)

	var got []model.Coordinate
	p.Toggle("place:new", nil, func(c model.Coordinate) { got = append(got, c) })
	p.Move(4, -2)
	want, _ := e.PinPosition()

	p.Confirm()
	p.Confirm() // second confirm is a no-op

	if len(got) != 1 {
		t.Fatalf("commit invoked %d times, want 1", len(got))
	}
	if math.Abs(got[0].Lat-want.Lat) > 1e-9 || math.Abs(got[0].Lon-want.Lon) > 1e-9 {
		t.Errorf("committed %+v, want pin position %+v", got[0], want)
	}
	if p.Active() {
		t.Error("session survived confirm")
	}
}

func TestCancelNeverCommits(t *testing.T) {
	e, p := pinFixture(t)

	commits := 0
	p.Toggle("place:new", nil, func(model.Coordinate) { commits++ })
	p.Cancel()

	if commits != 0 {
		t.Errorf("cancel committed %d times", commits)
	}
	if p.Active() {
		t.Error("session survived cancel")
	}
	if _, ok := e.PinPosition(); ok {
		t.Error("pin still shown after cancel")
	}
}

func TestToggleDegradedReturnsError(t *testing.T) {
	c := NewTermCanvas(true)
	c.Resize(80, 24)
	e := NewEngine(c)
	p := NewPinController(e)

	err := p.Toggle("place:new", nil, func(model.Coordinate) {})
	if !errors.Is(err, ErrMapUnavailable) {
		t.Fatalf("Toggle on degraded map: err = %v, want ErrMapUnavailable", err)
	}
	if p.Active() {
		t.Error("session active despite degraded map")
	}
}

func TestMoveShiftsPin(t *testing.T) {
	e, p := pinFixture(t)

	start := model.Coordinate{Lat: 40.7128, Lon: -74.0060}
	p.Toggle("place:new", &start, func(model.Coordinate) {})
	p.Move(5, 0)

	at, _ := e.PinPosition()
	if at.Lon <= start.Lon {
		t.Errorf("pin longitude %.6f did not increase from %.6f", at.Lon, start.Lon)
	}
	if math.Abs(at.Lat-start.Lat) > 1e-6 {
		t.Errorf("pin latitude drifted: %.6f", at.Lat)
	}
}
