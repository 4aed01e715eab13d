package mapview

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"atlas/internal/model"
)

// Canvas is the drawing capability the sync engine renders onto: place
// markers, bind a popup, show the pinning cursor, move the viewport.
// The engine is its only caller; nothing else touches the surface.
type Canvas interface {
	Ready() bool
	Resize(width, height int)
	Size() (width, height int)

	SetView(center model.Coordinate, zoom int)
	Center() model.Coordinate
	Zoom() int
	Pan(dcol, drow int)
	ZoomBy(delta int)

	ClearMarkers()
	AddMarker(id int64, at model.Coordinate, label, status string)
	SetSelected(id int64)
	Visible(id int64) bool

	ShowPopup(id int64, lines []string)
	HidePopup()

	ShowPin(at model.Coordinate)
	MovePin(dcol, drow int)
	PinPosition() (model.Coordinate, bool)
	HidePin()

	View() string
}

// Cell styles for the rendered grid.
const (
	styleBG int8 = iota
	styleGrid
	stylePending
	stylePlanned
	styleVisited
	styleSelected
	styleLabel
	stylePin
	stylePopupBorder
	stylePopupTitle
	stylePopupText
	stylePopupHint
	styleInfo
)

var cellStyles = map[int8]lipgloss.Style{
	styleBG:          lipgloss.NewStyle(),
	styleGrid:        lipgloss.NewStyle().Foreground(lipgloss.Color("#3B4252")),
	stylePending:     lipgloss.NewStyle().Foreground(lipgloss.Color("#EBCB8B")),
	stylePlanned:     lipgloss.NewStyle().Foreground(lipgloss.Color("#81A1C1")),
	styleVisited:     lipgloss.NewStyle().Foreground(lipgloss.Color("#A3BE8C")),
	styleSelected:    lipgloss.NewStyle().Foreground(lipgloss.Color("#88C0D0")).Bold(true),
	styleLabel:       lipgloss.NewStyle().Foreground(lipgloss.Color("#D8DEE9")),
	stylePin:         lipgloss.NewStyle().Foreground(lipgloss.Color("#BF616A")).Bold(true),
	stylePopupBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("#4C566A")),
	stylePopupTitle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#88C0D0")).Bold(true),
	stylePopupText:   lipgloss.NewStyle().Foreground(lipgloss.Color("#D8DEE9")),
	stylePopupHint:   lipgloss.NewStyle().Foreground(lipgloss.Color("#616E88")),
	styleInfo:        lipgloss.NewStyle().Foreground(lipgloss.Color("#616E88")),
}

var unavailableStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#616E88")).
	Italic(true)

const (
	minCanvasWidth  = 20
	minCanvasHeight = 8
	maxLabelLen     = 16
	maxPopupWidth   = 34
)

type cell struct {
	ch    rune
	style int8
}

type drawnMarker struct {
	id     int64
	at     model.Coordinate
	label  string
	status string
}

// TermCanvas draws the map as a character grid: a dotted graticule
// background, one glyph per marker with its label, an optional popup
// box, and the pinning cursor. One terminal column equals one map
// pixel; one row equals two, correcting the cell aspect ratio.
type TermCanvas struct {
	width, height int
	center        model.Coordinate
	zoom          int
	disabled      bool

	markers  []drawnMarker
	byID     map[int64]int // index into markers
	selected int64

	popupID    int64
	popupLines []string

	pin *model.Coordinate
}

// NewTermCanvas creates an unsized canvas. disabled forces the
// degraded no-map path regardless of size.
func NewTermCanvas(disabled bool) *TermCanvas {
	return &TermCanvas{
		zoom:     minZoom,
		disabled: disabled,
		byID:     make(map[int64]int),
	}
}

// Ready reports whether the canvas can draw and take view operations.
func (c *TermCanvas) Ready() bool {
	return !c.disabled && c.width >= minCanvasWidth && c.height >= minCanvasHeight
}

// Resize sets the drawable area in terminal cells.
func (c *TermCanvas) Resize(width, height int) {
	c.width = width
	c.height = height
}

// Size returns the drawable area in terminal cells.
func (c *TermCanvas) Size() (int, int) {
	return c.width, c.height
}

// SetView recenters the viewport.
func (c *TermCanvas) SetView(center model.Coordinate, zoom int) {
	c.center = clampView(center)
	c.zoom = clampZoom(zoom)
}

// Center returns the viewport center.
func (c *TermCanvas) Center() model.Coordinate {
	return c.center
}

// Zoom returns the current zoom level.
func (c *TermCanvas) Zoom() int {
	return c.zoom
}

// Pan shifts the viewport by terminal cells.
func (c *TermCanvas) Pan(dcol, drow int) {
	if !c.Ready() {
		return
	}
	c.center = clampView(c.coordAt(c.width/2+dcol, c.height/2+drow))
}

// ZoomBy changes the zoom level, keeping the center fixed.
func (c *TermCanvas) ZoomBy(delta int) {
	c.zoom = clampZoom(c.zoom + delta)
}

// ClearMarkers removes all markers and any open popup.
func (c *TermCanvas) ClearMarkers() {
	c.markers = c.markers[:0]
	c.byID = make(map[int64]int)
	c.popupID = 0
	c.popupLines = nil
}

// AddMarker places a marker for a place.
func (c *TermCanvas) AddMarker(id int64, at model.Coordinate, label, status string) {
	c.byID[id] = len(c.markers)
	c.markers = append(c.markers, drawnMarker{id: id, at: at, label: label, status: status})
}

// SetSelected highlights one marker; 0 clears the highlight.
func (c *TermCanvas) SetSelected(id int64) {
	c.selected = id
}

// Visible reports whether a marker falls inside the viewport.
func (c *TermCanvas) Visible(id int64) bool {
	idx, ok := c.byID[id]
	if !ok || !c.Ready() {
		return false
	}
	_, _, visible := c.cellOf(c.markers[idx].at)
	return visible
}

// ShowPopup binds popup content to a marker.
func (c *TermCanvas) ShowPopup(id int64, lines []string) {
	if _, ok := c.byID[id]; !ok {
		return
	}
	c.popupID = id
	c.popupLines = lines
}

// HidePopup closes any open popup.
func (c *TermCanvas) HidePopup() {
	c.popupID = 0
	c.popupLines = nil
}

// ShowPin places the pinning cursor, recentering if it is off-screen.
func (c *TermCanvas) ShowPin(at model.Coordinate) {
	at = clampView(at)
	c.pin = &at
	if _, _, visible := c.cellOf(at); !visible {
		c.SetView(at, c.zoom)
	}
}

// MovePin nudges the pinning cursor by terminal cells, panning the
// viewport along when the pin would leave it.
func (c *TermCanvas) MovePin(dcol, drow int) {
	if c.pin == nil || !c.Ready() {
		return
	}
	px, py := pixelAt(c.pin.Lat, c.pin.Lon, c.zoom)
	px += float64(dcol)
	py += float64(drow) * 2.0
	lat, lon := latLonAt(px, py, c.zoom)
	at := clampView(model.Coordinate{Lat: lat, Lon: lon})
	c.pin = &at
	if _, _, visible := c.cellOf(at); !visible {
		c.SetView(at, c.zoom)
	}
}

// PinPosition reports the pinning cursor position.
func (c *TermCanvas) PinPosition() (model.Coordinate, bool) {
	if c.pin == nil {
		return model.Coordinate{}, false
	}
	return *c.pin, true
}

// HidePin removes the pinning cursor.
func (c *TermCanvas) HidePin() {
	c.pin = nil
}

// cellOf maps a coordinate to a grid cell relative to the viewport.
func (c *TermCanvas) cellOf(at model.Coordinate) (col, row int, visible bool) {
	cx, cy := pixelAt(c.center.Lat, c.center.Lon, c.zoom)
	px, py := pixelAt(at.Lat, at.Lon, c.zoom)
	col = c.width/2 + int(math.Round(px-cx))
	row = c.height/2 + int(math.Round((py-cy)/2.0))
	visible = col >= 0 && col < c.width && row >= 0 && row < c.height
	return col, row, visible
}

// coordAt maps a grid cell back to a coordinate.
func (c *TermCanvas) coordAt(col, row int) model.Coordinate {
	cx, cy := pixelAt(c.center.Lat, c.center.Lon, c.zoom)
	px := cx + float64(col-c.width/2)
	py := cy + float64(row-c.height/2)*2.0
	lat, lon := latLonAt(px, py, c.zoom)
	return model.Coordinate{Lat: lat, Lon: lon}
}

// View renders the grid.
func (c *TermCanvas) View() string {
	if c.width <= 0 || c.height <= 0 {
		return ""
	}
	if !c.Ready() {
		return lipgloss.Place(c.width, c.height, lipgloss.Center, lipgloss.Center,
			unavailableStyle.Render("map unavailable"))
	}

	grid := c.newGrid()
	c.drawScaleBar(grid)
	c.drawViewportInfo(grid)
	c.drawMarkers(grid)
	c.drawPopup(grid)
	c.drawPin(grid)
	return renderGrid(grid)
}

// newGrid builds the background with a dotted graticule.
func (c *TermCanvas) newGrid() [][]cell {
	grid := make([][]cell, c.height)
	for row := range grid {
		grid[row] = make([]cell, c.width)
		for col := range grid[row] {
			grid[row][col] = cell{ch: ' ', style: styleBG}
		}
	}

	step := graticuleStep(c.zoom)

	vert := make([]bool, c.width)
	for col := 0; col < c.width; col++ {
		a := c.coordAt(col, 0).Lon
		b := c.coordAt(col+1, 0).Lon
		vert[col] = crossesMultiple(a, b, step)
	}
	horiz := make([]bool, c.height)
	for row := 0; row < c.height; row++ {
		a := c.coordAt(0, row).Lat
		b := c.coordAt(0, row+1).Lat
		horiz[row] = crossesMultiple(a, b, step)
	}

	for row := 0; row < c.height; row++ {
		for col := 0; col < c.width; col++ {
			switch {
			case vert[col] && horiz[row]:
				grid[row][col] = cell{ch: '+', style: styleGrid}
			case vert[col] && row%2 == 1:
				grid[row][col] = cell{ch: '·', style: styleGrid}
			case horiz[row] && col%4 == 2:
				grid[row][col] = cell{ch: '·', style: styleGrid}
			}
		}
	}
	return grid
}

// graticuleStep picks a degree step that keeps grid lines several
// cells apart at the current zoom.
func graticuleStep(zoom int) float64 {
	degPerCell := 360.0 / (tileSize * math.Exp2(float64(zoom)))
	steps := []float64{0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30, 45}
	for _, s := range steps {
		if s >= degPerCell*6 {
			return s
		}
	}
	return 45
}

func crossesMultiple(a, b, step float64) bool {
	if a > b {
		a, b = b, a
	}
	return math.Floor(a/step) != math.Floor(b/step)
}

func (c *TermCanvas) drawMarkers(grid [][]cell) {
	draw := func(m drawnMarker) {
		col, row, visible := c.cellOf(m.at)
		if !visible {
			return
		}
		style := statusStyle(m.status)
		glyph := '●'
		if m.id == c.selected {
			style = styleSelected
			glyph = '◉'
		}
		label := m.label
		if len([]rune(label)) > maxLabelLen {
			label = string([]rune(label)[:maxLabelLen-1]) + "…"
		}
		drawText(grid, row, col+2, label, styleLabel)
		grid[row][col] = cell{ch: glyph, style: style}
	}

	for _, m := range c.markers {
		if m.id != c.selected {
			draw(m)
		}
	}
	if idx, ok := c.byID[c.selected]; ok {
		draw(c.markers[idx])
	}
}

func statusStyle(status string) int8 {
	switch status {
	case model.StatusPlanned:
		return stylePlanned
	case model.StatusVisited:
		return styleVisited
	default:
		return stylePending
	}
}

func (c *TermCanvas) drawPopup(grid [][]cell) {
	if c.popupID == 0 || len(c.popupLines) == 0 {
		return
	}
	idx, ok := c.byID[c.popupID]
	if !ok {
		return
	}

	inner := 0
	for _, line := range c.popupLines {
		if n := len([]rune(line)); n > inner {
			inner = n
		}
	}
	if inner > maxPopupWidth {
		inner = maxPopupWidth
	}
	boxW := inner + 4
	boxH := len(c.popupLines) + 2
	if boxW > c.width || boxH > c.height {
		return
	}

	col, row, visible := c.cellOf(c.markers[idx].at)
	x, y := 1, 1
	if visible {
		x = col + 2
		if x+boxW > c.width {
			x = col - 1 - boxW
		}
		y = row - boxH/2
	}
	x = clampInt(x, 0, c.width-boxW)
	y = clampInt(y, 0, c.height-boxH)

	// Border
	grid[y][x] = cell{ch: '┌', style: stylePopupBorder}
	grid[y][x+boxW-1] = cell{ch: '┐', style: stylePopupBorder}
	grid[y+boxH-1][x] = cell{ch: '└', style: stylePopupBorder}
	grid[y+boxH-1][x+boxW-1] = cell{ch: '┘', style: stylePopupBorder}
	for i := 1; i < boxW-1; i++ {
		grid[y][x+i] = cell{ch: '─', style: stylePopupBorder}
		grid[y+boxH-1][x+i] = cell{ch: '─', style: stylePopupBorder}
	}

	for li, line := range c.popupLines {
		style := stylePopupText
		if li == 0 {
			style = stylePopupTitle
		}
		if li == len(c.popupLines)-1 {
			style = stylePopupHint
		}
		runes := []rune(line)
		if len(runes) > inner {
			runes = append(runes[:inner-1], '…')
		}
		ry := y + 1 + li
		grid[ry][x] = cell{ch: '│', style: stylePopupBorder}
		grid[ry][x+boxW-1] = cell{ch: '│', style: stylePopupBorder}
		for i := 0; i < inner; i++ {
			ch := ' '
			if i < len(runes) {
				ch = runes[i]
			}
			grid[ry][x+2+i] = cell{ch: ch, style: style}
		}
		grid[ry][x+1] = cell{ch: ' ', style: style}
		grid[ry][x+2+inner] = cell{ch: ' ', style: style}
	}
}

func (c *TermCanvas) drawPin(grid [][]cell) {
	if c.pin == nil {
		return
	}
	col, row, visible := c.cellOf(*c.pin)
	if !visible {
		return
	}
	grid[row][col] = cell{ch: '✜', style: stylePin}
}

func (c *TermCanvas) drawScaleBar(grid [][]cell) {
	if c.height < 4 || c.width < 30 {
		return
	}
	const cells = 10
	row := c.height - 1
	a := c.coordAt(1, row)
	b := c.coordAt(1+cells, row)
	dist := haversineMeters(a.Lat, a.Lon, b.Lat, b.Lon)
	bar := "├" + strings.Repeat("─", cells-2) + "┤ " + formatDistance(dist)
	drawText(grid, row, 1, bar, styleInfo)
}

func (c *TermCanvas) drawViewportInfo(grid [][]cell) {
	if c.height < 4 || c.width < 30 {
		return
	}
	info := fmt.Sprintf("%.3f, %.3f  z%d", c.center.Lat, c.center.Lon, c.zoom)
	drawText(grid, c.height-1, c.width-1-len([]rune(info)), info, styleInfo)
}

func formatDistance(meters float64) string {
	switch {
	case meters >= 10000:
		return fmt.Sprintf("%.0f km", meters/1000)
	case meters >= 1000:
		return fmt.Sprintf("%.1f km", meters/1000)
	default:
		return fmt.Sprintf("%.0f m", meters)
	}
}

func drawText(grid [][]cell, row, col int, s string, style int8) {
	if row < 0 || row >= len(grid) {
		return
	}
	for i, ch := range []rune(s) {
		x := col + i
		if x < 0 || x >= len(grid[row]) {
			continue
		}
		grid[row][x] = cell{ch: ch, style: style}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// renderGrid turns the cell grid into styled terminal rows, batching
// runs of the same style.
func renderGrid(grid [][]cell) string {
	var b strings.Builder
	for row, cells := range grid {
		if row > 0 {
			b.WriteByte('\n')
		}
		runStart := 0
		for i := 1; i <= len(cells); i++ {
			if i < len(cells) && cells[i].style == cells[runStart].style {
				continue
			}
			var run strings.Builder
			for _, c := range cells[runStart:i] {
				run.WriteRune(c.ch)
			}
			b.WriteString(cellStyles[cells[runStart].style].Render(run.String()))
			runStart = i
		}
	}
	return b.String()
}
