package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for map mode.
type KeyMap struct {
	PanUp      key.Binding
	PanDown    key.Binding
	PanLeft    key.Binding
	PanRight   key.Binding
	ZoomIn     key.Binding
	ZoomOut    key.Binding
	NextMarker key.Binding
	PrevMarker key.Binding
	Popup      key.Binding
	Close      key.Binding
	Add        key.Binding
	Edit       key.Binding
	Plan       key.Binding
	Visits     key.Binding
	Delete     key.Binding
	Fit        key.Binding
	Refresh    key.Binding
	Quit       key.Binding
	Help       key.Binding
}

// DefaultKeyMap returns the default map-mode keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		PanUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "pan up"),
		),
		PanDown: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "pan down"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "pan left"),
		),
		PanRight: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "pan right"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		NextMarker: key.NewBinding(
			key.WithKeys("tab", "n"),
			key.WithHelp("tab", "next place"),
		),
		PrevMarker: key.NewBinding(
			key.WithKeys("shift+tab", "N"),
			key.WithHelp("shift+tab", "prev place"),
		),
		Popup: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open popup"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add place"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Plan: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "plan visit"),
		),
		// "l" pans right until a popup is open; the popup handler wins.
		Visits: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "visits"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Fit: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fit all"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// FormKeyMap defines keybindings inside forms.
type FormKeyMap struct {
	NextField key.Binding
	PrevField key.Binding
	Save      key.Binding
	Cancel    key.Binding
	Geocode   key.Binding
	PickOnMap key.Binding
}

// DefaultFormKeyMap returns the default form keybindings.
func DefaultFormKeyMap() FormKeyMap {
	return FormKeyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev field"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Geocode: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "geocode address"),
		),
		PickOnMap: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "pick on map"),
		),
	}
}
