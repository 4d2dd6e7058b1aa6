package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the review shortcuts.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding

	// Actions
	Assign  key.Binding
	City    key.Binding
	Skip    key.Binding
	Discard key.Binding
	Refresh key.Binding
	Back    key.Binding

	// Application
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		Assign: key.NewBinding(
			key.WithKeys("enter", "a"),
			key.WithHelp("enter/a", "assign category"),
		),
		City: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "assign city"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s", "tab"),
			key.WithHelp("s", "skip"),
		),
		Discard: key.NewBinding(
			key.WithKeys("d", "x"),
			key.WithHelp("d", "discard"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Assign, k.City, k.Skip, k.Discard, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Assign, k.City, k.Skip, k.Discard},
		{k.Refresh, k.Back, k.Help, k.Quit},
	}
}
