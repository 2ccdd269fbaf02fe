package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the terminal UI bindings.
type KeyMap struct {
	Send       key.Binding
	Listen     key.Binding
	Mute       key.Binding
	Customize  key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Quit       key.Binding

	// customizer
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Close  key.Binding
}

var DefaultKeyMap = KeyMap{
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Listen: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "listen"),
	),
	Mute: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "mute"),
	),
	Customize: key.NewBinding(
		key.WithKeys("ctrl+a"),
		key.WithHelp("ctrl+a", "avatar"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "scroll down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Close: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Listen, k.Mute, k.Customize, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Listen, k.Mute, k.Customize},
		{k.ScrollUp, k.ScrollDown, k.Quit},
	}
}

// pickerKeys is the help shown while the customizer is open.
type pickerKeys KeyMap

func (k pickerKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Close}
}

func (k pickerKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
