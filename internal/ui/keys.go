package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the chat window key bindings.
type KeyMap struct {
	Submit      key.Binding
	ToggleInput key.Binding
	MarkRead    key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	Quit        key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	ToggleInput: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("C-t", "korean/english"),
	),
	MarkRead: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "mark read"),
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
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}
