package tui

import "github.com/charmbracelet/bubbles/key"

// PlayKeyMap defines the key bindings for the play screen. Letter keys
// are handled separately since they carry the guess input itself.
type PlayKeyMap struct {
	Hint     key.Binding
	Cancel   key.Binding
	Continue key.Binding
	NewGame  key.Binding
	Quit     key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k PlayKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Hint, k.Cancel, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k PlayKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Hint, k.Cancel},
		{k.Continue, k.NewGame, k.Quit},
	}
}

// DefaultPlayKeyMap returns default key bindings.
func DefaultPlayKeyMap() PlayKeyMap {
	return PlayKeyMap{
		Hint: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "hint"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Continue: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "continue game"),
		),
		NewGame: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new game"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}
