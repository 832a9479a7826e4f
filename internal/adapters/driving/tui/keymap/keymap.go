// Package keymap holds the key bindings shared by the TUI screens. KeyMap
// satisfies help.KeyMap, so the help screen is rendered from it.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap lists every binding the screens react to.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// Submit asks the typed question.
	Submit key.Binding

	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// NewQuestion returns focus to the question input after an answer.
	NewQuestion key.Binding

	// Filter focuses the catalog filter on the reports screen.
	Filter key.Binding
}

func bind(helpKey, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}

// DefaultKeyMap uses vi-style movement alongside the arrow keys.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:        bind("q", "quit", "q", "ctrl+c"),
		Help:        bind("?", "help", "?"),
		Back:        bind("esc", "back", "esc"),
		Submit:      bind("enter", "ask", "enter"),
		Up:          bind("↑/k", "up", "up", "k"),
		Down:        bind("↓/j", "down", "down", "j"),
		PageUp:      bind("pgup/b", "page up", "pgup", "b"),
		PageDown:    bind("pgdn/f", "page down", "pgdown", "f", " "),
		NewQuestion: bind("n", "new question", "n"),
		Filter:      bind("/", "filter", "/"),
	}
}

// ShortHelp is shown while a question is being typed.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Back}
}

// AnswerHelp is shown under an answer.
func (k *KeyMap) AnswerHelp() []key.Binding {
	return []key.Binding{k.NewQuestion, k.Up, k.Down, k.PageDown, k.Back}
}

// ReportsHelp is shown on the reports screen.
func (k *KeyMap) ReportsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Filter, k.Back}
}

// FullHelp groups the bindings into scrolling, actions and the app.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Submit, k.NewQuestion, k.Filter, k.Back},
		{k.Help, k.Quit},
	}
}
