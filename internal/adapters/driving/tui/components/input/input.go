// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/styles"
)

// Field wraps a bubbles textinput with a label.
type Field struct {
	textinput textinput.Model
	styles    *styles.Styles
	label     string
	width     int
}

// NewField creates a focused input labelled with label.
func NewField(s *styles.Styles, label, placeholder string, charLimit int) *Field {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.CharLimit = charLimit
	ti.Width = 50

	return &Field{
		textinput: ti,
		styles:    s,
		label:     label,
		width:     50,
	}
}

// NewQuestionInput creates the question input of the ask view.
func NewQuestionInput(s *styles.Styles) *Field {
	return NewField(s, "Ask: ", "What does the IEA expect for oil demand in 2030?", 1024)
}

// NewFilterInput creates the keyword filter of the reports view.
func NewFilterInput(s *styles.Styles) *Field {
	f := NewField(s, "Filter: ", "keywords, e.g. hydrogen 2023", 256)
	f.Blur()
	return f
}

// Init initialises the input.
func (f *Field) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (f *Field) Update(msg tea.Msg) (*Field, tea.Cmd) {
	var cmd tea.Cmd
	f.textinput, cmd = f.textinput.Update(msg)
	return f, cmd
}

// View renders the input.
func (f *Field) View() string {
	label := f.styles.Title.Render(f.label)
	field := f.styles.InputField.Render(f.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current input value.
func (f *Field) Value() string {
	return f.textinput.Value()
}

// SetValue sets the input value.
func (f *Field) SetValue(value string) {
	f.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (f *Field) Focus() tea.Cmd {
	return f.textinput.Focus()
}

// Blur removes focus from the input.
func (f *Field) Blur() {
	f.textinput.Blur()
}

// Focused returns whether the input is focused.
func (f *Field) Focused() bool {
	return f.textinput.Focused()
}

// SetWidth sets the width of the input.
func (f *Field) SetWidth(width int) {
	f.width = width
	// Account for label and padding
	inputWidth := width - lipgloss.Width(f.label) - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	f.textinput.Width = inputWidth
}

// Width returns the current width.
func (f *Field) Width() int {
	return f.width
}

// Reset clears the input.
func (f *Field) Reset() {
	f.textinput.Reset()
}
