// Package styles holds the TUI palette and the lipgloss styles built on it.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette. Each colour has a light and a dark variant and
// lipgloss picks one from the terminal background.
type Theme struct {
	Primary    lipgloss.AdaptiveColor
	Secondary  lipgloss.AdaptiveColor // report titles, citations
	Foreground lipgloss.AdaptiveColor
	Muted      lipgloss.AdaptiveColor
	Link       lipgloss.AdaptiveColor
	Success    lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor // answers without references
	Error      lipgloss.AdaptiveColor
	Border     lipgloss.AdaptiveColor
	Bar        lipgloss.AdaptiveColor // status bar background
}

// DefaultTheme is teal and amber.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    adaptive("#0B5F6A", "#0F7B8A"),
		Secondary:  adaptive("#B36B00", "#F2A541"),
		Foreground: adaptive("#1F2328", "#E6E6E6"),
		Muted:      adaptive("#5C6370", "#7A7F87"),
		Link:       adaptive("#1D63B8", "#5DA9E9"),
		Success:    adaptive("#2E7D32", "#7BC47F"),
		Warning:    adaptive("#8A6D00", "#E9C46A"),
		Error:      adaptive("#B3261E", "#E76F51"),
		Border:     adaptive("#C9CED6", "#3A3F47"),
		Bar:        adaptive("#ECEFF3", "#1B1F24"),
	}
}

func adaptive(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Styles are the rendered styles shared by every view.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style // section headings such as "Sources"
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style

	// Citation renders the "Page N | Title" line under an answer.
	Citation lipgloss.Style
	Link     lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Border     lipgloss.Style
}

// NewStyles builds styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	boxed := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)

	return &Styles{
		theme:    theme,
		Title:    fg(theme.Primary).Bold(true),
		Subtitle: fg(theme.Secondary).Bold(true),
		Normal:   fg(theme.Foreground),
		Muted:    fg(theme.Muted),
		Selected: fg(theme.Foreground).Background(theme.Primary).Bold(true),
		Error:    fg(theme.Error),
		Success:  fg(theme.Success),
		Warning:  fg(theme.Warning),
		Citation: fg(theme.Secondary).Italic(true),
		Link:     fg(theme.Link).Underline(true),

		InputField: boxed.Padding(0, 1),
		StatusBar:  fg(theme.Muted).Background(theme.Bar).Padding(0, 1),
		Border:     boxed,
	}
}

// DefaultStyles is NewStyles(DefaultTheme()).
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
