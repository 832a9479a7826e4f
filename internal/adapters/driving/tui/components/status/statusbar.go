// Package status renders the one-line bar under the ask and reports views.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/styles"
)

// State is what the bar currently reports.
type State string

const (
	StateReady        State = "ready"
	StateThinking     State = "thinking"
	StateAnswered     State = "answered"
	StateNoReferences State = "no_references"
	StateBrowsing     State = "browsing"
	StateError        State = "error"
)

// Bar shows progress of the current question on the left and the keys
// that apply on the right. Views drive it with the event methods below.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	now    func() time.Time

	state   State
	note    string
	count   int
	started time.Time
	took    time.Duration
	width   int
}

// NewBar uses the default styles and keys for nil arguments.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{
		styles: s,
		keymap: km,
		now:    time.Now,
		state:  StateReady,
		width:  80,
	}
}

// Thinking starts the elapsed clock for a question.
func (s *Bar) Thinking() {
	s.reset(StateThinking)
	s.started = s.now()
}

// Answered records a cited answer.
func (s *Bar) Answered(sources int) {
	s.finish(StateAnswered)
	s.count = sources
}

// NoReferences records an answer the corpus could not support.
func (s *Bar) NoReferences() {
	s.finish(StateNoReferences)
}

// Browsing shows how many reports the list holds.
func (s *Bar) Browsing(reports int) {
	s.reset(StateBrowsing)
	s.count = reports
}

// Failed shows err until the next event.
func (s *Bar) Failed(err error) {
	s.reset(StateError)
	if err != nil {
		s.note = err.Error()
	}
}

// Note shows msg in the ready state.
func (s *Bar) Note(msg string) {
	s.reset(StateReady)
	s.note = msg
}

// Clear returns to the ready state.
func (s *Bar) Clear() {
	s.reset(StateReady)
}

func (s *Bar) finish(state State) {
	var took time.Duration
	if s.state == StateThinking {
		took = s.now().Sub(s.started)
	}
	s.reset(state)
	s.took = took
}

func (s *Bar) reset(state State) {
	*s = Bar{styles: s.styles, keymap: s.keymap, now: s.now, width: s.width, state: state}
}

// View renders the bar at the configured width.
func (s *Bar) View() string {
	left, right := s.status(), s.hints()
	gap := max(s.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *Bar) status() string {
	switch s.state {
	case StateThinking:
		return s.styles.Muted.Render("Reading reports... " + seconds(s.now().Sub(s.started)))
	case StateAnswered:
		return s.styles.Success.Render(fmt.Sprintf("%d sources", s.count) + s.elapsed())
	case StateNoReferences:
		return s.styles.Warning.Render("No relevant references" + s.elapsed())
	case StateBrowsing:
		return s.styles.Normal.Render(fmt.Sprintf("%d reports", s.count))
	case StateError:
		if s.note == "" {
			return s.styles.Error.Render("Error")
		}
		return s.styles.Error.Render("Error: " + s.note)
	}
	if s.note != "" {
		return s.styles.Normal.Render(s.note)
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) elapsed() string {
	if s.took <= 0 {
		return ""
	}
	return " in " + seconds(s.took)
}

func seconds(d time.Duration) string {
	return d.Round(time.Second).String()
}

func (s *Bar) hints() string {
	var bindings []key.Binding
	switch s.state {
	case StateAnswered, StateNoReferences:
		bindings = s.keymap.AnswerHelp()
	case StateBrowsing:
		bindings = s.keymap.ReportsHelp()
	default:
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

func (s *Bar) State() State { return s.state }

func (s *Bar) Count() int { return s.count }

func (s *Bar) SetWidth(width int) { s.width = width }

func (s *Bar) Width() int { return s.width }
