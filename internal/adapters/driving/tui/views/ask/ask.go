// Package ask provides the question and answer view for the TUI.
package ask

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

// reservedLines is the height taken by the header, input and status bar.
const reservedLines = 8

// View asks a question and shows the cited answer in a scrollable pane.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Field
	spinner   spinner.Model
	viewport  viewport.Model
	statusbar *status.Bar

	asker      driving.Asker
	ctx        context.Context
	numReports int

	question   string
	answer     *domain.Answer
	err        error
	thinking   bool
	focusInput bool

	width  int
	height int
	ready  bool
}

// NewView creates a new ask view. A non-positive numReports uses the
// configured default.
func NewView(s *styles.Styles, km *keymap.KeyMap, asker driving.Asker, numReports int) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Subtitle

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		spinner:    sp,
		viewport:   viewport.New(80, 24-reservedLines),
		statusbar:  status.NewBar(s, km),
		asker:      asker,
		ctx:        context.Background(),
		numReports: numReports,
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context used for questions.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case spinner.TickMsg:
		if !v.thinking {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.fail(msg.Err)
		return v, nil
	}

	if v.focusInput {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	// Keys are ignored while the pipeline runs.
	if v.thinking {
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			question := strings.TrimSpace(v.input.Value())
			if question == "" {
				return v, nil
			}
			return v, v.submit(question)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	if key.Matches(msg, v.keymap.NewQuestion) {
		v.focusInput = true
		v.input.Reset()
		return v, v.input.Focus()
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// submit starts answering question.
func (v *View) submit(question string) tea.Cmd {
	v.question = question
	v.thinking = true
	v.focusInput = false
	v.err = nil
	v.input.Blur()
	v.statusbar.Thinking()
	return tea.Batch(v.spinner.Tick, v.askCmd(question))
}

// askCmd runs the question through the ask service.
func (v *View) askCmd(question string) tea.Cmd {
	asker := v.asker
	ctx := v.ctx
	numReports := v.numReports
	return func() tea.Msg {
		if asker == nil {
			return messages.ErrorOccurred{Err: ErrNoAsker}
		}
		answer, err := asker.Ask(ctx, question, numReports)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

// handleAnswer shows a finished answer.
func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.thinking = false
	if msg.Err != nil {
		v.fail(msg.Err)
		return
	}

	v.err = nil
	v.answer = msg.Answer
	v.viewport.SetContent(RenderAnswer(v.styles, msg.Answer, v.viewport.Width))
	v.viewport.GotoTop()

	if msg.Answer.Found() {
		v.statusbar.Answered(len(msg.Answer.Citations))
	} else {
		v.statusbar.NoReferences()
	}
}

func (v *View) fail(err error) {
	v.thinking = false
	v.err = err
	v.focusInput = true
	v.input.Focus()
	v.statusbar.Failed(err)
}

// RenderAnswer renders an answer with its sources and the checked reports,
// wrapped to width.
func RenderAnswer(s *styles.Styles, answer *domain.Answer, width int) string {
	if answer == nil {
		return ""
	}
	if width < 20 {
		width = 20
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	if answer.Found() {
		b.WriteString(s.Subtitle.Render("Answer"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(s.Normal.Render(answer.Text)))
		b.WriteString("\n\n")
		b.WriteString(s.Subtitle.Render("Sources"))
		b.WriteString("\n\n")
		for _, c := range answer.Citations {
			b.WriteString(wrap.Render(c.Summary))
			b.WriteString("\n")
			b.WriteString(s.Citation.Render(fmt.Sprintf("Page %d | %s", c.Page, c.Title)))
			b.WriteString("\n")
			b.WriteString(s.Link.Render(c.PageLink()))
			b.WriteString("\n\n")
		}
	} else {
		b.WriteString(s.Warning.Render(domain.NoReferencesMessage))
		b.WriteString("\n\n")
	}

	b.WriteString(s.Muted.Render("Checked the following reports:"))
	b.WriteString("\n")
	for i := range answer.CheckedReports {
		b.WriteString(s.Muted.Render("  - " + answer.CheckedReports[i].Title))
		b.WriteString("\n")
	}
	return b.String()
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("reportqa"), "", v.input.View(), "")

	switch {
	case v.thinking:
		sections = append(sections, v.spinner.View()+" "+v.styles.Muted.Render("Answering: "+v.question))
	case v.err != nil:
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
	case v.answer != nil:
		sections = append(sections, v.viewport.View())
	default:
		sections = append(sections, v.styles.Muted.Render("Type a question and press enter."))
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.viewport.Width = width
	v.viewport.Height = max(height-reservedLines, 3)
	if v.answer != nil {
		v.viewport.SetContent(RenderAnswer(v.styles, v.answer, width))
	}
}

// Reset returns the view to an empty question.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.Reset()
	v.question = ""
	v.answer = nil
	v.err = nil
	v.thinking = false
	v.statusbar.Clear()
}

// Question returns the last submitted question.
func (v *View) Question() string {
	return v.question
}

// Answer returns the last answer, if any.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Thinking returns whether a question is being answered.
func (v *View) Thinking() bool {
	return v.thinking
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
