package ask

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/reportqa/internal/core/domain"
)

type stubAsker struct {
	answer     *domain.Answer
	err        error
	question   string
	numReports int
}

func (s *stubAsker) Ask(_ context.Context, question string, numReports int) (*domain.Answer, error) {
	s.question = question
	s.numReports = numReports
	return s.answer, s.err
}

func foundAnswer() *domain.Answer {
	return &domain.Answer{
		Question: "How much oil?",
		Text:     "Demand grows to 105 mb/d.",
		Citations: []domain.Citation{{
			Summary:  "Demand rises through 2028.",
			Title:    "Oil 2023",
			Page:     7,
			Link:     "https://example.com/oil-2023.pdf",
			ReportID: "oil-2023",
		}},
		CheckedReports: []domain.Report{{ID: "oil-2023", Title: "Oil 2023"}},
	}
}

func typeText(v *View, text string) {
	for _, r := range text {
		v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewView_Defaults(t *testing.T) {
	v := NewView(nil, nil, &stubAsker{}, 0)

	require.NotNil(t, v)
	assert.True(t, v.InputFocused())
	assert.False(t, v.Thinking())
	assert.Equal(t, "Initialising...", v.View())
	assert.NotNil(t, v.Init())
}

func TestView_SubmitStartsThinking(t *testing.T) {
	asker := &stubAsker{answer: foundAnswer()}
	v := NewView(nil, nil, asker, 40)
	v.SetDimensions(100, 30)

	typeText(v, "How much oil?")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.True(t, v.Thinking())
	assert.False(t, v.InputFocused())
	assert.Equal(t, "How much oil?", v.Question())
	assert.Contains(t, v.View(), "Answering: How much oil?")

	msg := v.askCmd(v.Question())()
	assert.Equal(t, "How much oil?", asker.question)
	assert.Equal(t, 40, asker.numReports)

	v.Update(msg)
	assert.False(t, v.Thinking())
	require.NotNil(t, v.Answer())
	assert.Contains(t, v.View(), "Demand grows to 105 mb/d.")
}

func TestView_EmptyQuestionIgnored(t *testing.T) {
	v := NewView(nil, nil, &stubAsker{}, 0)
	v.SetDimensions(80, 24)

	typeText(v, "   ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.False(t, v.Thinking())
}

func TestView_KeysIgnoredWhileThinking(t *testing.T) {
	v := NewView(nil, nil, &stubAsker{}, 0)
	v.SetDimensions(80, 24)
	typeText(v, "q")
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	assert.Nil(t, cmd)
	assert.True(t, v.Thinking())
}

func TestView_NoReferencesAnswer(t *testing.T) {
	v := NewView(nil, nil, &stubAsker{}, 0)
	v.SetDimensions(100, 30)

	v.Update(messages.AnswerReceived{
		Question: "q",
		Answer:   &domain.Answer{CheckedReports: []domain.Report{{Title: "Coal 2022"}}},
	})

	assert.Equal(t, status.StateNoReferences, v.statusbar.State())
	view := v.View()
	assert.Contains(t, view, domain.NoReferencesMessage)
	assert.Contains(t, view, "Coal 2022")
}

func TestView_AnswerError(t *testing.T) {
	v := NewView(nil, nil, &stubAsker{}, 0)
	v.SetDimensions(100, 30)

	v.Update(messages.AnswerReceived{Question: "q", Err: domain.ErrRepairExhausted})

	assert.ErrorIs(t, v.Err(), domain.ErrRepairExhausted)
	assert.True(t, v.InputFocused())
	assert.Equal(t, status.StateError, v.statusbar.State())
	assert.Contains(t, v.View(), "output repair exhausted")
}

func TestView_MissingAsker(t *testing.T) {
	v := NewView(nil, nil, nil, 0)

	msg := v.askCmd("q")()

	assert.Equal(t, messages.ErrorOccurred{Err: ErrNoAsker}, msg)
}

func TestView_NewQuestionAfterAnswer(t *testing.T) {
	v := NewView(nil, nil, &stubAsker{}, 0)
	v.SetDimensions(100, 30)
	v.submit("q")
	v.Update(messages.AnswerReceived{Question: "q", Answer: foundAnswer()})
	require.False(t, v.InputFocused())

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})

	assert.True(t, v.InputFocused())
	assert.Empty(t, v.input.Value())
}

func TestView_EscReturnsToMenu(t *testing.T) {
	v := NewView(nil, nil, &stubAsker{}, 0)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_Reset(t *testing.T) {
	v := NewView(nil, nil, &stubAsker{}, 0)
	v.SetDimensions(100, 30)
	v.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	v.Reset()

	assert.Nil(t, v.Err())
	assert.Nil(t, v.Answer())
	assert.True(t, v.InputFocused())
	assert.Equal(t, status.StateReady, v.statusbar.State())
}

func TestRenderAnswer(t *testing.T) {
	s := styles.DefaultStyles()

	out := RenderAnswer(s, foundAnswer(), 80)

	assert.Contains(t, out, "Answer")
	assert.Contains(t, out, "Demand grows to 105 mb/d.")
	assert.Contains(t, out, "Page 7 | Oil 2023")
	assert.Contains(t, out, "https://example.com/oil-2023.pdf#page=7")
	assert.Contains(t, out, "Checked the following reports:")
	assert.Contains(t, out, "- Oil 2023")
	assert.Empty(t, RenderAnswer(s, nil, 80))
}
