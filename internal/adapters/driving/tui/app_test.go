package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

type mockAsker struct {
	answer *domain.Answer
	err    error
}

func (m *mockAsker) Ask(_ context.Context, _ string, _ int) (*domain.Answer, error) {
	return m.answer, m.err
}

type mockCatalog struct {
	reports []domain.Report
}

func (m *mockCatalog) List(_ context.Context, _ int) ([]domain.Report, error) {
	return m.reports, nil
}

func (m *mockCatalog) Get(_ context.Context, _ string) (*domain.Report, error) {
	return nil, domain.ErrNotFound
}

func (m *mockCatalog) Search(_ context.Context, _ string, _ int) ([]domain.Report, error) {
	return m.reports, nil
}

func (m *mockCatalog) Stats(_ context.Context) (*driving.CatalogStats, error) {
	return &driving.CatalogStats{Reports: len(m.reports)}, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(NewPorts(
		&mockAsker{answer: &domain.Answer{CheckedReports: []domain.Report{{Title: "Oil 2023"}}}},
		&mockCatalog{reports: []domain.Report{{ID: "oil-2023", Title: "Oil 2023"}}},
	), Options{NumReports: 20})
	require.NoError(t, err)
	return app
}

func TestNewApp_Success(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{}, Options{})

	assert.ErrorIs(t, err, ErrMissingAsker)
	assert.Nil(t, app)
}

func TestApp_InitAndContext(t *testing.T) {
	app := newTestApp(t)

	assert.NotNil(t, app.Init())
	assert.Same(t, app, app.WithContext(context.Background()))
}

func TestApp_WindowSize(t *testing.T) {
	app := newTestApp(t)

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "Ask a question")
}

func TestApp_AskFlow(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 30)

	app.Update(messages.ViewChanged{View: messages.ViewAsk})
	require.Equal(t, messages.ViewAsk, app.CurrentView())

	app.Update(messages.AnswerReceived{
		Question: "q",
		Answer:   &domain.Answer{CheckedReports: []domain.Report{{Title: "Oil 2023"}}},
	})

	view := app.View()
	assert.Contains(t, view, domain.NoReferencesMessage)
	assert.Contains(t, view, "Oil 2023")
	assert.NoError(t, app.Err())
}

func TestApp_AskError(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 30)
	app.Update(messages.ViewChanged{View: messages.ViewAsk})

	app.Update(messages.AnswerReceived{Question: "q", Err: errors.New("llm down")})

	require.Error(t, app.Err())
	assert.Contains(t, app.View(), "llm down")
}

func TestApp_ReportsFlow(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 40)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewReports})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, messages.ViewReports, app.CurrentView())
	assert.Contains(t, app.View(), "Reports (1)")
}

func TestApp_HelpAndBack(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 40)

	app.Update(messages.ViewChanged{View: messages.ViewHelp})
	view := app.View()
	assert.Contains(t, view, "filter")
	assert.Contains(t, view, "new question")
	assert.Contains(t, view, "[r] reports")

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	assert.Equal(t, messages.ViewHelp, app.CurrentView(), "menu shortcuts are inert on the help screen")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_CtrlCQuits(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_MenuShowsCorpusStats(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 30)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewMenu})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Contains(t, app.View(), "1 reports, 0 enriched, 0 chunks indexed")
}
