package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/views/reports"
)

// Options tunes the TUI.
type Options struct {
	// NumReports is the scope pool size passed with each question.
	// Zero uses the configured default.
	NumReports int
}

// App switches between the menu, ask, reports and help screens. Results of
// background commands are delivered to the screen that asked for them even
// when another screen is showing.
type App struct {
	ports  *Ports
	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model

	menuView    *menu.View
	askView     *ask.View
	reportsView *reports.View

	current messages.ViewType
	err     error

	width, height int
	ready         bool
}

var _ tea.Model = (*App)(nil)

// NewApp needs at least an Asker in ports.
func NewApp(ports *Ports, opts Options) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	h := help.New()
	h.ShowAll = true
	h.Styles.FullKey = s.Subtitle
	h.Styles.FullDesc = s.Normal
	h.Styles.FullSeparator = s.Muted

	return &App{
		ports:       ports,
		styles:      s,
		keys:        km,
		help:        h,
		menuView:    menu.NewView(s, ports.Catalog),
		askView:     ask.NewView(s, km, ports.Asker, opts.NumReports),
		reportsView: reports.NewView(s, km, ports.Catalog),
		current:     messages.ViewMenu,
	}, nil
}

// WithContext sets the context for questions and catalog reads.
func (a *App) WithContext(ctx context.Context) *App {
	a.menuView.WithContext(ctx)
	a.askView.WithContext(ctx)
	a.reportsView.WithContext(ctx)
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("reportqa"), a.menuView.Init())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		if a.current == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.current = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(a.current, msg)

	case messages.ViewChanged:
		return a, a.show(msg.View)

	case messages.Quit:
		return a, tea.Quit

	case messages.StatsLoaded:
		return a, a.forward(messages.ViewMenu, msg)

	case messages.AnswerReceived:
		return a, a.forward(messages.ViewAsk, msg)

	case messages.ReportsLoaded:
		return a, a.forward(messages.ViewReports, msg)

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.current == messages.ViewAsk {
			return a, a.forward(messages.ViewAsk, msg)
		}
		return a, nil
	}

	// Spinner ticks and the like belong to whatever is on screen.
	return a, a.forward(a.current, msg)
}

// show switches screens and starts the new screen's loading command.
func (a *App) show(view messages.ViewType) tea.Cmd {
	a.current = view
	switch view {
	case messages.ViewMenu:
		return a.menuView.Init()
	case messages.ViewAsk:
		a.askView.Reset()
		return a.askView.Init()
	case messages.ViewReports:
		return a.reportsView.Init()
	}
	return nil
}

// forward delivers msg to one screen and records its error state.
func (a *App) forward(view messages.ViewType, msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch view {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
		a.err = a.askView.Err()
	case messages.ViewReports:
		a.reportsView, cmd = a.reportsView.Update(msg)
		a.err = a.reportsView.Err()
	}
	return cmd
}

func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	switch a.current {
	case messages.ViewAsk:
		return a.askView.View()
	case messages.ViewReports:
		return a.reportsView.View()
	case messages.ViewHelp:
		return a.helpView()
	}
	return a.menuView.View()
}

// helpView lists the bindings from the keymap. Menu shortcuts are fixed
// in the menu itself.
func (a *App) helpView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("Keys"),
		"",
		a.help.View(a.keys),
		"",
		a.styles.Muted.Render("Menu: [a] ask  [r] reports  [?] help  [q] quit"),
		a.styles.Muted.Render("[esc] back to menu"),
	)
}

// Run starts the program on the alternate screen.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen()).Run()
	return err
}

func (a *App) CurrentView() messages.ViewType {
	return a.current
}

// Err returns the last error shown by a screen.
func (a *App) Err() error {
	return a.err
}

func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions resizes every screen.
func (a *App) SetDimensions(width, height int) {
	a.width, a.height, a.ready = width, height, true
	a.help.Width = width
	a.menuView.SetDimensions(width, height)
	a.askView.SetDimensions(width, height)
	a.reportsView.SetDimensions(width, height)
}
