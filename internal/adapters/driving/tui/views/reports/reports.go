// Package reports provides the catalog browsing view for the TUI.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

// ErrNoCatalog indicates that no catalog service was provided.
var ErrNoCatalog = errors.New("catalog service is required")

// detailLines is the height of the selected report's detail pane.
const detailLines = 6

// View lists catalog reports with a keyword filter and a detail pane.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	filter    *input.Field
	list      *list.ReportList
	statusbar *status.Bar

	catalog driving.CatalogService
	ctx     context.Context

	query   string
	loading bool
	err     error

	width  int
	height int
	ready  bool
}

// NewView creates a new reports view.
func NewView(s *styles.Styles, km *keymap.KeyMap, catalog driving.CatalogService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:    s,
		keymap:    km,
		filter:    input.NewFilterInput(s),
		list:      list.NewReportList(s),
		statusbar: status.NewBar(s, km),
		catalog:   catalog,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
}

// WithContext sets the context used for catalog calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the whole catalog.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadCmd("")
}

// loadCmd lists the catalog, or searches it when query is not empty.
func (v *View) loadCmd(query string) tea.Cmd {
	catalog := v.catalog
	ctx := v.ctx
	return func() tea.Msg {
		if catalog == nil {
			return messages.ReportsLoaded{Query: query, Err: ErrNoCatalog}
		}
		var (
			reports []domain.Report
			err     error
		)
		if query == "" {
			reports, err = catalog.List(ctx, 0)
		} else {
			reports, err = catalog.Search(ctx, query, 0)
		}
		return messages.ReportsLoaded{Query: query, Reports: reports, Err: err}
	}
}

// Update handles messages for the reports view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ReportsLoaded:
		v.handleLoaded(msg)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.filter.Focused() {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyEsc:
			v.filter.Blur()
			return v, nil
		case tea.KeyEnter:
			v.filter.Blur()
			v.query = strings.TrimSpace(v.filter.Value())
			v.loading = true
			return v, v.loadCmd(v.query)
		}
		var cmd tea.Cmd
		v.filter, cmd = v.filter.Update(msg)
		return v, cmd
	}

	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	if key.Matches(msg, v.keymap.Filter) {
		return v, v.filter.Focus()
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *View) handleLoaded(msg messages.ReportsLoaded) {
	v.loading = false
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.Failed(msg.Err)
		return
	}
	v.err = nil
	v.query = msg.Query
	v.list.SetReports(msg.Reports)
	v.statusbar.Browsing(len(msg.Reports))
}

// View renders the reports view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)
	sections = append(sections, v.styles.Title.Render("reportqa catalog"), "", v.filter.View(), "")

	switch {
	case v.loading:
		sections = append(sections, v.styles.Muted.Render("Loading reports..."))
	case v.err != nil:
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()))
	default:
		sections = append(sections, v.list.View())
		if r := v.list.SelectedReport(); r != nil {
			sections = append(sections, "", v.renderDetail(r))
		}
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderDetail renders the selected report's abstract and links.
func (v *View) renderDetail(r *domain.Report) string {
	lines := make([]string, 0, detailLines)
	lines = append(lines, v.styles.Link.Render(r.SourceURL))
	if r.HasDocument() {
		lines = append(lines, v.styles.Link.Render(*r.DocumentURL))
	}
	if r.Abstract != nil && *r.Abstract != "" {
		width := v.width - 4
		if width < 20 {
			width = 20
		}
		abstract := lipgloss.NewStyle().Width(width).MaxHeight(detailLines - len(lines)).Render(*r.Abstract)
		lines = append(lines, v.styles.Normal.Render(abstract))
	}
	if year := r.PublishedYear(); year > 0 && r.DatePublished == nil {
		lines = append(lines, v.styles.Muted.Render(fmt.Sprintf("Year: %d", year)))
	}
	return v.styles.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.filter.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.list.SetDimensions(width, height-detailLines-10)
}

// Query returns the active filter.
func (v *View) Query() string {
	return v.query
}

// Reports returns the listed reports.
func (v *View) Reports() []domain.Report {
	return v.list.Reports()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}
