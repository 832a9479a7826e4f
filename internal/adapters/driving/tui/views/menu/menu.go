// Package menu renders the start screen: corpus size and the entry points.
package menu

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

// Item is one menu entry. Key selects it directly.
type Item struct {
	Key   string
	Label string
	Hint  string
	View  messages.ViewType
	Quit  bool
}

// View is the start screen.
type View struct {
	ctx      context.Context
	styles   *styles.Styles
	catalog  driving.CatalogService
	items    []Item
	selected int
	stats    *driving.CatalogStats
	statsErr error
	width    int
	height   int
	ready    bool
}

// NewView builds the menu. catalog may be nil, in which case no corpus
// summary is shown.
func NewView(s *styles.Styles, catalog driving.CatalogService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		ctx:     context.Background(),
		styles:  s,
		catalog: catalog,
		items: []Item{
			{Key: "a", Label: "Ask a question", Hint: "answers cite the report pages they come from", View: messages.ViewAsk},
			{Key: "r", Label: "Browse reports", Hint: "list and filter the catalog", View: messages.ViewReports},
			{Key: "?", Label: "Help", Hint: "key bindings", View: messages.ViewHelp},
			{Key: "q", Label: "Quit", Quit: true},
		},
		width:  80,
		height: 24,
	}
}

// WithContext sets the context used for loading stats.
func (v *View) WithContext(ctx context.Context) {
	v.ctx = ctx
}

// Init loads the corpus summary.
func (v *View) Init() tea.Cmd {
	if v.catalog == nil {
		return nil
	}
	ctx, catalog := v.ctx, v.catalog
	return func() tea.Msg {
		stats, err := catalog.Stats(ctx)
		return messages.StatsLoaded{Stats: stats, Err: err}
	}
}

// Update handles navigation and the stats result.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case messages.StatsLoaded:
		v.stats, v.statsErr = msg.Stats, msg.Err

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "up", "k":
			v.selected = max(v.selected-1, 0)
		case "down", "j":
			v.selected = min(v.selected+1, len(v.items)-1)
		case "enter":
			return v, v.choose(v.items[v.selected])
		default:
			for _, item := range v.items {
				if item.Key == key {
					return v, v.choose(item)
				}
			}
		}
	}
	return v, nil
}

func (v *View) choose(item Item) tea.Cmd {
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("reportqa"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Questions answered from IEA reports"))
	b.WriteString("\n\n")

	if summary := v.summary(); summary != "" {
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	for i, item := range v.items {
		label := fmt.Sprintf("[%s] %s", item.Key, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Subtitle.Render(label))
			if item.Hint != "" {
				b.WriteString("  " + v.styles.Muted.Render(item.Hint))
			}
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("[j/k] Navigate  [Enter] Select  [q] Quit"))
	return b.String()
}

func (v *View) summary() string {
	switch {
	case v.statsErr != nil:
		return v.styles.Error.Render("Catalog unavailable: " + v.statsErr.Error())
	case v.stats == nil:
		return ""
	case v.stats.Reports == 0:
		return v.styles.Warning.Render("The catalog is empty. Run 'reportqa update' first.")
	}
	return v.styles.Muted.Render(fmt.Sprintf("%d reports, %d enriched, %d chunks indexed",
		v.stats.Reports, v.stats.Enriched, v.stats.Chunks))
}

// SetDimensions sets the view size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the highlighted index.
func (v *View) Selected() int {
	return v.selected
}
