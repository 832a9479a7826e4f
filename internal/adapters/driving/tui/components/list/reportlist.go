// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/reportqa/internal/core/domain"
)

// ReportList displays catalog rows in a navigable list.
type ReportList struct {
	reports  []domain.Report
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewReportList creates a new report list component.
func NewReportList(s *styles.Styles) *ReportList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ReportList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the report list.
func (r *ReportList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ReportList) Update(msg tea.Msg) (*ReportList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the report list.
func (r *ReportList) View() string {
	if len(r.reports) == 0 {
		return r.styles.Muted.Render("No reports")
	}

	lines := make([]string, 0, len(r.reports)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Reports (%d)", len(r.reports))), "")

	// Each report takes two lines: title and metadata.
	visibleCount := (r.height - 4) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(r.reports) {
		end = len(r.reports)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderReport(i, &r.reports[i]))
	}

	return strings.Join(lines, "\n")
}

// renderReport formats one report as a title line and a metadata line.
func (r *ReportList) renderReport(index int, report *domain.Report) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	maxTitleLen := r.width - 4
	if maxTitleLen < 10 {
		maxTitleLen = 10
	}
	title := truncate(report.Title, maxTitleLen)
	if title == "" {
		title = report.ID
	}

	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(indicator + title)
	} else {
		titleLine = r.styles.Normal.Render(indicator + title)
	}

	return titleLine + "\n" + r.styles.Muted.Render("    "+truncate(metadata(report), r.width-6))
}

// metadata summarises publication date, document availability and keywords.
func metadata(report *domain.Report) string {
	parts := make([]string, 0, 3)
	switch {
	case report.DatePublished != nil:
		parts = append(parts, *report.DatePublished)
	case report.PublishedYear() > 0:
		parts = append(parts, fmt.Sprintf("%d", report.PublishedYear()))
	default:
		parts = append(parts, "undated")
	}
	if !report.HasDocument() {
		parts = append(parts, "no document")
	}
	if report.Enrichment != nil && len(report.Enrichment.Keywords) > 0 {
		parts = append(parts, strings.Join(report.Enrichment.Keywords, ", "))
	}
	return strings.Join(parts, " | ")
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// SetReports replaces the listed reports and resets the selection.
func (r *ReportList) SetReports(reports []domain.Report) {
	r.reports = reports
	r.selected = 0
}

// Reports returns the listed reports.
func (r *ReportList) Reports() []domain.Report {
	return r.reports
}

// Selected returns the index of the selected report.
func (r *ReportList) Selected() int {
	return r.selected
}

// SelectedReport returns the currently selected report, or nil if none.
func (r *ReportList) SelectedReport() *domain.Report {
	if len(r.reports) == 0 || r.selected < 0 || r.selected >= len(r.reports) {
		return nil
	}
	return &r.reports[r.selected]
}

// MoveUp moves selection up.
func (r *ReportList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ReportList) MoveDown() {
	if r.selected < len(r.reports)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ReportList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of reports.
func (r *ReportList) Count() int {
	return len(r.reports)
}
