// Package messages holds the tea.Msg types passed between the TUI screens.
package messages

import (
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

// ViewType names a screen.
type ViewType int

const (
	ViewMenu ViewType = iota
	ViewAsk
	ViewReports
	ViewHelp
)

var viewNames = [...]string{"menu", "ask", "reports", "help"}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ViewChanged asks the app to switch screens.
type ViewChanged struct {
	View ViewType
}

// AnswerReceived is the result of one question. Err is set instead of
// Answer when the pipeline failed.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// ReportsLoaded is the result of a catalog listing or search. Query is
// empty for a plain listing.
type ReportsLoaded struct {
	Query   string
	Reports []domain.Report
	Err     error
}

// StatsLoaded is the corpus summary shown under the menu.
type StatsLoaded struct {
	Stats *driving.CatalogStats
	Err   error
}

// ErrorOccurred reports a failure outside a screen's own command.
type ErrorOccurred struct {
	Err error
}

type Quit struct{}
