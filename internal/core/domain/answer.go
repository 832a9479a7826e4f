package domain

import (
	"fmt"
	"strings"
)

// NoReferencesMessage is returned when every retrieved passage was filtered out.
const NoReferencesMessage = "Could not find any relevant references."

// Citation is one relevant passage that backs an answer.
type Citation struct {
	// Summary is the question-focused summary of the passage.
	Summary string

	// Title is the title of the cited report.
	Title string

	// Page is the 1-based page number of the passage.
	Page int

	// Link is the document URL, without a page anchor.
	Link string

	// ReportID identifies the cited report.
	ReportID string
}

// PageLink returns the document link anchored at the cited page.
func (c Citation) PageLink() string {
	return fmt.Sprintf("%s#page=%d", c.Link, c.Page)
}

// Answer is the result of a question.
type Answer struct {
	// Question is the question as asked.
	Question string

	// Text is the composed answer. Empty when no citation survived filtering.
	Text string

	// Citations are the relevant passages, in retrieval order.
	Citations []Citation

	// CheckedReports lists every report that was in scope for the question.
	CheckedReports []Report
}

// Found returns true if at least one relevant passage backs the answer.
func (a *Answer) Found() bool {
	return len(a.Citations) > 0
}

// FormatSources renders citations as the "Sources:" block shared by the
// compose prompt and the final answer.
func FormatSources(citations []Citation) string {
	var b strings.Builder
	b.WriteString("Sources:\n\n")
	for _, c := range citations {
		fmt.Fprintf(&b, "%s\nPage %d | %s\nLink: %s\n\n", c.Summary, c.Page, c.Title, c.PageLink())
	}
	return b.String()
}

// Format renders the answer, its sources and the checked-reports trailer.
func (a *Answer) Format() string {
	var b strings.Builder
	if a.Found() {
		fmt.Fprintf(&b, "Answer:\n%s\n\n\n%s", a.Text, FormatSources(a.Citations))
	} else {
		b.WriteString(NoReferencesMessage)
	}
	b.WriteString("\n\nChecked the following reports:\n")
	for i := range a.CheckedReports {
		fmt.Fprintf(&b, "\t- %s\n", a.CheckedReports[i].Title)
	}
	return b.String()
}
