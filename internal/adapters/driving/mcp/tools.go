package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

// defaultListLimit is the list_reports limit when none is given.
const defaultListLimit = 20

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question   string `json:"question" jsonschema:"the question to answer from the indexed reports"`
	NumReports int    `json:"num_reports,omitempty" jsonschema:"number of newest reports considered when narrowing the scope (default from settings)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Found          bool             `json:"found"`
	Answer         string           `json:"answer"`
	Citations      []CitationOutput `json:"citations"`
	CheckedReports []string         `json:"checked_reports"`
	Formatted      string           `json:"formatted"`
}

// CitationOutput is one passage backing an answer.
type CitationOutput struct {
	ReportID string `json:"report_id"`
	Title    string `json:"title"`
	Page     int    `json:"page"`
	Link     string `json:"link"`
	Summary  string `json:"summary"`
}

// ListReportsInput is the input schema for the list_reports tool.
type ListReportsInput struct {
	Query string `json:"query,omitempty" jsonschema:"optional keywords matched against title, abstract and keywords"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of reports to return (default 20)"`
}

// ListReportsOutput is the output schema for the list_reports tool.
type ListReportsOutput struct {
	Reports []ReportOutput `json:"reports"`
	Count   int            `json:"count"`
}

// ReportOutput is one catalog row.
type ReportOutput struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	SourceURL     string   `json:"source_url"`
	DatePublished string   `json:"date_published,omitempty"`
	DocumentURL   string   `json:"document_url,omitempty"`
	Abstract      string   `json:"abstract,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Year          int      `json:"year,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from IEA reports, citing the pages used",
	}, s.handleAsk)

	if s.ports.Catalog != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_reports",
			Description: "List indexed reports, newest first, optionally filtered by keywords",
		}, s.handleListReports)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, AskOutput{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	answer, err := s.ports.Asker.Ask(ctx, question, input.NumReports)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Found:          answer.Found(),
		Answer:         answer.Text,
		Citations:      make([]CitationOutput, len(answer.Citations)),
		CheckedReports: make([]string, len(answer.CheckedReports)),
		Formatted:      answer.Format(),
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{
			ReportID: c.ReportID,
			Title:    c.Title,
			Page:     c.Page,
			Link:     c.PageLink(),
			Summary:  c.Summary,
		}
	}
	for i := range answer.CheckedReports {
		output.CheckedReports[i] = answer.CheckedReports[i].Title
	}

	return nil, output, nil
}

// handleListReports handles the list_reports tool invocation.
func (s *Server) handleListReports(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListReportsInput,
) (*mcp.CallToolResult, ListReportsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		reports []domain.Report
		err     error
	)
	if strings.TrimSpace(input.Query) != "" {
		reports, err = s.ports.Catalog.Search(ctx, input.Query, limit)
	} else {
		reports, err = s.ports.Catalog.List(ctx, limit)
	}
	if err != nil {
		return nil, ListReportsOutput{}, err
	}

	output := ListReportsOutput{
		Reports: make([]ReportOutput, len(reports)),
		Count:   len(reports),
	}
	for i := range reports {
		output.Reports[i] = toReportOutput(&reports[i])
	}

	return nil, output, nil
}

func toReportOutput(r *domain.Report) ReportOutput {
	out := ReportOutput{
		ID:        r.ID,
		Title:     r.Title,
		SourceURL: r.SourceURL,
		Year:      r.PublishedYear(),
	}
	if r.DatePublished != nil {
		out.DatePublished = *r.DatePublished
	}
	if r.DocumentURL != nil {
		out.DocumentURL = *r.DocumentURL
	}
	if r.Abstract != nil {
		out.Abstract = *r.Abstract
	}
	if r.Enrichment != nil {
		out.Keywords = r.Enrichment.Keywords
	}
	return out
}
