package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for reportqa resources.
	uriScheme = "reportqa://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "reports",
		Name:        "reports",
		Description: "Every report in the catalog, newest first",
		MIMEType:    "application/json",
	}, s.handleReportsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "reports/{reportId}",
		Name:        "report",
		Description: "Metadata of a single report",
		MIMEType:    "application/json",
	}, s.handleReportResource)
}

// handleReportsResource returns the whole catalog.
func (s *Server) handleReportsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	reports, err := s.ports.Catalog.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	infos := make([]ReportOutput, len(reports))
	for i := range reports {
		infos[i] = toReportOutput(&reports[i])
	}

	return jsonResource(req.Params.URI, infos)
}

// handleReportResource returns one report.
func (s *Server) handleReportResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract reportId from URI: reportqa://reports/{reportId}
	id := extractReportID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	report, err := s.ports.Catalog.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting report: %w", err)
	}

	return jsonResource(req.Params.URI, toReportOutput(report))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractReportID extracts the report ID from a URI like reportqa://reports/{reportId}.
func extractReportID(uri string) string {
	const prefix = uriScheme + "reports/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
