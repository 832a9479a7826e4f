package mcp

import (
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Asker answers questions.
	Asker driving.Asker

	// Catalog lists and searches reports. Optional: without it the
	// list_reports tool and the report resources are not registered.
	Catalog driving.CatalogService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Asker == nil {
		return ErrMissingAsker
	}
	return nil
}
