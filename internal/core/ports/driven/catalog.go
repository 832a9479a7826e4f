package driven

import (
	"context"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

// CatalogStore is the repository over the persisted report catalog.
// Reports are kept in insertion order, which is the canonical catalog order.
// Every successful write is durable before the call returns.
type CatalogStore interface {
	// Append adds a report at the end of the catalog.
	// Returns domain.ErrAlreadyExists if the ID or source URL is present.
	Append(ctx context.Context, report domain.Report) error

	// Get retrieves a report by ID.
	// Returns domain.ErrNotFound if the report does not exist.
	Get(ctx context.Context, id string) (*domain.Report, error)

	// List returns every report in canonical order.
	List(ctx context.Context) ([]domain.Report, error)

	// ContainsURL reports whether a report with the source URL exists.
	ContainsURL(ctx context.Context, sourceURL string) (bool, error)

	// UpsertEnrichment stores the report's enrichment.
	// Returns domain.ErrAlreadyEnriched if enrichment was set before,
	// and domain.ErrNotFound if the report does not exist.
	UpsertEnrichment(ctx context.Context, id string, enrichment domain.Enrichment) error

	// Count returns the number of reports.
	Count(ctx context.Context) (int, error)
}

// CatalogSearch provides keyword search over catalog metadata.
type CatalogSearch interface {
	// Index adds or replaces a report in the search index.
	Index(ctx context.Context, report domain.Report) error

	// Search returns report IDs matching the query, best first.
	Search(ctx context.Context, query string, limit int) ([]CatalogHit, error)

	// Close releases resources.
	Close() error
}

// CatalogHit is one catalog search match.
type CatalogHit struct {
	// ReportID is the matched report.
	ReportID string

	// Score is the relevance score.
	Score float64
}
