package driving

import (
	"context"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

// CatalogService exposes the report catalog to users.
type CatalogService interface {
	// List returns up to limit reports in canonical order. Zero means all.
	List(ctx context.Context, limit int) ([]domain.Report, error)

	// Get returns one report.
	Get(ctx context.Context, id string) (*domain.Report, error)

	// Search finds reports by keyword over title, abstract and keywords.
	Search(ctx context.Context, query string, limit int) ([]domain.Report, error)

	// Stats returns catalog and index sizes.
	Stats(ctx context.Context) (*CatalogStats, error)
}

// CatalogStats summarises the stored corpus.
type CatalogStats struct {
	// Reports is the number of catalog rows.
	Reports int

	// WithDocument is the number of reports linking a document.
	WithDocument int

	// Enriched is the number of reports with keyword enrichment.
	Enriched int

	// Chunks is the number of indexed chunks.
	Chunks int
}
