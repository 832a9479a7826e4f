package driving

import (
	"context"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

// Updater grows the catalog and the vector index.
type Updater interface {
	// Update discovers up to nNewest new reports, enriches the newest
	// nNewest catalog rows and ingests their documents.
	// A non-positive nNewest uses the configured default.
	Update(ctx context.Context, nNewest int) (*domain.UpdateSummary, error)
}
