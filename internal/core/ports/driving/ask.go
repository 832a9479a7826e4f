package driving

import (
	"context"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

// Asker answers questions against the indexed reports.
type Asker interface {
	// Ask answers a question, considering the first numReports eligible
	// catalog rows when narrowing the scope.
	// A non-positive numReports uses the configured default.
	Ask(ctx context.Context, question string, numReports int) (*domain.Answer, error)
}
