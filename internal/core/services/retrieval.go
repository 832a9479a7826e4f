package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

// Retriever finds the passages nearest to a question within a selection.
type Retriever struct {
	session *Session
}

// NewRetriever creates a retriever bound to the session.
func NewRetriever(session *Session) *Retriever {
	return &Retriever{session: session}
}

// Retrieve returns up to k chunks from the selected reports, most similar
// first. An empty selection returns no chunks without querying the index.
func (r *Retriever) Retrieve(ctx context.Context, question string, reportIDs []string, k int) ([]domain.Chunk, error) {
	if len(reportIDs) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = r.session.Settings.Pipeline.TopK
	}

	chunks, err := withRateLimitRetry(ctx, r.session.sleeper(), r.session.Settings.Pipeline.RateLimitDelay, "retrieve",
		func() ([]domain.Chunk, error) {
			return r.session.Index.Query(ctx, question, reportIDs, k)
		})
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return chunks, nil
}
