package driven

import "context"

// EmbeddingService turns text into vectors for the vector index. The
// index owns one; nothing else embeds. Capacity refusals wrap
// domain.ErrRateLimited and outages wrap domain.ErrEmbeddingUnavailable.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length every call returns.
	Dimensions() int

	ModelName() string

	// Ping checks the provider answers without embedding a real batch.
	Ping(ctx context.Context) error

	Close() error
}
