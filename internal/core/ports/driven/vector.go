package driven

import (
	"context"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

// VectorIndex stores content-addressed chunks with their embeddings and
// answers similarity queries restricted to a set of reports.
// Entries are never updated or deleted; provenance only grows.
type VectorIndex interface {
	// AddChunks embeds and durably stores chunks whose IDs are not yet indexed.
	// The call is all-or-nothing: on error no chunk of the call is stored.
	AddChunks(ctx context.Context, chunks []domain.Chunk) error

	// Attach records additional provenance for chunks that are already indexed.
	// Chunks whose IDs are unknown are ignored.
	Attach(ctx context.Context, chunks []domain.Chunk) error

	// Contains reports whether a chunk ID is indexed.
	Contains(ctx context.Context, chunkID string) (bool, error)

	// HasDocument reports whether the document was marked fully indexed.
	// A document whose chunks were only partly committed reports false.
	HasDocument(ctx context.Context, documentURL string) (bool, error)

	// MarkDocument durably records that every chunk of the document has been
	// added or attached.
	MarkDocument(ctx context.Context, documentURL string) error

	// Query returns up to k chunks nearest to text, considering only chunks
	// with provenance in reportIDs, ordered by decreasing similarity.
	// Returned chunks carry the matching in-scope provenance.
	Query(ctx context.Context, text string, reportIDs []string, k int) ([]domain.Chunk, error)

	// Len returns the number of indexed chunks.
	Len() int

	// Close releases resources.
	Close() error
}

// ChunkStore persists vector index entries.
type ChunkStore interface {
	// SaveEntries stores entries and their origins in one transaction.
	// Entries whose chunk ID already exists keep their stored metadata.
	SaveEntries(ctx context.Context, entries []domain.IndexEntry) error

	// SaveOrigins appends provenance records for existing chunk IDs.
	SaveOrigins(ctx context.Context, chunkID string, origins []domain.ChunkOrigin) error

	// LoadEntries returns every stored entry with its origins.
	LoadEntries(ctx context.Context) ([]domain.IndexEntry, error)

	// CountEntries returns the number of stored entries.
	CountEntries(ctx context.Context) (int, error)

	// MarkDocument records a fully indexed document URL.
	MarkDocument(ctx context.Context, documentURL string) error

	// LoadDocuments returns every marked document URL.
	LoadDocuments(ctx context.Context) ([]string, error)
}
