// Package vectorindex provides an in-process vector index over
// content-addressed chunks, persisted through a driven.ChunkStore.
package vectorindex

import (
	"container/heap"
	"context"
	"fmt"
	"sync"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry is an index entry. Zero-magnitude vectors are never scored.
type entry struct {
	domain.IndexEntry
	magnitude float32
	seq       int
}

// Index is a cosine-similarity index composed of an embedding service and
// a chunk store. Entries are appended only after the store has accepted them.
type Index struct {
	mu        sync.RWMutex
	embedder  driven.EmbeddingService
	store     driven.ChunkStore
	entries   []*entry
	byID      map[string]*entry
	documents map[string]struct{}
}

// New creates an empty index. Call Load to restore persisted entries.
func New(embedder driven.EmbeddingService, store driven.ChunkStore) *Index {
	return &Index{
		embedder:  embedder,
		store:     store,
		byID:      make(map[string]*entry),
		documents: make(map[string]struct{}),
	}
}

// Load replaces the in-memory entries with the contents of the chunk store.
func (x *Index) Load(ctx context.Context) error {
	stored, err := x.store.LoadEntries(ctx)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	documents, err := x.store.LoadDocuments(ctx)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.entries = x.entries[:0]
	x.byID = make(map[string]*entry, len(stored))
	x.documents = make(map[string]struct{}, len(documents))
	for _, url := range documents {
		x.documents[url] = struct{}{}
	}
	for i := range stored {
		x.publish(stored[i])
	}

	logger.Debug("vector index loaded with %d chunks", len(x.entries))
	return nil
}

// AddChunks embeds and stores chunks whose IDs are not yet indexed.
func (x *Index) AddChunks(ctx context.Context, chunks []domain.Chunk) error {
	fresh := x.unindexed(chunks)
	if len(fresh) == 0 {
		return nil
	}

	texts := make([]string, len(fresh))
	for i := range fresh {
		texts[i] = fresh[i].Text
	}

	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(fresh), err)
	}
	if len(vectors) != len(fresh) {
		return fmt.Errorf("embed %d chunks: got %d vectors", len(fresh), len(vectors))
	}

	entries := make([]domain.IndexEntry, len(fresh))
	for i := range fresh {
		entries[i] = domain.IndexEntry{
			Chunk:   fresh[i],
			Vector:  vectors[i],
			Origins: []domain.ChunkOrigin{fresh[i].ChunkOrigin},
		}
	}

	if err := x.store.SaveEntries(ctx, entries); err != nil {
		return fmt.Errorf("save %d chunks: %w", len(entries), err)
	}

	x.mu.Lock()
	for i := range entries {
		x.publish(entries[i])
	}
	x.mu.Unlock()
	return nil
}

// Attach records additional provenance for chunks that are already indexed.
func (x *Index) Attach(ctx context.Context, chunks []domain.Chunk) error {
	x.mu.RLock()
	pending := make(map[string][]domain.ChunkOrigin)
	var order []string
	for i := range chunks {
		e, ok := x.byID[chunks[i].ID]
		if !ok || hasOrigin(e.Origins, chunks[i].ChunkOrigin) || hasOrigin(pending[chunks[i].ID], chunks[i].ChunkOrigin) {
			continue
		}
		if _, seen := pending[chunks[i].ID]; !seen {
			order = append(order, chunks[i].ID)
		}
		pending[chunks[i].ID] = append(pending[chunks[i].ID], chunks[i].ChunkOrigin)
	}
	x.mu.RUnlock()

	for _, id := range order {
		if err := x.store.SaveOrigins(ctx, id, pending[id]); err != nil {
			return fmt.Errorf("attach origins to %s: %w", id, err)
		}

		x.mu.Lock()
		e := x.byID[id]
		for _, o := range pending[id] {
			if !hasOrigin(e.Origins, o) {
				e.Origins = append(e.Origins, o)
			}
		}
		x.mu.Unlock()
	}
	return nil
}

// Contains reports whether a chunk ID is indexed.
func (x *Index) Contains(_ context.Context, chunkID string) (bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.byID[chunkID]
	return ok, nil
}

// HasDocument reports whether the document was marked fully indexed.
func (x *Index) HasDocument(_ context.Context, documentURL string) (bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.documents[documentURL]
	return ok, nil
}

// MarkDocument persists the completion marker, then publishes it.
func (x *Index) MarkDocument(ctx context.Context, documentURL string) error {
	if err := x.store.MarkDocument(ctx, documentURL); err != nil {
		return fmt.Errorf("mark %s: %w", documentURL, err)
	}
	x.mu.Lock()
	x.documents[documentURL] = struct{}{}
	x.mu.Unlock()
	return nil
}

// Query returns up to k chunks nearest to text among chunks with provenance
// in reportIDs, most similar first. Ties keep insertion order.
func (x *Index) Query(ctx context.Context, text string, reportIDs []string, k int) ([]domain.Chunk, error) {
	if len(reportIDs) == 0 || k <= 0 {
		return nil, nil
	}

	vector, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	query := search.Float32s(vector)
	if query.Magnitude() == 0 {
		return nil, nil
	}

	scope := make(map[string]struct{}, len(reportIDs))
	for _, id := range reportIDs {
		scope[id] = struct{}{}
	}

	x.mu.RLock()
	h := &resultHeap{}
	for _, e := range x.entries {
		origin, ok := e.OriginIn(scope)
		if !ok {
			continue
		}
		if len(e.Vector) != len(vector) || e.magnitude == 0 {
			continue
		}
		distance := query.CosineDistance(e.Vector)
		candidate := result{entry: e, origin: origin, distance: distance}
		if h.Len() < k {
			heap.Push(h, candidate)
			continue
		}
		if candidate.better((*h)[0]) {
			(*h)[0] = candidate
			heap.Fix(h, 0)
		}
	}
	x.mu.RUnlock()

	out := make([]domain.Chunk, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		r := heap.Pop(h).(result)
		chunk := r.entry.Chunk
		chunk.ChunkOrigin = r.origin
		out[i] = chunk
	}
	return out, nil
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Close releases resources. The embedding service is owned by the caller.
func (x *Index) Close() error {
	return nil
}

// unindexed returns chunks whose IDs are neither indexed nor repeated earlier in chunks.
func (x *Index) unindexed(chunks []domain.Chunk) []domain.Chunk {
	x.mu.RLock()
	defer x.mu.RUnlock()

	seen := make(map[string]struct{}, len(chunks))
	fresh := make([]domain.Chunk, 0, len(chunks))
	for i := range chunks {
		if _, ok := x.byID[chunks[i].ID]; ok {
			continue
		}
		if _, ok := seen[chunks[i].ID]; ok {
			continue
		}
		seen[chunks[i].ID] = struct{}{}
		fresh = append(fresh, chunks[i])
	}
	return fresh
}

// publish makes a stored entry visible to readers. Caller must hold the write lock.
func (x *Index) publish(ie domain.IndexEntry) {
	if _, ok := x.byID[ie.Chunk.ID]; ok {
		return
	}
	if len(ie.Origins) == 0 {
		ie.Origins = []domain.ChunkOrigin{ie.Chunk.ChunkOrigin}
	}
	e := &entry{
		IndexEntry: ie,
		magnitude:  search.Float32s(ie.Vector).Magnitude(),
		seq:        len(x.entries),
	}
	x.entries = append(x.entries, e)
	x.byID[ie.Chunk.ID] = e
}

func hasOrigin(origins []domain.ChunkOrigin, o domain.ChunkOrigin) bool {
	for _, existing := range origins {
		if existing.ReportID == o.ReportID && existing.PageNumber == o.PageNumber {
			return true
		}
	}
	return false
}
