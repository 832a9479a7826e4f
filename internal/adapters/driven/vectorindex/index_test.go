package vectorindex

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// axisEmbedder maps the words "oil", "gas" and "coal" onto three axes.
type axisEmbedder struct {
	mu       sync.Mutex
	batches  [][]string
	queries  []string
	batchErr error
}

var _ driven.EmbeddingService = (*axisEmbedder)(nil)

func vectorFor(text string) []float32 {
	v := make([]float32, 3)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		switch w {
		case "oil":
			v[0]++
		case "gas":
			v[1]++
		case "coal":
			v[2]++
		}
	}
	return v
}

func (e *axisEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queries = append(e.queries, text)
	e.mu.Unlock()
	return vectorFor(text), nil
}

func (e *axisEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.batchErr != nil {
		return nil, e.batchErr
	}
	e.batches = append(e.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = vectorFor(t)
	}
	return out, nil
}

func (e *axisEmbedder) Dimensions() int              { return 3 }
func (e *axisEmbedder) ModelName() string            { return "axis" }
func (e *axisEmbedder) Ping(_ context.Context) error { return nil }
func (e *axisEmbedder) Close() error                 { return nil }

type failingStore struct {
	*memory.ChunkStore
}

func (failingStore) SaveEntries(context.Context, []domain.IndexEntry) error {
	return errors.New("disk full")
}

func chunk(id, text, reportID string, page int) domain.Chunk {
	return domain.Chunk{
		ID:   id,
		Text: text,
		ChunkOrigin: domain.ChunkOrigin{
			ReportID:   reportID,
			PageNumber: page,
			Title:      "Title " + reportID,
			SourceURL:  "https://example.org/" + reportID + ".pdf",
		},
	}
}

func newTestIndex(t *testing.T) (*Index, *axisEmbedder, *memory.ChunkStore) {
	t.Helper()
	embedder := &axisEmbedder{}
	store := memory.NewChunkStore()
	return New(embedder, store), embedder, store
}

func TestIndex_AddChunksPersistsAndPublishes(t *testing.T) {
	index, embedder, store := newTestIndex(t)
	ctx := context.Background()

	err := index.AddChunks(ctx, []domain.Chunk{
		chunk("c1", "oil oil", "r1", 1),
		chunk("c2", "gas", "r1", 2),
		chunk("c1", "oil oil", "r2", 9),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, index.Len())
	require.Len(t, embedder.batches, 1)
	assert.Equal(t, []string{"oil oil", "gas"}, embedder.batches[0])

	n, err := store.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := index.Contains(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries[0].Origins, 1, "repeats within a call are not attached by AddChunks")
}

func TestIndex_MarkDocument(t *testing.T) {
	index, _, store := newTestIndex(t)
	ctx := context.Background()
	doc := "https://example.org/r1.pdf"
	require.NoError(t, index.AddChunks(ctx, []domain.Chunk{chunk("c1", "oil", "r1", 1)}))

	ok, err := index.HasDocument(ctx, doc)
	require.NoError(t, err)
	assert.False(t, ok, "stored chunks alone do not complete a document")

	require.NoError(t, index.MarkDocument(ctx, doc))
	require.NoError(t, index.MarkDocument(ctx, doc))

	ok, err = index.HasDocument(ctx, doc)
	require.NoError(t, err)
	assert.True(t, ok)
	docs, err := store.LoadDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{doc}, docs)
}

func TestIndex_AddChunksSkipsKnownIDs(t *testing.T) {
	index, embedder, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.AddChunks(ctx, []domain.Chunk{chunk("c1", "oil", "r1", 1)}))
	require.NoError(t, index.AddChunks(ctx, []domain.Chunk{chunk("c1", "oil", "r1", 1)}))

	assert.Len(t, embedder.batches, 1)
	assert.Equal(t, 1, index.Len())
}

func TestIndex_AddChunksIsAllOrNothing(t *testing.T) {
	ctx := context.Background()

	t.Run("embedding failure", func(t *testing.T) {
		index, embedder, store := newTestIndex(t)
		embedder.batchErr = domain.ErrRateLimited

		err := index.AddChunks(ctx, []domain.Chunk{chunk("c1", "oil", "r1", 1)})

		assert.ErrorIs(t, err, domain.ErrRateLimited)
		assert.Zero(t, index.Len())
		n, _ := store.CountEntries(ctx)
		assert.Zero(t, n)
	})

	t.Run("store failure", func(t *testing.T) {
		index := New(&axisEmbedder{}, failingStore{memory.NewChunkStore()})

		err := index.AddChunks(ctx, []domain.Chunk{chunk("c1", "oil", "r1", 1)})

		assert.ErrorContains(t, err, "disk full")
		assert.Zero(t, index.Len())
	})
}

func TestIndex_Attach(t *testing.T) {
	index, _, store := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.AddChunks(ctx, []domain.Chunk{chunk("c1", "oil", "r1", 1)}))

	err := index.Attach(ctx, []domain.Chunk{
		chunk("c1", "oil", "r2", 5),
		chunk("c1", "oil", "r2", 5),
		chunk("c1", "oil", "r1", 1),
		chunk("unknown", "gas", "r3", 1),
	})
	require.NoError(t, err)

	entries, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Origins, 2)

	results, err := index.Query(ctx, "oil", []string{"r2"}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r2", results[0].ReportID, "results carry the in-scope provenance")
	assert.Equal(t, 5, results[0].PageNumber)
}

func TestIndex_QueryRanksAndFilters(t *testing.T) {
	index, _, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.AddChunks(ctx, []domain.Chunk{
		chunk("c1", "gas", "r1", 1),
		chunk("c2", "oil", "r1", 2),
		chunk("c3", "oil gas", "r2", 1),
		chunk("c4", "oil", "r3", 1),
		chunk("c5", "coal", "r1", 3),
	}))

	results, err := index.Query(ctx, "oil", []string{"r1", "r2"}, 3)
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"c2", "c3", "c1"}, ids, "c4 is out of scope")
}

func TestIndex_QueryTiesKeepInsertionOrder(t *testing.T) {
	index, _, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.AddChunks(ctx, []domain.Chunk{
		chunk("a", "oil", "r1", 1),
		chunk("b", "oil oil", "r1", 2),
		chunk("c", "oil oil oil", "r1", 3),
	}))

	results, err := index.Query(ctx, "oil", []string{"r1"}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestIndex_QueryEdgeCases(t *testing.T) {
	index, embedder, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.AddChunks(ctx, []domain.Chunk{chunk("c1", "oil", "r1", 1)}))

	results, err := index.Query(ctx, "oil", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = index.Query(ctx, "oil", []string{"r1"}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, embedder.queries, "no embedding call without scope or k")

	results, err = index.Query(ctx, "wind", []string{"r1"}, 5)
	require.NoError(t, err)
	assert.Empty(t, results, "zero query vector matches nothing")

	results, err = index.Query(ctx, "oil", []string{"r9"}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_QuerySkipsZeroVectors(t *testing.T) {
	index, _, _ := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.AddChunks(ctx, []domain.Chunk{
		chunk("blank", "wind solar", "r1", 1),
		chunk("c1", "oil gas", "r1", 2),
		chunk("c2", "oil", "r1", 3),
	}))

	results, err := index.Query(ctx, "oil", []string{"r1"}, 5)

	require.NoError(t, err)
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"c2", "c1"}, ids)
}

func TestIndex_LoadRestoresEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChunkStore()

	first := New(&axisEmbedder{}, store)
	require.NoError(t, first.AddChunks(ctx, []domain.Chunk{chunk("c1", "oil", "r1", 1)}))
	require.NoError(t, first.Attach(ctx, []domain.Chunk{chunk("c1", "oil", "r2", 2)}))
	require.NoError(t, first.MarkDocument(ctx, "https://example.org/r2.pdf"))

	second := New(&axisEmbedder{}, store)
	require.NoError(t, second.Load(ctx))

	assert.Equal(t, 1, second.Len())
	ok, err := second.HasDocument(ctx, "https://example.org/r2.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	results, err := second.Query(ctx, "oil", []string{"r2"}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r2", results[0].ReportID)
	assert.NoError(t, second.Close())
}
