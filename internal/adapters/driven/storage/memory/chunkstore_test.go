package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

func testEntry(id, reportID string, page int) domain.IndexEntry {
	origin := domain.ChunkOrigin{ReportID: reportID, PageNumber: page, Title: "T " + reportID}
	return domain.IndexEntry{
		Chunk:   domain.Chunk{ID: id, Text: "text " + id, ChunkOrigin: origin},
		Vector:  []float32{1, 2},
		Origins: []domain.ChunkOrigin{origin},
	}
}

func TestChunkStore_SaveAndLoad(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	entries := []domain.IndexEntry{testEntry("c1", "r1", 1), testEntry("c2", "r2", 4)}
	require.NoError(t, store.SaveEntries(ctx, entries))

	loaded, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, loaded)

	n, err := store.CountEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestChunkStore_DuplicateEntryAddsOrigin(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.SaveEntries(ctx, []domain.IndexEntry{testEntry("c1", "r1", 1)}))
	require.NoError(t, store.SaveEntries(ctx, []domain.IndexEntry{testEntry("c1", "r2", 3)}))
	require.NoError(t, store.SaveEntries(ctx, []domain.IndexEntry{testEntry("c1", "r2", 3)}))

	loaded, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "r1", loaded[0].Chunk.ReportID)
	require.Len(t, loaded[0].Origins, 2)
	assert.Equal(t, "r2", loaded[0].Origins[1].ReportID)
}

func TestChunkStore_SaveOrigins(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	require.NoError(t, store.SaveEntries(ctx, []domain.IndexEntry{testEntry("c1", "r1", 1)}))

	require.NoError(t, store.SaveOrigins(ctx, "c1", []domain.ChunkOrigin{{ReportID: "r9", PageNumber: 2}}))
	assert.ErrorIs(t, store.SaveOrigins(ctx, "missing", []domain.ChunkOrigin{{ReportID: "r9"}}), domain.ErrNotFound)
	assert.NoError(t, store.SaveOrigins(ctx, "missing", nil))

	loaded, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded[0].Origins, 2)
}

func TestChunkStore_LoadReturnsCopies(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	require.NoError(t, store.SaveEntries(ctx, []domain.IndexEntry{testEntry("c1", "r1", 1)}))

	loaded, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	loaded[0].Origins[0].ReportID = "mutated"

	again, err := store.LoadEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", again[0].Origins[0].ReportID)
}

func TestChunkStore_MarkDocument(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.MarkDocument(ctx, "https://example.org/b.pdf"))
	require.NoError(t, store.MarkDocument(ctx, "https://example.org/a.pdf"))
	require.NoError(t, store.MarkDocument(ctx, "https://example.org/b.pdf"))

	docs, err := store.LoadDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.org/b.pdf", "https://example.org/a.pdf"}, docs)

	docs[0] = "changed"
	again, err := store.LoadDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/b.pdf", again[0])
}
