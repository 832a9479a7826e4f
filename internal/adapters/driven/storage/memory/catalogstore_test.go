package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

func testReport(id string) domain.Report {
	doc := "https://example.org/" + id + ".pdf"
	return domain.Report{
		ID:          id,
		SourceURL:   "https://www.iea.org/reports/" + id,
		Title:       "Title of " + id,
		DocumentURL: &doc,
	}
}

func TestCatalogStore_AppendGetList(t *testing.T) {
	store := NewCatalogStore()
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, store.Append(ctx, testReport(id)))
	}

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, testReport("a"), *got)

	reports, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "b", reports[0].ID)
	assert.Equal(t, "a", reports[1].ID)
	assert.Equal(t, "c", reports[2].ID)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCatalogStore_AppendRejectsDuplicates(t *testing.T) {
	store := NewCatalogStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, testReport("a")))

	assert.ErrorIs(t, store.Append(ctx, testReport("a")), domain.ErrAlreadyExists)

	sameURL := testReport("b")
	sameURL.SourceURL = testReport("a").SourceURL
	assert.ErrorIs(t, store.Append(ctx, sameURL), domain.ErrAlreadyExists)

	assert.ErrorIs(t, store.Append(ctx, domain.Report{}), domain.ErrInvalidInput)
}

func TestCatalogStore_GetNotFound(t *testing.T) {
	_, err := NewCatalogStore().Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogStore_ContainsURL(t *testing.T) {
	store := NewCatalogStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, testReport("a")))

	ok, err := store.ContainsURL(ctx, "https://www.iea.org/reports/a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ContainsURL(ctx, "https://www.iea.org/reports/z")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogStore_UpsertEnrichmentIsWriteOnce(t *testing.T) {
	store := NewCatalogStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, testReport("a")))

	year := 2023
	require.NoError(t, store.UpsertEnrichment(ctx, "a", domain.Enrichment{Keywords: []string{"hydrogen"}, Year: &year}))
	assert.ErrorIs(t,
		store.UpsertEnrichment(ctx, "a", domain.Enrichment{Keywords: []string{"coal"}}),
		domain.ErrAlreadyEnriched)
	assert.ErrorIs(t, store.UpsertEnrichment(ctx, "missing", domain.Enrichment{}), domain.ErrNotFound)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"hydrogen"}, got.Enrichment.Keywords)
	assert.Equal(t, 2023, *got.Enrichment.Year)
}

func TestCatalogStore_ReturnsCopies(t *testing.T) {
	store := NewCatalogStore()
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, testReport("a")))
	require.NoError(t, store.UpsertEnrichment(ctx, "a", domain.Enrichment{Keywords: []string{"oil"}, Digest: "abc123"}))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	got.Enrichment.Keywords[0] = "mutated"
	got.Title = "mutated"

	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "oil", again.Enrichment.Keywords[0])
	assert.Equal(t, "abc123", again.Enrichment.Digest)
	assert.Equal(t, "Title of a", again.Title)
}
