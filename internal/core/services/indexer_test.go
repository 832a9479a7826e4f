package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

func reportURLs(ids ...string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "https://example.org/reports/" + id
	}
	return out
}

func TestCrawl_StateMachine(t *testing.T) {
	c := newCrawl(2)
	assert.Equal(t, domain.CrawlScanning, c.state)

	c.observePage(0)
	assert.Equal(t, domain.CrawlKnownStreak, c.state)
	assert.False(t, c.done())

	c.observePage(3)
	assert.Equal(t, domain.CrawlScanning, c.state)
	assert.Equal(t, 0, c.streak)

	c.observePage(0)
	c.observePage(0)
	assert.True(t, c.done())
	assert.Equal(t, domain.StopKnownStreak, c.reason)
}

func TestCrawl_LimitBelowOneIsOne(t *testing.T) {
	c := newCrawl(0)
	c.observePage(0)
	assert.True(t, c.done())
}

func TestDiscoverAndAppend_StopsAfterKnownStreak(t *testing.T) {
	session, catalog, _, _ := testSession(&mockLLM{})
	require.NoError(t, catalog.Append(context.Background(), domain.Report{
		ID: "old", SourceURL: reportURLs("old")[0], Title: "Old",
	}))

	source := &mockSource{pages: [][]string{
		reportURLs("a", "b"),
		reportURLs("old"),
		reportURLs("c"),
		reportURLs("old", "a"),
		reportURLs("b"),
		reportURLs("never"),
	}}
	session.Source = source

	result, err := NewCorpusIndexer(session).DiscoverAndAppend(context.Background(), 0, 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result.Appended)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, source.listed)
	assert.Equal(t, 5, result.PagesVisited)
	assert.Equal(t, domain.CrawlDone, result.State)
	assert.Equal(t, domain.StopKnownStreak, result.StopReason)

	reports, _ := catalog.List(context.Background())
	ids := make([]string, len(reports))
	for i := range reports {
		ids[i] = reports[i].ID
	}
	assert.Equal(t, []string{"old", "a", "b", "c"}, ids)
}

func TestDiscoverAndAppend_MaxNew(t *testing.T) {
	session, catalog, _, _ := testSession(&mockLLM{})
	source := &mockSource{pages: [][]string{
		reportURLs("a", "b", "c"),
		reportURLs("d"),
	}}
	session.Source = source

	result, err := NewCorpusIndexer(session).DiscoverAndAppend(context.Background(), 2, 1)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Appended)
	assert.Equal(t, domain.StopMaxNew, result.StopReason)
	assert.Equal(t, []int{1}, source.listed)

	n, _ := catalog.Count(context.Background())
	assert.Equal(t, 2, n)
}

func TestDiscoverAndAppend_MaxNewReachedAtPageEnd(t *testing.T) {
	session, _, _, _ := testSession(&mockLLM{})
	source := &mockSource{pages: [][]string{reportURLs("a", "b"), reportURLs("c")}}
	session.Source = source

	result, err := NewCorpusIndexer(session).DiscoverAndAppend(context.Background(), 2, 1)

	require.NoError(t, err)
	assert.Equal(t, domain.StopMaxNew, result.StopReason)
	assert.Equal(t, []int{1}, source.listed)
}

func TestDiscoverAndAppend_LastPage(t *testing.T) {
	session, _, _, _ := testSession(&mockLLM{})
	session.Source = &mockSource{pages: [][]string{reportURLs("a"), reportURLs("b")}}

	result, err := NewCorpusIndexer(session).DiscoverAndAppend(context.Background(), 0, 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Appended)
	assert.Equal(t, domain.StopLastPage, result.StopReason)
	assert.Equal(t, 2, result.PagesVisited)
}

func TestDiscoverAndAppend_ListingFailureIsFatal(t *testing.T) {
	session, catalog, _, _ := testSession(&mockLLM{})
	session.Source = &mockSource{pages: [][]string{reportURLs("a"), reportURLs("b")}, failOn: 2}

	result, err := NewCorpusIndexer(session).DiscoverAndAppend(context.Background(), 0, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list page 2")
	assert.Equal(t, []string{"a"}, result.Appended)

	n, _ := catalog.Count(context.Background())
	assert.Equal(t, 1, n, "reports appended before the failure stay persisted")
}

func TestDiscoverAndAppend_RepeatedURLOnLaterPage(t *testing.T) {
	session, _, _, _ := testSession(&mockLLM{})
	session.Source = &mockSource{pages: [][]string{reportURLs("a", "a"), reportURLs("a")}}

	result, err := NewCorpusIndexer(session).DiscoverAndAppend(context.Background(), 0, 1)

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result.Appended)
	assert.Equal(t, domain.StopKnownStreak, result.StopReason)
}

func TestDiscoverAndAppend_ScrapesDetail(t *testing.T) {
	session, catalog, _, _ := testSession(&mockLLM{})
	u := reportURLs("weo-2024")[0]
	session.Source = &mockSource{
		pages: [][]string{{u}},
		details: map[string]*driven.ReportDetail{
			u: {Title: "World Energy Outlook 2024", Abstract: strPtr("Outlook"), DatePublished: strPtr("2024-10-16")},
		},
	}

	_, err := NewCorpusIndexer(session).DiscoverAndAppend(context.Background(), 0, 1)
	require.NoError(t, err)

	report, err := catalog.Get(context.Background(), "weo-2024")
	require.NoError(t, err)
	assert.Equal(t, "World Energy Outlook 2024", report.Title)
	assert.Equal(t, u, report.SourceURL)
	assert.False(t, report.HasDocument())
	assert.False(t, report.IsEnriched())
}

func keywordReports() []domain.Report {
	return []domain.Report{
		{ID: "r1", SourceURL: "u1", Title: "Oil 2024", DocumentURL: strPtr("d1"), DatePublished: strPtr("2024-06-12")},
		{ID: "r2", SourceURL: "u2", Title: "No document"},
		{ID: "r3", SourceURL: "u3", Title: "Gas Market", DocumentURL: strPtr("d3")},
		{ID: "r4", SourceURL: "u4", Title: "Done", DocumentURL: strPtr("d4"),
			Enrichment: &domain.Enrichment{Keywords: []string{"x"}}},
		{ID: "r5", SourceURL: "u5", Title: "Coal", DocumentURL: strPtr("d5")},
	}
}

func keywordCatalog(t *testing.T) *memory.CatalogStore {
	t.Helper()
	catalog := memory.NewCatalogStore()
	seedCatalog(t, catalog, keywordReports()...)
	return catalog
}

func TestEnrichMissingKeywords(t *testing.T) {
	llm := &mockLLM{chat: func(messages []driven.ChatMessage) (string, error) {
		first := messages[0].Content
		switch {
		case strings.Contains(first, "Oil 2024"):
			return `Here you go: {"keywords": ["Oil", " demand", "oil"], "year": 2024}`, nil
		case strings.Contains(first, "Gas Market"):
			return `{"keywords": ["gas"], "year": "2023-05"}`, nil
		default:
			return `{"keywords": ["coal"], "year": null}`, nil
		}
	}}
	session, _, _, _ := testSession(llm)
	catalog := keywordCatalog(t)
	session.Catalog = catalog

	n, err := NewCorpusIndexer(session).EnrichMissingKeywords(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, 3, n)

	r1, _ := catalog.Get(context.Background(), "r1")
	require.NotNil(t, r1.Enrichment)
	assert.Equal(t, []string{"oil", "demand"}, r1.Enrichment.Keywords)
	require.NotNil(t, r1.Enrichment.Year)
	assert.Equal(t, 2024, *r1.Enrichment.Year)
	reformatted, err := keywordParser.Digest("{\n  \"year\": 2024,\n  \"keywords\": [\"Oil\", \" demand\", \"oil\"]\n}")
	require.NoError(t, err)
	assert.Equal(t, reformatted, r1.Enrichment.Digest, "the digest ignores reply formatting")

	r3, _ := catalog.Get(context.Background(), "r3")
	require.NotNil(t, r3.Enrichment.Year)
	assert.Equal(t, 2023, *r3.Enrichment.Year)
	assert.NotEqual(t, r1.Enrichment.Digest, r3.Enrichment.Digest)

	r5, _ := catalog.Get(context.Background(), "r5")
	assert.Nil(t, r5.Enrichment.Year)

	r2, _ := catalog.Get(context.Background(), "r2")
	assert.Nil(t, r2.Enrichment, "reports without documents are not enriched")

	r4, _ := catalog.Get(context.Background(), "r4")
	assert.Equal(t, []string{"x"}, r4.Enrichment.Keywords, "enrichment is written once")

	for _, m := range llm.models {
		assert.Equal(t, "fast", m)
	}
}

func TestEnrichMissingKeywords_FirstNCapsPendingRows(t *testing.T) {
	llm := &mockLLM{chat: sequence(`{"keywords": ["k"]}`)}
	session, _, _, _ := testSession(llm)
	catalog := keywordCatalog(t)
	session.Catalog = catalog

	n, err := NewCorpusIndexer(session).EnrichMissingKeywords(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	r3, _ := catalog.Get(context.Background(), "r3")
	assert.Nil(t, r3.Enrichment)
}

func TestEnrichMissingKeywords_ExhaustionStoresEmptyEnrichment(t *testing.T) {
	llm := &mockLLM{chat: sequence("I cannot produce JSON")}
	session, _, _, _ := testSession(llm)
	catalog := memory.NewCatalogStore()
	seedCatalog(t, catalog, domain.Report{ID: "r1", SourceURL: "u1", Title: "Oil", DocumentURL: strPtr("d1")})
	session.Catalog = catalog

	n, err := NewCorpusIndexer(session).EnrichMissingKeywords(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, llm.chats, KeywordRetries+1)

	r1, _ := session.Catalog.Get(context.Background(), "r1")
	require.NotNil(t, r1.Enrichment)
	assert.Empty(t, r1.Enrichment.Keywords)
	assert.Nil(t, r1.Enrichment.Year)
	assert.Empty(t, r1.Enrichment.Digest)
}

func TestEnrichMissingKeywords_TransportErrorAborts(t *testing.T) {
	llm := &mockLLM{chat: sequence(errors.New("down"))}
	session, _, _, _ := testSession(llm)
	session.Catalog = keywordCatalog(t)

	n, err := NewCorpusIndexer(session).EnrichMissingKeywords(context.Background(), 0)

	require.Error(t, err)
	assert.Equal(t, 0, n)
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   any
		want *int
	}{
		{float64(2024), intPtr(2024)},
		{"2019", intPtr(2019)},
		{"2021-03-01", intPtr(2021)},
		{"n/a", nil},
		{"20", nil},
		{nil, nil},
		{float64(12), nil},
		{true, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, parseYear(tt.in))
		})
	}
}

func TestPendingEnrichment(t *testing.T) {
	reports := keywordReports()

	all := pendingEnrichment(reports, 0)
	require.Len(t, all, 3)
	assert.Equal(t, "r1", all[0].ID)
	assert.Equal(t, "r3", all[1].ID)
	assert.Equal(t, "r5", all[2].ID)

	assert.Len(t, pendingEnrichment(reports, 2), 2)
}
