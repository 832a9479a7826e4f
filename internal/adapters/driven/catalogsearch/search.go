// Package catalogsearch provides BM25 keyword search over report metadata
// using an in-memory bleve index.
package catalogsearch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.CatalogSearch = (*Index)(nil)

// DefaultLimit is the number of hits returned when limit is not positive.
const DefaultLimit = 10

// document is the indexed form of a report.
type document struct {
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Keywords string `json:"keywords"`
	Year     int    `json:"year"`
}

// Index is a memory-only bleve index over the catalog.
type Index struct {
	mu    sync.RWMutex
	bleve bleve.Index
}

// New creates an empty index.
func New() (*Index, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create catalog index: %w", err)
	}
	return &Index{bleve: index}, nil
}

// Open creates an index holding every report.
func Open(ctx context.Context, reports []domain.Report) (*Index, error) {
	index, err := New()
	if err != nil {
		return nil, err
	}

	batch := index.bleve.NewBatch()
	for i := range reports {
		if err := ctx.Err(); err != nil {
			index.Close()
			return nil, err
		}
		if err := batch.Index(reports[i].ID, toDocument(&reports[i])); err != nil {
			index.Close()
			return nil, fmt.Errorf("index report %s: %w", reports[i].ID, err)
		}
	}
	if err := index.bleve.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("index catalog: %w", err)
	}
	return index, nil
}

// Index adds or replaces a report in the search index.
func (x *Index) Index(_ context.Context, report domain.Report) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.bleve.Index(report.ID, toDocument(&report)); err != nil {
		return fmt.Errorf("index report %s: %w", report.ID, err)
	}
	return nil
}

// Search returns report IDs matching the query, best first.
// Queries use bleve query-string syntax; text that does not parse
// is searched as a plain match query.
func (x *Index) Search(_ context.Context, query string, limit int) ([]driven.CatalogHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	res, err := x.bleve.Search(req)
	if err != nil {
		req = bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
		if res, err = x.bleve.Search(req); err != nil {
			return nil, fmt.Errorf("search catalog: %w", err)
		}
	}

	hits := make([]driven.CatalogHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, driven.CatalogHit{ReportID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// Count returns the number of indexed reports.
func (x *Index) Count() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.bleve.DocCount()
}

// Close releases resources.
func (x *Index) Close() error {
	return x.bleve.Close()
}

func toDocument(r *domain.Report) document {
	doc := document{Title: r.Title, Year: r.PublishedYear()}
	if r.Abstract != nil {
		doc.Abstract = *r.Abstract
	}
	if r.Enrichment != nil {
		doc.Keywords = strings.Join(r.Enrichment.Keywords, " ")
	}
	return doc
}
