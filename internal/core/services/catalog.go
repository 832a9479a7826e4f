package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
	"github.com/custodia-labs/reportqa/internal/logger"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// CatalogService exposes the catalog for browsing and search.
type CatalogService struct {
	session *Session
}

// NewCatalogService creates a catalog service bound to the session.
func NewCatalogService(session *Session) *CatalogService {
	return &CatalogService{session: session}
}

// List returns up to limit reports in canonical order. Zero means all.
func (s *CatalogService) List(ctx context.Context, limit int) ([]domain.Report, error) {
	reports, err := s.session.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

// Get returns one report.
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Report, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty report id", domain.ErrInvalidInput)
	}
	return s.session.Catalog.Get(ctx, id)
}

// Search finds reports whose title, abstract or keywords match the query.
// The search index is used when configured; otherwise every term must
// appear as a substring, ignoring case.
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]domain.Report, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	if s.session.Search != nil {
		hits, err := s.session.Search.Search(ctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("search catalog: %w", err)
		}
		out := make([]domain.Report, 0, len(hits))
		for _, hit := range hits {
			report, err := s.session.Catalog.Get(ctx, hit.ReportID)
			if errors.Is(err, domain.ErrNotFound) {
				logger.Debug("search hit %s not in catalog", hit.ReportID)
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, *report)
		}
		return out, nil
	}

	reports, err := s.session.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	terms := strings.Fields(strings.ToLower(query))

	var out []domain.Report
	for i := range reports {
		if !matchesAll(searchText(&reports[i]), terms) {
			continue
		}
		out = append(out, reports[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Stats returns catalog and index sizes.
func (s *CatalogService) Stats(ctx context.Context) (*driving.CatalogStats, error) {
	reports, err := s.session.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &driving.CatalogStats{Reports: len(reports)}
	for i := range reports {
		if reports[i].HasDocument() {
			stats.WithDocument++
		}
		if reports[i].IsEnriched() {
			stats.Enriched++
		}
	}
	if s.session.Index != nil {
		stats.Chunks = s.session.Index.Len()
	}
	return stats, nil
}

func searchText(r *domain.Report) string {
	parts := []string{r.Title}
	if r.Abstract != nil {
		parts = append(parts, *r.Abstract)
	}
	if r.Enrichment != nil {
		parts = append(parts, r.Enrichment.Keywords...)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func matchesAll(text string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}
