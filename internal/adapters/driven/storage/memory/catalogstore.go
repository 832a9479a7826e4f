package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// Ensure CatalogStore implements the interface.
var _ driven.CatalogStore = (*CatalogStore)(nil)

// CatalogStore is an in-memory implementation of driven.CatalogStore.
type CatalogStore struct {
	mu      sync.RWMutex
	reports []domain.Report
	byID    map[string]int
	byURL   map[string]struct{}
}

// NewCatalogStore creates a new in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		byID:  make(map[string]int),
		byURL: make(map[string]struct{}),
	}
}

// Append adds a report at the end of the catalog.
func (s *CatalogStore) Append(_ context.Context, report domain.Report) error {
	if report.ID == "" || report.SourceURL == "" {
		return fmt.Errorf("%w: report needs an ID and a source URL", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[report.ID]; ok {
		return fmt.Errorf("report %s: %w", report.ID, domain.ErrAlreadyExists)
	}
	if _, ok := s.byURL[report.SourceURL]; ok {
		return fmt.Errorf("report %s: %w", report.ID, domain.ErrAlreadyExists)
	}

	s.byID[report.ID] = len(s.reports)
	s.byURL[report.SourceURL] = struct{}{}
	s.reports = append(s.reports, cloneReport(report))
	return nil
}

// Get retrieves a report by ID.
func (s *CatalogStore) Get(_ context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	report := cloneReport(s.reports[i])
	return &report, nil
}

// List returns every report in canonical order.
func (s *CatalogStore) List(_ context.Context) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]domain.Report, len(s.reports))
	for i := range s.reports {
		reports[i] = cloneReport(s.reports[i])
	}
	return reports, nil
}

// ContainsURL reports whether a report with the source URL exists.
func (s *CatalogStore) ContainsURL(_ context.Context, sourceURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byURL[sourceURL]
	return ok, nil
}

// UpsertEnrichment stores the report's enrichment once.
func (s *CatalogStore) UpsertEnrichment(_ context.Context, id string, enrichment domain.Enrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if s.reports[i].Enrichment != nil {
		return fmt.Errorf("report %s: %w", id, domain.ErrAlreadyEnriched)
	}

	e := cloneEnrichment(&enrichment)
	s.reports[i].Enrichment = e
	return nil
}

// Count returns the number of reports.
func (s *CatalogStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports), nil
}

// cloneReport copies a report so callers cannot mutate stored state.
func cloneReport(r domain.Report) domain.Report {
	r.Enrichment = cloneEnrichment(r.Enrichment)
	return r
}

func cloneEnrichment(e *domain.Enrichment) *domain.Enrichment {
	if e == nil {
		return nil
	}
	keywords := make([]string, len(e.Keywords))
	copy(keywords, e.Keywords)
	c := &domain.Enrichment{Keywords: keywords, Digest: e.Digest}
	if e.Year != nil {
		y := *e.Year
		c.Year = &y
	}
	return c
}
