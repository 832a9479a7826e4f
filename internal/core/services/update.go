package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
	"github.com/custodia-labs/reportqa/internal/logger"
)

// Ensure UpdateService implements the interface.
var _ driving.Updater = (*UpdateService)(nil)

// UpdateService runs discovery, enrichment and ingestion in sequence.
type UpdateService struct {
	session *Session
	indexer *CorpusIndexer
	batcher *IngestionBatcher
}

// NewUpdateService creates an update service bound to the session.
func NewUpdateService(session *Session) *UpdateService {
	return &UpdateService{
		session: session,
		indexer: NewCorpusIndexer(session),
		batcher: NewIngestionBatcher(session),
	}
}

// Update implements driving.Updater.
func (s *UpdateService) Update(ctx context.Context, nNewest int) (*domain.UpdateSummary, error) {
	if err := s.session.ValidateForUpdate(); err != nil {
		return nil, err
	}
	if nNewest <= 0 {
		nNewest = s.session.Settings.Pipeline.DefaultNewest
	}

	summary := &domain.UpdateSummary{}

	discovered, err := s.indexer.DiscoverAndAppend(ctx, nNewest, s.session.Settings.Pipeline.KnownPageStreak)
	summary.Discover = discovered
	if err != nil {
		return summary, fmt.Errorf("discover reports: %w", err)
	}

	enriched, err := s.indexer.EnrichMissingKeywords(ctx, nNewest)
	summary.Enriched = enriched
	if err != nil {
		return summary, fmt.Errorf("enrich reports: %w", err)
	}

	reports, err := s.session.Catalog.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("list catalog: %w", err)
	}

	added, err := s.batcher.Ingest(ctx, reports)
	summary.ChunksAdded = added
	if err != nil {
		return summary, fmt.Errorf("ingest documents: %w", err)
	}

	logger.Info("Update finished: %d new reports, %d enriched, %d chunks added.",
		len(discovered.Appended), enriched, added)
	return summary, nil
}
