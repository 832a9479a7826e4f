package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/logger"
	"github.com/custodia-labs/reportqa/internal/metrics"
	"github.com/custodia-labs/reportqa/internal/postprocessors/chunker"
)

// IngestionBatcher loads report documents, splits them into chunks and
// commits the unseen chunks to the vector index in fixed-size batches.
type IngestionBatcher struct {
	session *Session
	chunker *chunker.Processor
}

// NewIngestionBatcher creates a batcher bound to the session.
func NewIngestionBatcher(session *Session) *IngestionBatcher {
	p := session.Settings.Pipeline
	return &IngestionBatcher{
		session: session,
		chunker: chunker.New(chunker.WithChunkSize(p.ChunkSize), chunker.WithOverlap(p.ChunkOverlap)),
	}
}

// Ingest indexes the documents of reports that are not indexed yet and
// returns the number of chunks added.
//
// Candidates are reports with a document, restricted to enriched ones when
// any are enriched. Chunk IDs are content hashes: the first occurrence of a
// text in the run wins, and a text already stored, or stored earlier in the
// run by another report, only gains that report as provenance.
// Batches that are rate limited are retried after a fixed delay without
// bound. Any other failure aborts the run; committed batches stay durable.
// A document is marked indexed only after its last batch, so a later run
// resumes a partly committed document, skipping its stored chunks by ID.
func (b *IngestionBatcher) Ingest(ctx context.Context, reports []domain.Report) (int, error) {
	logger.Section("Ingest documents")

	candidates, err := b.candidates(ctx, reports)
	if err != nil {
		return 0, err
	}
	logger.Info("Adding %d reports to the index.", len(candidates))

	seen := make(map[string]string)
	added := 0

	for i := range candidates {
		report := &candidates[i]
		logger.Info("\tLoading %s", report.Title)

		pages, err := b.session.Loader.Load(ctx, *report.DocumentURL)
		if err != nil {
			return added, fmt.Errorf("load document of %s: %w", report.ID, err)
		}

		fresh, known, err := b.dedup(ctx, b.chunker.Process(*report, pages), seen)
		if err != nil {
			return added, err
		}

		n, err := b.commit(ctx, fresh)
		added += n
		if err != nil {
			return added, err
		}

		if len(known) > 0 {
			if err := b.session.Index.Attach(ctx, known); err != nil {
				return added, fmt.Errorf("attach provenance for %s: %w", report.ID, err)
			}
		}
		if err := b.session.Index.MarkDocument(ctx, *report.DocumentURL); err != nil {
			return added, err
		}
		logger.Debug("%s: %d new chunks, %d duplicates", report.ID, len(fresh), len(known))
	}

	return added, nil
}

// candidates filters reports down to those whose documents are not marked
// indexed.
func (b *IngestionBatcher) candidates(ctx context.Context, reports []domain.Report) ([]domain.Report, error) {
	var withDoc, enriched []domain.Report
	for i := range reports {
		if !reports[i].HasDocument() {
			continue
		}
		withDoc = append(withDoc, reports[i])
		if reports[i].IsEnriched() {
			enriched = append(enriched, reports[i])
		}
	}

	pool := withDoc
	if len(enriched) > 0 {
		pool = enriched
	}

	var out []domain.Report
	urls := make(map[string]struct{})
	for i := range pool {
		docURL := *pool[i].DocumentURL
		if _, dup := urls[docURL]; dup {
			continue
		}
		urls[docURL] = struct{}{}

		indexed, err := b.session.Index.HasDocument(ctx, docURL)
		if err != nil {
			return nil, fmt.Errorf("check index for %s: %w", docURL, err)
		}
		if !indexed {
			out = append(out, pool[i])
		}
	}
	return out, nil
}

// dedup splits chunks into texts new to the index and texts it already holds.
// seen maps chunk IDs met earlier in the run to the report they came from.
// Repeats within one report are dropped.
func (b *IngestionBatcher) dedup(
	ctx context.Context,
	chunks []domain.Chunk,
	seen map[string]string,
) (fresh, known []domain.Chunk, err error) {
	for _, c := range chunks {
		if first, ok := seen[c.ID]; ok {
			metrics.ChunksSkipped.WithLabelValues("run").Inc()
			if first != c.ReportID {
				known = append(known, c)
				seen[c.ID] = c.ReportID
			}
			continue
		}
		seen[c.ID] = c.ReportID

		exists, err := b.session.Index.Contains(ctx, c.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("check chunk %s: %w", c.ID, err)
		}
		if exists {
			metrics.ChunksSkipped.WithLabelValues("index").Inc()
			known = append(known, c)
			continue
		}
		fresh = append(fresh, c)
	}
	return fresh, known, nil
}

// commit adds chunks in batches and returns how many were stored.
func (b *IngestionBatcher) commit(ctx context.Context, chunks []domain.Chunk) (int, error) {
	size := b.session.Settings.Pipeline.BatchSize
	if size < 1 {
		size = 100
	}
	delay := b.session.Settings.Pipeline.RateLimitDelay

	added := 0
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batch := chunks[start:end]

		_, err := withRateLimitRetry(ctx, b.session.sleeper(), delay, "add_chunks", func() (struct{}, error) {
			return struct{}{}, b.session.Index.AddChunks(ctx, batch)
		})
		if err != nil {
			return added, fmt.Errorf("add chunks %d-%d: %w", start, end, err)
		}

		added += len(batch)
		metrics.ChunksAdded.Add(float64(len(batch)))
	}
	return added, nil
}
