package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/logger"
	"github.com/custodia-labs/reportqa/internal/metrics"
)

// CorpusIndexer discovers reports and maintains the catalog.
type CorpusIndexer struct {
	session *Session
	gen     *TextGenerator
}

// NewCorpusIndexer creates an indexer bound to the session.
func NewCorpusIndexer(session *Session) *CorpusIndexer {
	return &CorpusIndexer{session: session, gen: session.Generator()}
}

// crawl tracks the known-page streak of a listing crawl.
type crawl struct {
	state  domain.CrawlState
	streak int
	limit  int
	reason domain.CrawlStopReason
}

func newCrawl(limit int) *crawl {
	if limit < 1 {
		limit = 1
	}
	return &crawl{state: domain.CrawlScanning, limit: limit}
}

// observePage moves the machine after a page with newCount unseen reports.
func (c *crawl) observePage(newCount int) {
	if newCount > 0 {
		c.streak = 0
		c.state = domain.CrawlScanning
		return
	}

	c.streak++
	c.state = domain.CrawlKnownStreak
	if c.streak >= c.limit {
		c.stop(domain.StopKnownStreak)
	}
}

func (c *crawl) stop(reason domain.CrawlStopReason) {
	c.state = domain.CrawlDone
	c.reason = reason
}

func (c *crawl) done() bool {
	return c.state == domain.CrawlDone
}

// DiscoverAndAppend walks the listing from page 1 and appends unseen reports
// to the catalog in encounter order, at most maxNew of them (unbounded when
// maxNew <= 0). Paging stops after stopAfterKnownPages consecutive pages
// without unseen reports, or when the source has no more pages.
//
// Each report is durably appended before the next one is fetched, so an
// aborted run leaves exactly the reports scraped so far.
func (ix *CorpusIndexer) DiscoverAndAppend(
	ctx context.Context,
	maxNew int,
	stopAfterKnownPages int,
) (domain.DiscoverResult, error) {
	logger.Section("Discover reports")

	catalog := ix.session.Catalog
	source := ix.session.Source
	machine := newCrawl(stopAfterKnownPages)
	result := domain.DiscoverResult{State: machine.state}
	seen := make(map[string]struct{})

	for page := 1; !machine.done(); page++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		logger.Info("Indexing page %d...", page)
		urls, err := source.ListPage(ctx, page)
		if errors.Is(err, domain.ErrNoMorePages) {
			logger.Info("Page %d not found, stopping crawl.", page)
			machine.stop(domain.StopLastPage)
			break
		}
		if err != nil {
			result.State = machine.state
			return result, fmt.Errorf("list page %d: %w", page, err)
		}
		result.PagesVisited++

		fresh, err := ix.unseen(ctx, urls, seen)
		if err != nil {
			return result, err
		}

		machine.observePage(len(fresh))
		if len(fresh) == 0 {
			logger.Info("\tNo new reports found on page %d.", page)
		}

		for _, reportURL := range fresh {
			if maxNew > 0 && len(result.Appended) >= maxNew {
				machine.stop(domain.StopMaxNew)
				break
			}

			report, err := ix.scrape(ctx, reportURL)
			if err != nil {
				result.State = machine.state
				return result, err
			}

			if err := catalog.Append(ctx, *report); err != nil {
				if errors.Is(err, domain.ErrAlreadyExists) {
					logger.Warn("report id %s already in catalog, skipping %s", report.ID, reportURL)
					continue
				}
				result.State = machine.state
				return result, fmt.Errorf("append report %s: %w", report.ID, err)
			}

			result.Appended = append(result.Appended, report.ID)
			metrics.ReportsAppended.Inc()
			ix.indexForSearch(ctx, report)

			msg := "\tIndexed new report: " + reportURL
			if !report.HasDocument() {
				msg += " (No document found)"
			}
			logger.Info("%s", msg)
		}

		if !machine.done() && maxNew > 0 && len(result.Appended) >= maxNew {
			machine.stop(domain.StopMaxNew)
		}
	}

	result.State = machine.state
	result.StopReason = machine.reason
	logger.Debug("crawl finished: %d pages, %d new reports, reason %s",
		result.PagesVisited, len(result.Appended), result.StopReason)
	return result, nil
}

// unseen returns the URLs that are neither in the catalog nor seen earlier
// in this crawl, in page order, and marks them seen.
func (ix *CorpusIndexer) unseen(ctx context.Context, urls []string, seen map[string]struct{}) ([]string, error) {
	var fresh []string
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		exists, err := ix.session.Catalog.ContainsURL(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("check catalog for %s: %w", u, err)
		}
		if exists {
			continue
		}
		seen[u] = struct{}{}
		fresh = append(fresh, u)
	}
	return fresh, nil
}

func (ix *CorpusIndexer) scrape(ctx context.Context, reportURL string) (*domain.Report, error) {
	detail, err := ix.session.Source.FetchDetail(ctx, reportURL)
	if err != nil {
		return nil, fmt.Errorf("fetch report %s: %w", reportURL, err)
	}
	return &domain.Report{
		ID:            domain.ReportIDFromURL(reportURL),
		SourceURL:     reportURL,
		Title:         detail.Title,
		Abstract:      detail.Abstract,
		DatePublished: detail.DatePublished,
		DocumentURL:   detail.DocumentURL,
	}, nil
}

func (ix *CorpusIndexer) indexForSearch(ctx context.Context, report *domain.Report) {
	if ix.session.Search == nil {
		return
	}
	if err := ix.session.Search.Index(ctx, *report); err != nil {
		logger.Warn("catalog search index %s: %v", report.ID, err)
	}
}

// pendingEnrichment returns up to firstN reports that have a document and no
// enrichment yet, in canonical order. firstN <= 0 means all of them.
func pendingEnrichment(reports []domain.Report, firstN int) []domain.Report {
	var pending []domain.Report
	for i := range reports {
		if !reports[i].HasDocument() || reports[i].IsEnriched() {
			continue
		}
		pending = append(pending, reports[i])
		if firstN > 0 && len(pending) == firstN {
			break
		}
	}
	return pending
}
