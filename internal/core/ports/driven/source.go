package driven

import "context"

// ReportSource reads the paginated report listing.
type ReportSource interface {
	// ListPage returns the report URLs on listing page n (1-based), in page order.
	// Returns domain.ErrNoMorePages when n is past the last page.
	// Any other failure is fatal for the crawl.
	ListPage(ctx context.Context, n int) ([]string, error)

	// FetchDetail scrapes the metadata of one report.
	FetchDetail(ctx context.Context, reportURL string) (*ReportDetail, error)
}

// ReportDetail is the metadata scraped from a report page.
type ReportDetail struct {
	// Title is the report title.
	Title string

	// Abstract is the report summary, if present.
	Abstract *string

	// DatePublished is the publication date as YYYY-MM-DD, if present.
	DatePublished *string

	// DocumentURL links to the downloadable document, if present.
	DocumentURL *string
}

// DocumentLoader extracts text from report documents.
type DocumentLoader interface {
	// Load returns the text of each page of the document, in page order.
	Load(ctx context.Context, documentURL string) ([]string, error)
}
