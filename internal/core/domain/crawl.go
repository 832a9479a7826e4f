package domain

// CrawlState is the state of a listing crawl.
type CrawlState string

// Crawl states.
const (
	// CrawlScanning means the last visited page contributed new reports.
	CrawlScanning CrawlState = "scanning"

	// CrawlKnownStreak means one or more consecutive pages had nothing new.
	CrawlKnownStreak CrawlState = "known_streak"

	// CrawlDone means the crawl has terminated.
	CrawlDone CrawlState = "done"
)

// String returns the string representation.
func (s CrawlState) String() string {
	return string(s)
}

// CrawlStopReason explains why a crawl reached CrawlDone.
type CrawlStopReason string

// Crawl stop reasons.
const (
	// StopKnownStreak means the known-page streak reached its limit.
	StopKnownStreak CrawlStopReason = "known_streak"

	// StopLastPage means the listing reported no more pages.
	StopLastPage CrawlStopReason = "last_page"

	// StopMaxNew means the cap on new reports was reached.
	StopMaxNew CrawlStopReason = "max_new"
)

// DiscoverResult summarises one crawl of the report listing.
type DiscoverResult struct {
	// PagesVisited is the number of listing pages fetched successfully.
	PagesVisited int

	// Appended holds the IDs of reports added to the catalog, in order.
	Appended []string

	// State is the final crawl state.
	State CrawlState

	// StopReason explains why the crawl stopped.
	StopReason CrawlStopReason
}

// UpdateSummary summarises one run of the update pipeline.
type UpdateSummary struct {
	// Discover is the result of the crawl step.
	Discover DiscoverResult

	// Enriched is the number of reports given keyword enrichment.
	Enriched int

	// ChunksAdded is the number of new chunks committed to the index.
	ChunksAdded int
}
