// Package iea reads the IEA report listing and report landing pages.
package iea

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.ReportSource = (*Source)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "https://www.iea.org"
	DefaultListingPath = "/analysis"
	DefaultTimeout     = 60 * time.Second
	DefaultUserAgent   = "reportqa/1.0 (+https://github.com/custodia-labs/reportqa)"

	// maxPageBytes bounds the size of a fetched HTML page.
	maxPageBytes = 10 << 20

	// downloadEvent marks the report download link. The trailing space is part of the site's markup.
	downloadEvent = "ReportsDownload"
)

// Config holds configuration for the IEA source.
type Config struct {
	// BaseURL is the site root (default: https://www.iea.org).
	BaseURL string

	// ListingPath is the paginated listing path (default: /analysis).
	ListingPath string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// RequestsPerSecond throttles page fetches. Zero disables throttling.
	RequestsPerSecond float64

	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client
}

// ErrAmbiguousDocument is returned when a report page carries several
// download links.
var ErrAmbiguousDocument = errors.New("several download links")

// StatusError is returned when the site answers with an unexpected status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Source scrapes report URLs and metadata from the IEA website.
type Source struct {
	client  *http.Client
	base    *url.URL
	listing string
	limiter *rate.Limiter
}

// New creates an IEA source.
func New(cfg Config) (*Source, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ListingPath == "" {
		cfg.ListingPath = DefaultListingPath
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid source base URL %q", domain.ErrInvalidInput, cfg.BaseURL)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Source{
		client:  client,
		base:    base,
		listing: cfg.ListingPath,
		limiter: limiter,
	}, nil
}

// ListPage returns the report URLs on listing page n, in page order.
// The site answers past the last page with HTTP 500, reported as
// domain.ErrNoMorePages.
func (s *Source) ListPage(ctx context.Context, n int) ([]string, error) {
	pageURL, err := s.base.Parse(s.listing)
	if err != nil {
		return nil, fmt.Errorf("listing url: %w", err)
	}
	q := pageURL.Query()
	q.Set("page", strconv.Itoa(n))
	pageURL.RawQuery = q.Encode()

	body, status, err := s.get(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}
	if status == http.StatusInternalServerError {
		return nil, fmt.Errorf("page %d: %w", n, domain.ErrNoMorePages)
	}
	if status != http.StatusOK {
		return nil, &StatusError{URL: pageURL.String(), StatusCode: status}
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing page %d: %w", n, err)
	}

	layout := findFirst(doc, byTagClass("div", "o-layout__main"))
	if layout == nil {
		return nil, fmt.Errorf("listing page %d: no main layout", n)
	}
	listing := findFirst(layout, byTagClass("ul", "m-card-listing"))
	if listing == nil {
		return nil, fmt.Errorf("listing page %d: no card listing", n)
	}

	seen := make(map[string]struct{})
	var urls []string
	for _, a := range findAll(listing, func(n *html.Node) bool { return n.Data == "a" }) {
		href := strings.TrimSpace(attr(a, "href"))
		if href == "" || href == "#" {
			continue
		}
		abs, err := s.base.Parse(href)
		if err != nil {
			logger.Debug("skipping listing link %q: %v", href, err)
			continue
		}
		link := abs.String()
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		urls = append(urls, link)
	}
	return urls, nil
}

// FetchDetail scrapes the metadata of one report page.
func (s *Source) FetchDetail(ctx context.Context, reportURL string) (*driven.ReportDetail, error) {
	body, status, err := s.get(ctx, reportURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &StatusError{URL: reportURL, StatusCode: status}
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse report page %s: %w", reportURL, err)
	}

	detail := &driven.ReportDetail{}

	if h1 := findFirst(doc, func(n *html.Node) bool { return n.Data == "h1" }); h1 != nil {
		detail.Title = textContent(h1)
	}

	if div := findFirst(doc, byTagClass("div", "m-report-abstract")); div != nil {
		if text := textContent(div); text != "" {
			detail.Abstract = &text
		}
	}

	if detail.Title == "" {
		detail.Title = readableTitle(body, reportURL)
	}

	detail.DatePublished = publishedDate(doc)
	detail.DocumentURL, err = s.documentLink(doc, reportURL)
	if err != nil {
		return nil, err
	}

	return detail, nil
}

// readableTitle returns the title readability extracts from a page without
// a heading.
func readableTitle(body []byte, reportURL string) string {
	pageURL, err := url.Parse(reportURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		logger.Debug("readability %s: %v", reportURL, err)
		return ""
	}
	return strings.TrimSpace(article.Title)
}

// documentLink returns the single download link of a report page.
// Pages with no link or a placeholder link have no document; several links
// are an ErrAmbiguousDocument.
func (s *Source) documentLink(doc *html.Node, reportURL string) (*string, error) {
	links := findAll(doc, func(n *html.Node) bool {
		return n.Data == "a" && strings.TrimSpace(attr(n, "data-track-event")) == downloadEvent
	})

	switch len(links) {
	case 0:
		logger.Debug("no download link for %s", reportURL)
		return nil, nil
	case 1:
	default:
		return nil, fmt.Errorf("%w: %d download links on %s", ErrAmbiguousDocument, len(links), reportURL)
	}

	href := strings.TrimSpace(attr(links[0], "href"))
	if href == "" || href == "#" {
		return nil, nil
	}
	abs, err := s.base.Parse(href)
	if err != nil {
		logger.Warn("bad download link %q for %s: %v", href, reportURL, err)
		return nil, nil
	}
	link := abs.String()
	return &link, nil
}

// publishedDate reads the "Published" entry of the page's meta block.
func publishedDate(doc *html.Node) *string {
	meta := findFirst(doc, byTagClass("article", "m-meta-infos"))
	if meta == nil {
		return nil
	}
	for _, span := range findAll(meta, func(n *html.Node) bool { return n.Data == "span" }) {
		if textContent(span) != "Published" {
			continue
		}
		value := nextElementSibling(span)
		if !isElement(value, "span") {
			return nil
		}
		return normaliseDate(textContent(value))
	}
	return nil
}

// dateLayouts are the publication date formats seen on report pages.
var dateLayouts = []string{
	"2 January 2006",
	"02 January 2006",
	"January 2, 2006",
	"2006-01-02",
	"January 2006",
	"Jan 2006",
	"2006",
}

// normaliseDate converts a published date to YYYY-MM-DD.
// Month-only and year-only dates map to the first day of the period.
func normaliseDate(raw string) *string {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			date := t.Format("2006-01-02")
			return &date
		}
	}
	if raw != "" {
		logger.Debug("unrecognised publication date %q", raw)
	}
	return nil
}

// get fetches url and returns the body and status code.
func (s *Source) get(ctx context.Context, target string) ([]byte, int, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", target, err)
	}
	return body, resp.StatusCode, nil
}

// IsStatusError returns the StatusError in err's chain, if any.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
