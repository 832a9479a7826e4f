package domain

import (
	"net/url"
	"strings"
)

// Report is one published report known to the catalog.
type Report struct {
	// ID is derived from the final path segment of SourceURL.
	ID string

	// SourceURL is the canonical URL of the report's landing page.
	SourceURL string

	// Title is the report title as published.
	Title string

	// Abstract is the landing page summary, if any.
	Abstract *string

	// DatePublished is the publication date formatted as YYYY-MM-DD, if known.
	DatePublished *string

	// DocumentURL links to the downloadable document.
	// A nil DocumentURL means the report can never produce chunks.
	DocumentURL *string

	// Enrichment holds extracted keywords and year.
	// Nil until the enrichment pass has processed the report.
	Enrichment *Enrichment
}

// Enrichment is the write-once keyword metadata of a report.
type Enrichment struct {
	// Keywords is a lowercase set of keywords. May be empty.
	Keywords []string

	// Year is the publication year, if the model could determine one.
	Year *int

	// Digest is the hex sha256 of the canonical model reply.
	// Empty when extraction was exhausted.
	Digest string
}

// HasDocument returns true if the report links to a retrievable document.
func (r *Report) HasDocument() bool {
	return r.DocumentURL != nil && *r.DocumentURL != ""
}

// IsEnriched returns true once the enrichment pass has stored a result.
func (r *Report) IsEnriched() bool {
	return r.Enrichment != nil
}

// PublishedYear returns the enriched year, falling back to the year of
// DatePublished. Returns 0 when neither is known.
func (r *Report) PublishedYear() int {
	if r.Enrichment != nil && r.Enrichment.Year != nil {
		return *r.Enrichment.Year
	}
	if r.DatePublished != nil && len(*r.DatePublished) >= 4 {
		year := 0
		for _, c := range (*r.DatePublished)[:4] {
			if c < '0' || c > '9' {
				return 0
			}
			year = year*10 + int(c-'0')
		}
		return year
	}
	return 0
}

// ReportIDFromURL returns the final non-empty path segment of a report URL.
func ReportIDFromURL(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// NormaliseKeywords lowercases, trims and deduplicates keywords,
// preserving first-seen order.
func NormaliseKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
