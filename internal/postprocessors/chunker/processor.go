// Package chunker splits report pages into overlapping fixed-size chunks
// whose IDs are derived from their text.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 150

// ContentID returns the content-addressed ID of a chunk text: the name-based
// (SHA-1) UUID of the text in the DNS namespace. The same text yields the same
// ID in every process.
func ContentID(text string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(text)).String()
}

// Processor splits page text into fixed-size chunks.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Process chunks every page of a report document. Chunks never span pages,
// so each carries the 1-based number of the page it came from.
// Whitespace-only windows are dropped.
func (p *Processor) Process(report domain.Report, pages []string) []domain.Chunk {
	var documentURL string
	if report.DocumentURL != nil {
		documentURL = *report.DocumentURL
	}

	var chunks []domain.Chunk
	for i, page := range pages {
		origin := domain.ChunkOrigin{
			ReportID:   report.ID,
			PageNumber: i + 1,
			Title:      report.Title,
			SourceURL:  documentURL,
		}
		for _, text := range p.Split(page) {
			chunks = append(chunks, domain.Chunk{
				ID:          ContentID(text),
				Text:        text,
				ChunkOrigin: origin,
			})
		}
	}
	return chunks
}

// Split cuts text into windows of chunkSize runes, each starting
// chunkSize-overlap runes after the previous one. Windows are trimmed.
func (p *Processor) Split(text string) []string {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	parts := make([]string, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := start + p.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			parts = append(parts, part)
		}

		if end == len(runes) {
			break
		}
	}

	return parts
}
