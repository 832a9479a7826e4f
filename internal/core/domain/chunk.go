package domain

// ChunkOrigin records where a chunk's text was found.
type ChunkOrigin struct {
	// ReportID links to the Report the text came from.
	ReportID string

	// PageNumber is the 1-based page within the report document.
	PageNumber int

	// Title is the report title at ingestion time.
	Title string

	// SourceURL is the document URL the text was extracted from.
	SourceURL string
}

// Chunk is a span of report text, addressed by a hash of its content.
// Identical text always maps to the same ID regardless of provenance.
type Chunk struct {
	// ID is the content hash of Text.
	ID string

	// Text is the chunk content.
	Text string

	// ChunkOrigin is the provenance of this occurrence of the text.
	ChunkOrigin
}

// IndexEntry is a chunk stored in the vector index.
// Entries are immutable except for Origins, which only grows.
type IndexEntry struct {
	// Chunk holds the text and the metadata of the first writer.
	Chunk Chunk

	// Vector is the embedding of Chunk.Text.
	Vector []float32

	// Origins lists every report the text was found in, first writer first.
	Origins []ChunkOrigin
}

// OriginIn returns the first origin whose report is in reportIDs.
func (e *IndexEntry) OriginIn(reportIDs map[string]struct{}) (ChunkOrigin, bool) {
	for _, o := range e.Origins {
		if _, ok := reportIDs[o.ReportID]; ok {
			return o, true
		}
	}
	if len(e.Origins) == 0 {
		if _, ok := reportIDs[e.Chunk.ReportID]; ok {
			return e.Chunk.ChunkOrigin, true
		}
	}
	return ChunkOrigin{}, false
}
