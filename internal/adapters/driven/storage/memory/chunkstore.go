package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu        sync.RWMutex
	entries   []domain.IndexEntry
	byID      map[string]int
	documents []string
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		byID: make(map[string]int),
	}
}

// SaveEntries stores entries and their origins.
// Entries whose chunk ID already exists only contribute new origins.
func (s *ChunkStore) SaveEntries(_ context.Context, entries []domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		origins := e.Origins
		if len(origins) == 0 {
			origins = []domain.ChunkOrigin{e.Chunk.ChunkOrigin}
		}

		if i, ok := s.byID[e.Chunk.ID]; ok {
			s.entries[i].Origins = appendOrigins(s.entries[i].Origins, origins)
			continue
		}

		vector := make([]float32, len(e.Vector))
		copy(vector, e.Vector)
		s.byID[e.Chunk.ID] = len(s.entries)
		s.entries = append(s.entries, domain.IndexEntry{
			Chunk:   e.Chunk,
			Vector:  vector,
			Origins: appendOrigins(nil, origins),
		})
	}
	return nil
}

// SaveOrigins appends provenance records for an existing chunk ID.
func (s *ChunkStore) SaveOrigins(_ context.Context, chunkID string, origins []domain.ChunkOrigin) error {
	if len(origins) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[chunkID]
	if !ok {
		return fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
	}
	s.entries[i].Origins = appendOrigins(s.entries[i].Origins, origins)
	return nil
}

// LoadEntries returns every stored entry, in insertion order.
func (s *ChunkStore) LoadEntries(_ context.Context) ([]domain.IndexEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.IndexEntry, len(s.entries))
	for i, e := range s.entries {
		e.Origins = append([]domain.ChunkOrigin(nil), e.Origins...)
		entries[i] = e
	}
	return entries, nil
}

// MarkDocument records a fully stored document. Repeats are ignored.
func (s *ChunkStore) MarkDocument(_ context.Context, documentURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.documents, documentURL) {
		s.documents = append(s.documents, documentURL)
	}
	return nil
}

// LoadDocuments returns the marked documents in marking order.
func (s *ChunkStore) LoadDocuments(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.documents), nil
}

// CountEntries returns the number of stored entries.
func (s *ChunkStore) CountEntries(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// appendOrigins adds origins not already present, keyed by report and page.
func appendOrigins(existing, more []domain.ChunkOrigin) []domain.ChunkOrigin {
	for _, o := range more {
		dup := false
		for _, e := range existing {
			if e.ReportID == o.ReportID && e.PageNumber == o.PageNumber {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, o)
		}
	}
	return existing
}
