package sqlite

import (
	"context"
	"fmt"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const insertOrigin = `
	INSERT INTO chunk_origins (chunk_id, report_id, page_number, title, source_url)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(chunk_id, report_id, page_number) DO NOTHING
`

// SaveEntries stores entries and their origins in one transaction.
func (s *chunkStore) SaveEntries(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, text, report_id, page_number, title, source_url, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer chunkStmt.Close()

	originStmt, err := tx.PrepareContext(ctx, insertOrigin)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer originStmt.Close()

	for i := range entries {
		e := &entries[i]
		c := e.Chunk
		if _, err := chunkStmt.ExecContext(ctx, c.ID, c.Text, c.ReportID, c.PageNumber,
			c.Title, c.SourceURL, encodeVector(e.Vector)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}

		origins := e.Origins
		if len(origins) == 0 {
			origins = []domain.ChunkOrigin{c.ChunkOrigin}
		}
		for _, o := range origins {
			if _, err := originStmt.ExecContext(ctx, c.ID, o.ReportID, o.PageNumber,
				o.Title, o.SourceURL); err != nil {
				return fmt.Errorf("saving origin of %s: %w", c.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveOrigins appends provenance records for an existing chunk ID.
func (s *chunkStore) SaveOrigins(ctx context.Context, chunkID string, origins []domain.ChunkOrigin) error {
	if len(origins) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, o := range origins {
		if _, err := tx.ExecContext(ctx, insertOrigin,
			chunkID, o.ReportID, o.PageNumber, o.Title, o.SourceURL); err != nil {
			return fmt.Errorf("saving origin of %s: %w", chunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// LoadEntries returns every stored entry with its origins, in insertion order.
func (s *chunkStore) LoadEntries(ctx context.Context) ([]domain.IndexEntry, error) {
	origins, err := s.loadOrigins(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, text, report_id, page_number, title, source_url, vector
		FROM chunks ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			entry domain.IndexEntry
			blob  []byte
		)
		c := &entry.Chunk
		if err := rows.Scan(&c.ID, &c.Text, &c.ReportID, &c.PageNumber,
			&c.Title, &c.SourceURL, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		entry.Vector = decodeVector(blob)
		entry.Origins = origins[c.ID]
		if len(entry.Origins) == 0 {
			entry.Origins = []domain.ChunkOrigin{c.ChunkOrigin}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return entries, nil
}

func (s *chunkStore) loadOrigins(ctx context.Context) (map[string][]domain.ChunkOrigin, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, report_id, page_number, title, source_url
		FROM chunk_origins ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying origins: %w", err)
	}
	defer rows.Close()

	origins := make(map[string][]domain.ChunkOrigin)
	for rows.Next() {
		var (
			chunkID string
			o       domain.ChunkOrigin
		)
		if err := rows.Scan(&chunkID, &o.ReportID, &o.PageNumber, &o.Title, &o.SourceURL); err != nil {
			return nil, fmt.Errorf("scanning origin: %w", err)
		}
		origins[chunkID] = append(origins[chunkID], o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating origins: %w", err)
	}
	return origins, nil
}

// CountEntries returns the number of stored entries.
func (s *chunkStore) CountEntries(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// MarkDocument records that every chunk of the document is stored.
func (s *chunkStore) MarkDocument(ctx context.Context, documentURL string) error {
	if _, err := s.store.db.ExecContext(ctx,
		`INSERT INTO indexed_documents (url) VALUES (?) ON CONFLICT(url) DO NOTHING`, documentURL); err != nil {
		return fmt.Errorf("marking %s indexed: %w", documentURL, err)
	}
	return nil
}

// LoadDocuments returns the documents marked by MarkDocument.
func (s *chunkStore) LoadDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT url FROM indexed_documents ORDER BY indexed_at, url`)
	if err != nil {
		return nil, fmt.Errorf("querying indexed documents: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scanning indexed document: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating indexed documents: %w", err)
	}
	return urls, nil
}
