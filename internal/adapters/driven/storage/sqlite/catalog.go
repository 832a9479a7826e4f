package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// catalogStore implements driven.CatalogStore.
type catalogStore struct {
	store *Store
}

var _ driven.CatalogStore = (*catalogStore)(nil)

const reportColumns = `id, source_url, title, abstract, date_published, document_url, enriched, keywords, year, enrichment_digest`

// Append adds a report at the end of the catalog.
func (s *catalogStore) Append(ctx context.Context, report domain.Report) error {
	if report.ID == "" || report.SourceURL == "" {
		return fmt.Errorf("%w: report needs an ID and a source URL", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var existing int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reports WHERE id = ? OR source_url = ?",
		report.ID, report.SourceURL,
	).Scan(&existing); err != nil {
		return fmt.Errorf("checking report: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("report %s: %w", report.ID, domain.ErrAlreadyExists)
	}

	cols, err := enrichmentColumns(report.Enrichment)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.SourceURL, report.Title,
		nullString(report.Abstract), nullString(report.DatePublished), nullString(report.DocumentURL),
		cols.enriched, cols.keywords, cols.year, cols.digest)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a report by ID.
func (s *catalogStore) Get(ctx context.Context, id string) (*domain.Report, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = ?", id)

	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return report, err
}

// List returns every report in canonical order.
func (s *catalogStore) List(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+reportColumns+" FROM reports ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report //nolint:prealloc // size unknown from query
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return reports, nil
}

// ContainsURL reports whether a report with the source URL exists.
func (s *catalogStore) ContainsURL(ctx context.Context, sourceURL string) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reports WHERE source_url = ?", sourceURL).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking report url: %w", err)
	}
	return n > 0, nil
}

// UpsertEnrichment stores the report's enrichment once.
func (s *catalogStore) UpsertEnrichment(ctx context.Context, id string, enrichment domain.Enrichment) error {
	cols, err := enrichmentColumns(&enrichment)
	if err != nil {
		return err
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE reports SET enriched = 1, keywords = ?, year = ?, enrichment_digest = ?
		WHERE id = ? AND enriched = 0
	`, cols.keywords, cols.year, cols.digest, id)
	if err != nil {
		return fmt.Errorf("saving enrichment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving enrichment: %w", err)
	}
	if n > 0 {
		return nil
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("report %s: %w", id, domain.ErrAlreadyEnriched)
}

// Count returns the number of reports.
func (s *catalogStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting reports: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanReport scans a single report row.
func scanReport(row rowScanner) (*domain.Report, error) {
	var (
		report                                     domain.Report
		abstract, published, document, kws, digest sql.NullString
		enriched                                   bool
		year                                       sql.NullInt64
	)

	if err := row.Scan(&report.ID, &report.SourceURL, &report.Title,
		&abstract, &published, &document, &enriched, &kws, &year, &digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning report: %w", err)
	}

	report.Abstract = stringPtr(abstract)
	report.DatePublished = stringPtr(published)
	report.DocumentURL = stringPtr(document)

	if enriched {
		e := &domain.Enrichment{Keywords: []string{}, Digest: digest.String}
		if kws.Valid && kws.String != "" {
			if err := json.Unmarshal([]byte(kws.String), &e.Keywords); err != nil {
				return nil, fmt.Errorf("unmarshalling keywords: %w", err)
			}
		}
		if year.Valid {
			y := int(year.Int64)
			e.Year = &y
		}
		report.Enrichment = e
	}

	return &report, nil
}

// enrichmentRow holds the column values of an optional enrichment.
type enrichmentRow struct {
	enriched bool
	keywords sql.NullString
	year     sql.NullInt64
	digest   sql.NullString
}

// enrichmentColumns maps an optional enrichment to its column values.
func enrichmentColumns(e *domain.Enrichment) (enrichmentRow, error) {
	if e == nil {
		return enrichmentRow{}, nil
	}

	keywords := e.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return enrichmentRow{}, fmt.Errorf("marshalling keywords: %w", err)
	}

	row := enrichmentRow{
		enriched: true,
		keywords: sql.NullString{String: string(data), Valid: true},
		digest:   sql.NullString{String: e.Digest, Valid: e.Digest != ""},
	}
	if e.Year != nil {
		row.year = sql.NullInt64{Int64: int64(*e.Year), Valid: true}
	}
	return row, nil
}
