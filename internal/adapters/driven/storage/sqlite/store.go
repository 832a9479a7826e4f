package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/custodia-labs/reportqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
)

// DatabaseFile is the database name inside the data directory.
const DatabaseFile = "reportqa.db"

// WAL lets `mcp serve` read while `update` writes.
const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// metaEmbedder records which embedding model produced the stored vectors.
const metaEmbedder = "embedder"

// Store owns the database handle. The catalog and chunk stores share it.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens dataDir/reportqa.db and applies pending migrations. An
// empty dataDir means ~/.reportqa/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".reportqa", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrateUp(context.Background(), migrations.FS); err != nil {
		return nil, errors.Join(fmt.Errorf("migrating %s: %w", path, err), db.Close())
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) CatalogStore() driven.CatalogStore {
	return &catalogStore{store: s}
}

func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// EnsureEmbedder checks that the stored vectors were produced by the
// embedder named by fingerprint. An empty store adopts the fingerprint. A
// store holding vectors from another embedder fails with
// domain.ErrInvalidInput naming both. ResetIndex rebuilds it.
func (s *Store) EnsureEmbedder(ctx context.Context, fingerprint string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var recorded string
	err = tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaEmbedder).Scan(&recorded)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading embedder: %w", err)
	case recorded == fingerprint:
		return nil
	}

	if recorded != "" {
		var stored int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stored); err != nil {
			return fmt.Errorf("counting chunks: %w", err)
		}
		if stored > 0 {
			return fmt.Errorf("%w: the index holds %d chunks embedded by %s but the settings select %s; "+
				"restore the embedding settings or run 'reportqa update --reindex'",
				domain.ErrInvalidInput, stored, recorded, fingerprint)
		}
	}

	if err := recordEmbedder(ctx, tx, fingerprint); err != nil {
		return err
	}
	return tx.Commit()
}

// ResetIndex removes every chunk, its provenance and the document markers,
// and records fingerprint as the embedder of the empty index. The catalog
// is kept. It returns the number of chunks removed.
func (s *Store) ResetIndex(ctx context.Context, fingerprint string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var removed int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&removed); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	for _, table := range []string{"chunk_origins", "chunks", "indexed_documents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if err := recordEmbedder(ctx, tx, fingerprint); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	logger.Info("index reset: removed %d chunks, embedder is now %s", removed, fingerprint)
	return removed, nil
}

func recordEmbedder(ctx context.Context, tx *sql.Tx, fingerprint string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaEmbedder, fingerprint); err != nil {
		return fmt.Errorf("recording embedder: %w", err)
	}
	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	return version, err
}

// migration is one numbered pair of NNN_name.up.sql and NNN_name.down.sql.
type migration struct {
	version int
	name    string
}

func (m migration) file(direction string) string {
	return m.name + "." + direction + ".sql"
}

// listMigrations returns the migrations in fsys in version order.
func listMigrations(fsys fs.FS) ([]migration, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, err
	}
	out := make([]migration, 0, len(ups))
	for _, file := range ups {
		var m migration
		if _, err := fmt.Sscanf(file, "%d_", &m.version); err != nil {
			return nil, fmt.Errorf("migration %s: name must start with a version number", file)
		}
		m.name = strings.TrimSuffix(file, ".up.sql")
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	return out, nil
}

// migrateUp applies every migration newer than the recorded version, each
// in its own transaction.
func (s *Store) migrateUp(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	current, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	all, err := listMigrations(fsys)
	if err != nil {
		return err
	}
	for _, m := range all {
		if m.version <= current {
			continue
		}
		if err := s.apply(ctx, fsys, m.file("up"),
			`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			return err
		}
	}
	return nil
}

// migrateDown reverts migrations newer than target, newest first.
func (s *Store) migrateDown(ctx context.Context, fsys fs.FS, target int) error {
	current, err := s.SchemaVersion()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	all, err := listMigrations(fsys)
	if err != nil {
		return err
	}
	for _, m := range slices.Backward(all) {
		if m.version <= target || m.version > current {
			continue
		}
		if err := s.apply(ctx, fsys, m.file("down"),
			`DELETE FROM schema_migrations WHERE version = ?`, m.version); err != nil {
			return err
		}
	}
	return nil
}

// apply runs a migration file and its bookkeeping statement atomically.
func (s *Store) apply(ctx context.Context, fsys fs.FS, file, record string, version int) error {
	body, err := fs.ReadFile(fsys, file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("executing %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx, record, version); err != nil {
		return fmt.Errorf("recording %s: %w", file, err)
	}
	return tx.Commit()
}

// Vectors are stored as little-endian float32 blobs.

func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	if len(blob) == 0 {
		return nil
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
