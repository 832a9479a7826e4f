// Package sqlite persists the report catalog and the chunk index in one
// SQLite file, ~/.reportqa/data/reportqa.db by default.
//
// The driver is modernc.org/sqlite, so the binary needs no CGO. The file is
// opened in WAL mode: `reportqa mcp serve` keeps reading while
// `reportqa update` appends.
//
// Reports keep their insertion order through an autoincrement seq column;
// the catalog listing and the scope prompt depend on it. Chunks are keyed by
// content hash, with one chunk_origins row per report and page the text was
// found in.
//
// The schema lives in migrations/ as numbered up/down pairs applied on open.
// The meta table records which embedder produced the stored vectors; see
// Store.EnsureEmbedder.
package sqlite
