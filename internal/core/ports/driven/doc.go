// Package driven declares what the core needs from the outside world:
// storage for the catalog and the chunks, the report listing, PDF text,
// language and embedding models, configuration and prompt templates.
// Adapters under internal/adapters/driven implement these interfaces.
// CatalogSearch is optional; the catalog service falls back to a
// substring match without it.
//
// This package imports domain and the standard library only.
package driven
