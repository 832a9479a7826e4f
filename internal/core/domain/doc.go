// Package domain holds the types every layer shares: Report and its
// enrichment, Chunk and ChunkOrigin, IndexEntry, Answer with its
// Citations, the settings structs and the sentinel errors. It imports the
// standard library only.
package domain
