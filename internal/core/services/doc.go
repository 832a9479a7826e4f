// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// A Session owns the catalog, the vector index and the external
// collaborators; every service is built from one. The two pipelines are:
//
//   - Update: CorpusIndexer (crawl, enrich) then IngestionBatcher
//   - Ask: ScopeResolver, Retriever, then Synthesizer
//
// Every text generation call goes through a TextGenerator, which retries
// rate-limited calls after a fixed delay. Structured output additionally
// goes through Invoke, the bounded output repair protocol.
package services
