package services

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// Session owns the state shared by one run of the pipelines: the catalog,
// the vector index and the collaborators that feed them. Services keep a
// reference to the session instead of package-level state, so independent
// sessions can coexist.
type Session struct {
	// Catalog is the report catalog repository.
	Catalog driven.CatalogStore

	// Index is the chunk vector index.
	Index driven.VectorIndex

	// Source reads the report listing. Only needed for updates.
	Source driven.ReportSource

	// Loader extracts document text. Only needed for updates.
	Loader driven.DocumentLoader

	// LLM generates text.
	LLM driven.LLMService

	// Prompts provides prompt templates.
	Prompts driven.PromptStore

	// Search indexes catalog metadata for keyword lookup. Optional.
	Search driven.CatalogSearch

	// Settings tunes the pipelines.
	Settings domain.AppSettings

	// Sleep waits between rate-limited retries. Nil uses SleepContext.
	Sleep Sleeper
}

// Validate checks that the collaborators needed to ask questions are set.
func (s *Session) Validate() error {
	switch {
	case s.Catalog == nil:
		return fmt.Errorf("%w: session has no catalog", domain.ErrInvalidInput)
	case s.Index == nil:
		return fmt.Errorf("%w: session has no vector index", domain.ErrInvalidInput)
	case s.LLM == nil:
		return domain.ErrLLMUnavailable
	case s.Prompts == nil:
		return fmt.Errorf("%w: session has no prompt store", domain.ErrInvalidInput)
	}
	return nil
}

// ValidateForUpdate additionally checks the ingestion collaborators.
func (s *Session) ValidateForUpdate() error {
	if err := s.Validate(); err != nil {
		return err
	}
	switch {
	case s.Source == nil:
		return fmt.Errorf("%w: session has no report source", domain.ErrInvalidInput)
	case s.Loader == nil:
		return fmt.Errorf("%w: session has no document loader", domain.ErrInvalidInput)
	}
	return nil
}

// Generator returns a TextGenerator bound to the session's LLM.
func (s *Session) Generator() *TextGenerator {
	return NewTextGenerator(s.LLM, s.Settings.Pipeline.RateLimitDelay, s.Sleep)
}

func (s *Session) sleeper() Sleeper {
	if s.Sleep == nil {
		return SleepContext
	}
	return s.Sleep
}

// Close releases the index, the LLM service and the search index.
func (s *Session) Close() error {
	var errs []error
	if s.Index != nil {
		errs = append(errs, s.Index.Close())
	}
	if s.LLM != nil {
		errs = append(errs, s.LLM.Close())
	}
	if s.Search != nil {
		errs = append(errs, s.Search.Close())
	}
	return errors.Join(errs...)
}
