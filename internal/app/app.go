// Package app wires the driven adapters into sessions for the driving adapters.
// Everything reportqa stores lives under one home directory (~/.reportqa):
// config.toml, prompts/ and data/reportqa.db.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/reportqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/reportqa/internal/adapters/driven/catalogsearch"
	"github.com/custodia-labs/reportqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/reportqa/internal/adapters/driven/loader/pdf"
	"github.com/custodia-labs/reportqa/internal/adapters/driven/source/iea"
	"github.com/custodia-labs/reportqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/reportqa/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/core/services"
	"github.com/custodia-labs/reportqa/internal/logger"
)

// HomeEnv overrides the home directory.
const HomeEnv = "REPORTQA_HOME"

// DefaultHome returns $REPORTQA_HOME, falling back to ~/.reportqa.
func DefaultHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(userHome, ".reportqa"), nil
}

// App holds the configuration shared by every command.
type App struct {
	home     string
	config   *file.ConfigStore
	settings *services.SettingsService
}

// New opens the configuration under home. An empty home uses DefaultHome.
func New(home string) (*App, error) {
	if home == "" {
		var err error
		if home, err = DefaultHome(); err != nil {
			return nil, err
		}
	}

	config, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	return &App{
		home:     home,
		config:   config,
		settings: services.NewSettingsService(config),
	}, nil
}

// Home returns the home directory.
func (a *App) Home() string {
	return a.home
}

// Settings returns the settings service.
func (a *App) Settings() *services.SettingsService {
	return a.settings
}

// ConfigPath returns the path of config.toml.
func (a *App) ConfigPath() string {
	return a.config.Path()
}

// PromptDir returns the prompt override directory.
func (a *App) PromptDir() string {
	return filepath.Join(a.home, "prompts")
}

// DataDir returns the database directory.
func (a *App) DataDir() string {
	return filepath.Join(a.home, "data")
}

// Runtime is an open session and the services built on it.
type Runtime struct {
	// Session holds the shared pipeline state.
	Session *services.Session

	// Asker answers questions.
	Asker *services.AskService

	// Updater grows the catalog and the index.
	Updater *services.UpdateService

	// Catalog exposes catalog listing and search.
	Catalog *services.CatalogService

	// Prompts is the prompt store, watchable for edits.
	Prompts *file.PromptStore

	ai    *ai.Services
	store *sqlite.Store
}

// Open builds a session from the current settings: the SQLite catalog and
// chunk store, the in-memory vector index loaded from it, the catalog search
// index, the AI providers, the report source and the document loader.
func (a *App) Open(ctx context.Context) (*Runtime, error) {
	settings, err := a.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if err := settings.Pipeline.Validate(); err != nil {
		return nil, err
	}

	aiServices, err := ai.NewServices(settings)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(a.DataDir())
	if err != nil {
		_ = aiServices.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	rt := &Runtime{ai: aiServices, store: store}
	fail := func(err error) (*Runtime, error) {
		return nil, errors.Join(err, rt.Close())
	}

	if err := store.EnsureEmbedder(ctx, fingerprint(settings, aiServices.Embedding)); err != nil {
		return fail(err)
	}

	index := vectorindex.New(aiServices.Embedding, store.ChunkStore())
	if err := index.Load(ctx); err != nil {
		return fail(fmt.Errorf("loading vector index: %w", err))
	}

	reports, err := store.CatalogStore().List(ctx)
	if err != nil {
		return fail(fmt.Errorf("listing catalog: %w", err))
	}
	search, err := catalogsearch.Open(ctx, reports)
	if err != nil {
		return fail(fmt.Errorf("building catalog search: %w", err))
	}

	source, err := iea.New(iea.Config{
		BaseURL:     settings.Source.BaseURL,
		ListingPath: settings.Source.ListingPath,
	})
	if err != nil {
		_ = search.Close()
		return fail(err)
	}

	prompts, err := file.NewPromptStore(a.PromptDir())
	if err != nil {
		_ = search.Close()
		return fail(err)
	}

	rt.Prompts = prompts
	rt.Session = &services.Session{
		Catalog:  store.CatalogStore(),
		Index:    index,
		Source:   source,
		Loader:   pdf.New(pdf.Config{}),
		LLM:      aiServices.LLM,
		Prompts:  prompts,
		Search:   search,
		Settings: *settings,
	}
	rt.Asker = services.NewAskService(rt.Session)
	rt.Updater = services.NewUpdateService(rt.Session)
	rt.Catalog = services.NewCatalogService(rt.Session)

	logger.Debug("opened session: %d reports, %d chunks, store %s", len(reports), index.Len(), store.Path())
	return rt, nil
}

// ResetIndex empties the vector index and binds it to the configured
// embedder, keeping the catalog. The next update re-ingests every document.
// It returns the number of chunks removed.
func (a *App) ResetIndex(ctx context.Context) (int, error) {
	settings, err := a.settings.Get()
	if err != nil {
		return 0, fmt.Errorf("loading settings: %w", err)
	}
	embedding, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return 0, err
	}
	defer embedding.Close() //nolint:errcheck

	store, err := sqlite.NewStore(a.DataDir())
	if err != nil {
		return 0, fmt.Errorf("opening store: %w", err)
	}
	removed, err := store.ResetIndex(ctx, fingerprint(settings, embedding))
	return removed, errors.Join(err, store.Close())
}

// fingerprint identifies the embedder whose vectors the store holds.
func fingerprint(settings *domain.AppSettings, embedding driven.EmbeddingService) string {
	return fmt.Sprintf("%s/%s@%d", settings.Embedding.Provider, embedding.ModelName(), embedding.Dimensions())
}

// Close releases the session, the AI providers and the store.
func (r *Runtime) Close() error {
	var errs []error
	if r.Session != nil {
		// The session closes the index, the search index and the LLM.
		errs = append(errs, r.Session.Close())
		if r.ai != nil && r.ai.Embedding != nil {
			errs = append(errs, r.ai.Embedding.Close())
		}
	} else if r.ai != nil {
		errs = append(errs, r.ai.Close())
	}
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	return errors.Join(errs...)
}

// Check is the outcome of one environment check.
type Check struct {
	Name string
	Err  error
}

// Check verifies that the configured providers answer and that the PDF
// tool is installed.
func (a *App) Check(ctx context.Context) []Check {
	var checks []Check

	settings, err := a.settings.Get()
	if err != nil {
		return []Check{{Name: "settings", Err: err}}
	}
	checks = append(checks, Check{Name: "settings", Err: settings.Pipeline.Validate()})

	aiServices, err := ai.NewServices(settings)
	if err != nil {
		checks = append(checks, Check{Name: "ai providers", Err: err})
	} else {
		checks = append(checks, Check{Name: "ai providers", Err: aiServices.Ping(ctx)})
		_ = aiServices.Close()
	}

	checks = append(checks, Check{Name: "pdftotext", Err: pdf.New(pdf.Config{}).Check()})
	return checks
}
