package services

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMFastModel      = "llm.fast_model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyChunkSize         = "pipeline.chunk_size"
	keyChunkOverlap      = "pipeline.chunk_overlap"
	keyBatchSize         = "pipeline.batch_size"
	keyRateLimitDelay    = "pipeline.rate_limit_delay"
	keyKnownPageStreak   = "pipeline.known_page_streak"
	keyTopK              = "pipeline.top_k"
	keyMapConcurrency    = "pipeline.map_concurrency"
	keyRequestsPerSecond = "pipeline.requests_per_second"
	keyDefaultNewest     = "pipeline.default_newest"
	keyDefaultNumReports = "pipeline.default_num_reports"
	keySourceBaseURL     = "source.base_url"
	keySourceListingPath = "source.listing_path"
)

// Environment variables consulted when no API key is configured.
//
//nolint:gosec // G101: These are variable names, not credentials.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

type keyKind int

const (
	kindString keyKind = iota
	kindProvider
	kindInt
	kindFloat
	kindDuration
)

var settingKeys = map[string]keyKind{
	keyLLMProvider:       kindProvider,
	keyLLMModel:          kindString,
	keyLLMFastModel:      kindString,
	keyLLMBaseURL:        kindString,
	keyLLMAPIKey:         kindString,
	keyEmbedProvider:     kindProvider,
	keyEmbedModel:        kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyChunkSize:         kindInt,
	keyChunkOverlap:      kindInt,
	keyBatchSize:         kindInt,
	keyRateLimitDelay:    kindDuration,
	keyKnownPageStreak:   kindInt,
	keyTopK:              kindInt,
	keyMapConcurrency:    kindInt,
	keyRequestsPerSecond: kindFloat,
	keyDefaultNewest:     kindInt,
	keyDefaultNumReports: kindInt,
	keySourceBaseURL:     kindString,
	keySourceListingPath: kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore, getenv: os.Getenv}
}

// Get retrieves current application settings.
// API keys fall back to the provider's environment variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:  s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:     s.getString(keyLLMModel, defaults.LLM.Model),
			FastModel: s.getString(keyLLMFastModel, defaults.LLM.FastModel),
			BaseURL:   s.configStore.GetString(keyLLMBaseURL),
			APIKey:    s.configStore.GetString(keyLLMAPIKey),
		},
		Pipeline: domain.PipelineSettings{
			ChunkSize:         s.getInt(keyChunkSize, defaults.Pipeline.ChunkSize),
			ChunkOverlap:      s.getInt(keyChunkOverlap, defaults.Pipeline.ChunkOverlap),
			BatchSize:         s.getInt(keyBatchSize, defaults.Pipeline.BatchSize),
			RateLimitDelay:    s.getDuration(keyRateLimitDelay, defaults.Pipeline.RateLimitDelay),
			KnownPageStreak:   s.getInt(keyKnownPageStreak, defaults.Pipeline.KnownPageStreak),
			TopK:              s.getInt(keyTopK, defaults.Pipeline.TopK),
			MapConcurrency:    s.getInt(keyMapConcurrency, defaults.Pipeline.MapConcurrency),
			RequestsPerSecond: s.getFloat(keyRequestsPerSecond, defaults.Pipeline.RequestsPerSecond),
			DefaultNewest:     s.getInt(keyDefaultNewest, defaults.Pipeline.DefaultNewest),
			DefaultNumReports: s.getInt(keyDefaultNumReports, defaults.Pipeline.DefaultNumReports),
		},
		Source: domain.SourceSettings{
			BaseURL:     s.getString(keySourceBaseURL, defaults.Source.BaseURL),
			ListingPath: s.getString(keySourceListingPath, defaults.Source.ListingPath),
		},
	}

	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}

	return settings, nil
}

// Save persists application settings.
// API keys are only written when set, so keys from the environment stay there.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyLLMProvider:       settings.LLM.Provider.String(),
		keyLLMModel:          settings.LLM.Model,
		keyLLMFastModel:      settings.LLM.FastModel,
		keyLLMBaseURL:        settings.LLM.BaseURL,
		keyEmbedProvider:     settings.Embedding.Provider.String(),
		keyEmbedModel:        settings.Embedding.Model,
		keyEmbedBaseURL:      settings.Embedding.BaseURL,
		keyChunkSize:         settings.Pipeline.ChunkSize,
		keyChunkOverlap:      settings.Pipeline.ChunkOverlap,
		keyBatchSize:         settings.Pipeline.BatchSize,
		keyRateLimitDelay:    settings.Pipeline.RateLimitDelay.String(),
		keyKnownPageStreak:   settings.Pipeline.KnownPageStreak,
		keyTopK:              settings.Pipeline.TopK,
		keyMapConcurrency:    settings.Pipeline.MapConcurrency,
		keyRequestsPerSecond: settings.Pipeline.RequestsPerSecond,
		keyDefaultNewest:     settings.Pipeline.DefaultNewest,
		keyDefaultNumReports: settings.Pipeline.DefaultNumReports,
		keySourceBaseURL:     settings.Source.BaseURL,
		keySourceListingPath: settings.Source.ListingPath,
	}
	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envKey(settings.LLM.Provider) {
		values[keyLLMAPIKey] = settings.LLM.APIKey
	}
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.envKey(settings.Embedding.Provider) {
		values[keyEmbedAPIKey] = settings.Embedding.APIKey
	}

	for _, key := range s.Keys() {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := s.configStore.Set(key, v); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Set parses value according to the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var stored any
	switch kind {
	case kindString:
		stored = value
	case kindProvider:
		provider := domain.AIProvider(value)
		if !provider.IsValid() {
			return fmt.Errorf("%w: invalid provider %q", domain.ErrInvalidInput, value)
		}
		if key == keyEmbedProvider && !provider.SupportsEmbeddings() {
			return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
		}
		stored = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		stored = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		stored = f
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: %s must be a duration such as 20s", domain.ErrInvalidInput, key)
		}
		stored = d.String()
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every settable key, in display order.
func (s *SettingsService) Keys() []string {
	return []string{
		keyLLMProvider, keyLLMModel, keyLLMFastModel, keyLLMBaseURL, keyLLMAPIKey,
		keyEmbedProvider, keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey,
		keyChunkSize, keyChunkOverlap, keyBatchSize, keyRateLimitDelay,
		keyKnownPageStreak, keyTopK, keyMapConcurrency, keyRequestsPerSecond,
		keyDefaultNewest, keyDefaultNumReports,
		keySourceBaseURL, keySourceListingPath,
	}
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	name, ok := apiKeyEnv[provider]
	if !ok || s.getenv == nil {
		return ""
	}
	return s.getenv(name)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
