package domain

import (
	"fmt"
	"time"
)

// AIProvider names a backend for embeddings, text generation or both.
type AIProvider string

const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// providerTraits is what the rest of the code needs to know about a provider.
type providerTraits struct {
	description    string
	needsKey       bool
	llmModel       string
	embeddingModel string // empty when the provider has no embedding API
}

// providers is ordered for display by AllLLMProviders.
var providers = []struct {
	id AIProvider
	providerTraits
}{
	{AIProviderOllama, providerTraits{"Ollama (local)", false, "llama3.2", "nomic-embed-text"}},
	{AIProviderOpenAI, providerTraits{"OpenAI (cloud)", true, "gpt-4o", "text-embedding-3-small"}},
	{AIProviderAnthropic, providerTraits{"Anthropic (cloud)", true, "claude-3-5-sonnet-latest", ""}},
}

func (p AIProvider) traits() (providerTraits, bool) {
	for _, entry := range providers {
		if entry.id == p {
			return entry.providerTraits, true
		}
	}
	return providerTraits{}, false
}

// IsValid reports whether p is a known provider.
func (p AIProvider) IsValid() bool {
	_, ok := p.traits()
	return ok
}

// RequiresAPIKey reports whether p is a cloud API needing a key.
func (p AIProvider) RequiresAPIKey() bool {
	t, _ := p.traits()
	return t.needsKey
}

// SupportsEmbeddings reports whether p can embed text.
func (p AIProvider) SupportsEmbeddings() bool {
	t, _ := p.traits()
	return t.embeddingModel != ""
}

func (p AIProvider) String() string {
	return string(p)
}

// Description is the label shown in the settings wizard.
func (p AIProvider) Description() string {
	if t, ok := p.traits(); ok {
		return t.description
	}
	return "Unknown"
}

// EmbeddingSettings selects the model that embeds chunks and questions.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL overrides the provider endpoint.
	BaseURL string
	APIKey  string
}

// IsConfigured reports whether the provider can embed and has its key.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.SupportsEmbeddings() && (!e.Provider.RequiresAPIKey() || e.APIKey != "")
}

// LLMSettings selects the models used by the pipeline.
type LLMSettings struct {
	Provider AIProvider

	// Model answers scope checks, summaries and final answers.
	Model string

	// FastModel handles list selection and keyword extraction. Empty
	// falls back to Model.
	FastModel string

	// BaseURL overrides the provider endpoint.
	BaseURL string
	APIKey  string
}

// IsConfigured reports whether the provider is known and has its key.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.IsValid() && (!l.Provider.RequiresAPIKey() || l.APIKey != "")
}

// ListModel returns the model used for structured list and keyword output.
func (l LLMSettings) ListModel() string {
	if l.FastModel != "" {
		return l.FastModel
	}
	return l.Model
}

// PipelineSettings tunes ingestion and question answering.
type PipelineSettings struct {
	// ChunkSize and ChunkOverlap are measured in characters.
	ChunkSize    int
	ChunkOverlap int

	// BatchSize is the number of chunks committed to the index at once.
	BatchSize int

	// RateLimitDelay is the fixed wait before retrying a rate-limited call.
	RateLimitDelay time.Duration

	// KnownPageStreak stops a crawl after this many consecutive listing
	// pages without a new report.
	KnownPageStreak int

	// TopK is the number of passages retrieved per question.
	TopK int

	// MapConcurrency bounds concurrent summary calls.
	MapConcurrency int

	// RequestsPerSecond throttles AI provider calls. Zero disables it.
	RequestsPerSecond float64

	DefaultNewest     int // update size when none is given
	DefaultNumReports int // scope pool size when none is given
}

// Validate rejects values the pipeline cannot run with.
func (p PipelineSettings) Validate() error {
	positive := []struct {
		key   string
		value int
	}{
		{"pipeline.chunk_size", p.ChunkSize},
		{"pipeline.batch_size", p.BatchSize},
		{"pipeline.top_k", p.TopK},
		{"pipeline.map_concurrency", p.MapConcurrency},
		{"pipeline.known_page_streak", p.KnownPageStreak},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidInput, f.key, f.value)
		}
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("%w: pipeline.chunk_overlap must be below chunk_size (%d), got %d",
			ErrInvalidInput, p.ChunkSize, p.ChunkOverlap)
	}
	return nil
}

// SourceSettings locates the report listing.
type SourceSettings struct {
	// BaseURL is the site root that hosts the listing and the reports.
	BaseURL string

	// ListingPath is paginated with a page query parameter.
	ListingPath string
}

// AppSettings is the whole configuration.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Pipeline  PipelineSettings
	Source    SourceSettings
}

// DefaultAppSettings uses OpenAI for both models and the public IEA site.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    DefaultEmbeddingModels()[AIProviderOpenAI],
		},
		LLM: LLMSettings{
			Provider:  AIProviderOpenAI,
			Model:     DefaultLLMModels()[AIProviderOpenAI],
			FastModel: "gpt-4o-mini",
		},
		Pipeline: PipelineSettings{
			ChunkSize:         1500,
			ChunkOverlap:      150,
			BatchSize:         100,
			RateLimitDelay:    20 * time.Second,
			KnownPageStreak:   1,
			TopK:              5,
			MapConcurrency:    4,
			DefaultNewest:     50,
			DefaultNumReports: 100,
		},
		Source: SourceSettings{
			BaseURL:     "https://www.iea.org",
			ListingPath: "/analysis",
		},
	}
}

// AllLLMProviders lists every provider, in wizard order.
func AllLLMProviders() []AIProvider {
	out := make([]AIProvider, len(providers))
	for i, entry := range providers {
		out[i] = entry.id
	}
	return out
}

// DefaultEmbeddingModels maps each embedding-capable provider to its
// default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	out := make(map[AIProvider]string)
	for _, entry := range providers {
		if entry.embeddingModel != "" {
			out[entry.id] = entry.embeddingModel
		}
	}
	return out
}

// DefaultLLMModels maps each provider to its default generation model.
func DefaultLLMModels() map[AIProvider]string {
	out := make(map[AIProvider]string, len(providers))
	for _, entry := range providers {
		out[entry.id] = entry.llmModel
	}
	return out
}

// EmbeddingDimensions gives the vector size of well-known models. Models
// not listed use the provider's own default.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
