// Package ai builds the LLM and embedding adapters named in the settings
// and puts a shared request limiter in front of them.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/reportqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/reportqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/reportqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/reportqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/reportqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/reportqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

const pingTimeout = 5 * time.Second

// ollamaKeepAlive keeps the embedding model resident across ingestion
// batches, which are separated by the rate limit delay.
const ollamaKeepAlive = "10m"

// apiKeyEnv names the variable each cloud provider's key is read from.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

var llmBuilders = map[domain.AIProvider]func(*domain.LLMSettings) (driven.LLMService, error){
	domain.AIProviderOllama: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.LLMSettings) (driven.LLMService, error) {
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
	domain.AIProviderAnthropic: func(s *domain.LLMSettings) (driven.LLMService, error) {
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

// embeddingBuilders receive the vector size from domain.EmbeddingDimensions,
// zero for models it does not list, leaving the adapter's default.
var embeddingBuilders = map[domain.AIProvider]func(*domain.EmbeddingSettings, int) (driven.EmbeddingService, error){
	domain.AIProviderOllama: func(s *domain.EmbeddingSettings, dims int) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: dims,
			KeepAlive:  ollamaKeepAlive,
		}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.EmbeddingSettings, dims int) (driven.EmbeddingService, error) {
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: dims,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

// Services are the AI adapters of one session.
type Services struct {
	LLM       driven.LLMService
	Embedding driven.EmbeddingService
}

// NewServices builds both adapters. They share one limiter when
// pipeline.requests_per_second is set.
func NewServices(settings *domain.AppSettings) (*Services, error) {
	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		return nil, err
	}
	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, errors.Join(err, llm.Close())
	}

	limiter := ratelimit.NewLimiter(settings.Pipeline.RequestsPerSecond)
	return &Services{
		LLM:       ratelimit.WrapLLM(llm, limiter),
		Embedding: ratelimit.WrapEmbedding(embedding, limiter),
	}, nil
}

// CreateLLMService returns an error wrapping domain.ErrLLMUnavailable when
// the provider is unknown or lacks its API key.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no LLM settings", domain.ErrLLMUnavailable)
	}
	build, ok := llmBuilders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrLLMUnavailable, settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: %s", domain.ErrLLMUnavailable, missingKey(settings.Provider, "llm"))
	}
	return build(settings)
}

// CreateEmbeddingService returns an error wrapping
// domain.ErrEmbeddingUnavailable when the provider cannot embed or lacks
// its API key.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: no embedding settings", domain.ErrEmbeddingUnavailable)
	}
	build, ok := embeddingBuilders[settings.Provider]
	switch {
	case !ok && settings.Provider.IsValid():
		return nil, fmt.Errorf("%w: %s does not support embeddings, use ollama or openai",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	case !ok:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s",
			domain.ErrEmbeddingUnavailable, settings.Provider)
	case !settings.IsConfigured():
		return nil, fmt.Errorf("%w: %s", domain.ErrEmbeddingUnavailable, missingKey(settings.Provider, "embedding"))
	}
	return build(settings, domain.EmbeddingDimensions()[settings.Model])
}

func missingKey(p domain.AIProvider, section string) string {
	return fmt.Sprintf("%s needs an API key. Set %s or run 'reportqa settings set %s.api_key <key>'",
		p, apiKeyEnv[p], section)
}

// Ping checks both providers answer within pingTimeout.
func (s *Services) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.LLM.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if err := s.Embedding.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// Close closes both adapters. Nil adapters are skipped.
func (s *Services) Close() error {
	var errs []error
	for _, c := range []interface{ Close() error }{s.Embedding, s.LLM} {
		if c != nil {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
