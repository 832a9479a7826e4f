package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/reportqa/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantErr  bool
		model    string
	}{
		{
			name:     "nil settings",
			settings: nil,
			wantErr:  true,
		},
		{
			name: "ollama needs no key",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "nomic-embed-text",
			},
			model: "nomic-embed-text",
		},
		{
			name: "openai with key",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
			model: "text-embedding-3-small",
		},
		{
			name:     "openai without key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:  true,
		},
		{
			name:     "anthropic has no embeddings",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantErr:  true,
		},
		{
			name:     "unknown provider",
			settings: &domain.EmbeddingSettings{Provider: "acme"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			assert.Equal(t, tt.model, svc.ModelName())
		})
	}
}

func TestCreateEmbeddingService_Dimensions(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "mxbai-embed-large",
	})
	require.NoError(t, err)
	assert.Equal(t, 1024, svc.Dimensions())
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.LLMSettings
		wantErr  string
		model    string
	}{
		{name: "nil settings", wantErr: "no LLM settings"},
		{
			name:     "ollama",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			model:    "llama3.2",
		},
		{
			name:     "openai",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o"},
			model:    "gpt-4o",
		},
		{
			name:     "anthropic",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			model:    "claude-3-5-sonnet-latest",
		},
		{
			name:     "anthropic without key",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic},
			wantErr:  "ANTHROPIC_API_KEY",
		},
		{
			name:     "unknown provider",
			settings: &domain.LLMSettings{Provider: "acme"},
			wantErr:  "unsupported LLM provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.model, svc.ModelName())
		})
	}
}

func TestNewServices(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"}

	svc, err := NewServices(&settings)
	require.NoError(t, err)
	defer svc.Close()

	_, throttled := svc.LLM.(*ratelimit.LLM)
	assert.False(t, throttled)

	settings.Pipeline.RequestsPerSecond = 3
	svc, err = NewServices(&settings)
	require.NoError(t, err)
	_, throttled = svc.LLM.(*ratelimit.LLM)
	assert.True(t, throttled)
	_, throttled = svc.Embedding.(*ratelimit.Embedding)
	assert.True(t, throttled)
}

func TestNewServices_MissingKey(t *testing.T) {
	settings := domain.DefaultAppSettings()

	_, err := NewServices(&settings)

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestServices_CloseNil(t *testing.T) {
	s := &Services{}
	assert.NoError(t, s.Close())
}
