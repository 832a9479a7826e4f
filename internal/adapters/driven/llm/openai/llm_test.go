package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})

	assert.Error(t, err)
}

func TestGenerate_SendsModelOverride(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"[\"1\", \"3\"]"}}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := svc.Generate(context.Background(), "pick reports", driven.GenerateOptions{Model: "gpt-4o-mini"})

	require.NoError(t, err)
	assert.Equal(t, `["1", "3"]`, out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "pick reports", got.Messages[0].Content)
	require.NotNil(t, got.Temperature)
	assert.Zero(t, *got.Temperature)
	assert.Zero(t, got.MaxCompletionTokens)
}

func TestChat_ReasoningModelRequestShape(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"choices":[{"message":{"content":"yes"},"finish_reason":"stop"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "o3-mini"})
	require.NoError(t, err)

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "answer briefly"},
		{Role: driven.RoleUser, Content: "is this in scope?"},
	}, driven.ChatOptions{MaxTokens: 200})

	require.NoError(t, err)
	assert.Equal(t, "yes", out)
	assert.NotContains(t, raw, "temperature")
	assert.NotContains(t, raw, "max_tokens")
	assert.EqualValues(t, 200, raw["max_completion_tokens"])
	messages := raw["messages"].([]any)
	assert.Equal(t, "developer", messages[0].(map[string]any)["role"])
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o1"))
	assert.True(t, isReasoningModel("o3-mini"))
	assert.True(t, isReasoningModel("gpt-5-mini"))
	assert.False(t, isReasoningModel("gpt-4o"))
	assert.False(t, isReasoningModel("o1x"))
}

func TestGenerate_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "q", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`boom`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "q", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "status 500")
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "q", driven.GenerateOptions{})

	assert.EqualError(t, err, "openai: no response choices returned")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	good, err := NewLLMService(LLMConfig{APIKey: "good", BaseURL: srv.URL})
	require.NoError(t, err)
	bad, err := NewLLMService(LLMConfig{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)

	assert.NoError(t, good.Ping(context.Background()))
	assert.Error(t, bad.Ping(context.Background()))
}
