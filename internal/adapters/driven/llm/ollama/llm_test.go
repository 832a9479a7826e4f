package ollama

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

func TestGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"response":"{\"keywords\": [\"oil\"]}","done":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "llama3.2"})

	out, err := svc.Generate(context.Background(), "extract", driven.GenerateOptions{MaxTokens: 64})

	require.NoError(t, err)
	assert.Equal(t, `{"keywords": ["oil"]}`, out)
	assert.Equal(t, "llama3.2", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, 64, got.Options.NumPredict)
	assert.Equal(t, DefaultNumCtx, got.Options.NumCtx)
}

func TestGenerate_Busy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL})

	_, err := svc.Generate(context.Background(), "q", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestChat_UsesOverrideModel(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"message":{"role":"assistant","content":"yes"},"done":true}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "llama3.2"})

	out, err := svc.Chat(context.Background(),
		[]driven.ChatMessage{{Role: driven.RoleUser, Content: "in scope?"}},
		driven.ChatOptions{Model: "qwen2.5"})

	require.NoError(t, err)
	assert.Equal(t, "yes", out)
	assert.Equal(t, "qwen2.5", got.Model)
}

func TestPing_Unreachable(t *testing.T) {
	svc := NewLLMService(LLMConfig{BaseURL: "http://127.0.0.1:1"})

	assert.Error(t, svc.Ping(context.Background()))
}

func TestPing_RequiresPulledModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"qwen2.5:7b"}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	assert.NoError(t, NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "llama3.2"}).Ping(context.Background()))
	assert.NoError(t, NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "qwen2.5:7b"}).Ping(context.Background()))

	err := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "mistral"}).Ping(context.Background())
	assert.ErrorContains(t, err, "ollama pull mistral")
}

func TestGenerate_ModelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "llama3.2"})

	_, err := svc.Generate(context.Background(), "q", driven.GenerateOptions{Model: "qwen2.5"})

	assert.ErrorContains(t, err, "ollama pull qwen2.5")
}

func TestGenerate_UnreachableIsUnavailable(t *testing.T) {
	svc := NewLLMService(LLMConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := svc.Generate(context.Background(), "q", driven.GenerateOptions{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
