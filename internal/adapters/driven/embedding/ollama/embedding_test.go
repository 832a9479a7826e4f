package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

func TestEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Truncate)
		assert.Equal(t, "5m", req.KeepAlive)
		w.Write([]byte(`{"embeddings":[[0.5,0.5],[1,0]]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Dimensions: 2, KeepAlive: "5m"})

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5, 0.5}, {1, 0}}, vectors)
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"embeddings":[[1,0]]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Dimensions: 2})

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

	assert.EqualError(t, err, "ollama: got 1 embeddings for 2 inputs")
}

func TestEmbed_Busy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL})

	_, err := svc.Embed(context.Background(), "text")

	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestDefaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

func TestEmbedBatch_RejectsWrongDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"embeddings":[[1,0,0]]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Dimensions: 2})

	_, err := svc.Embed(context.Background(), "text")

	assert.ErrorContains(t, err, "returned 3 dimensions, expected 2")
}

func TestEmbed_ModelNotPulled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model not found"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Model: "mxbai-embed-large"})

	_, err := svc.Embed(context.Background(), "text")

	assert.ErrorContains(t, err, "ollama pull mxbai-embed-large")
}

func TestEmbed_Unreachable(t *testing.T) {
	svc := NewEmbeddingService(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := svc.Embed(context.Background(), "text")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
