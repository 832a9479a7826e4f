package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reportqa/internal/core/domain"
)

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, svc.Dimensions())

	svc, err = NewEmbeddingService(Config{APIKey: "k", Model: "custom"})
	require.NoError(t, err)
	assert.Equal(t, 1536, svc.Dimensions())
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"data":[{"embedding":[0,1],"index":1},{"embedding":[1,0],"index":0}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL, Dimensions: 2})
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, []string{"first", "second"}, got.Input)
	assert.Equal(t, 2, got.Dimensions)
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), nil)

	assert.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestEmbedBatch_MissingIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[{"embedding":[1,0],"index":0}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"a", "b"})

	assert.EqualError(t, err, "openai embeddings: no vector for input 1")
}

func TestEmbed_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "text")

	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestEmbedBatch_SplitsLargeBatches(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := embeddingResponse{}
		for i, text := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float64 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float64{float64(len(text))}, Index: i})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL, MaxInputs: 2})
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})

	require.NoError(t, err)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, [][]float32{{1}, {2}, {3}, {4}, {5}}, vectors)
}

func TestEmbed_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)
}
