// Package openai embeds report chunks through the OpenAI embeddings API or
// any server speaking the same protocol.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// DefaultMaxInputs is the largest input array the embeddings endpoint
	// accepts in one request.
	DefaultMaxInputs = 2048
)

var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the embedding client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3 vectors. Zero keeps the model's
	// native size.
	Dimensions int

	// MaxInputs caps the texts sent per request. Larger batches are split.
	MaxInputs int
}

// EmbeddingService turns chunk texts into vectors.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	maxInputs  int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewEmbeddingService validates cfg and fills in defaults.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxInputs <= 0 {
		cfg.MaxInputs = DefaultMaxInputs
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = modelDimensions[cfg.Model]
	}
	if dimensions == 0 {
		dimensions = modelDimensions[DefaultModel]
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dimensions,
		maxInputs:  cfg.MaxInputs,
	}, nil
}

// Embed returns the vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in input order. Batches above
// MaxInputs are sent as several requests; the first failure aborts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.maxInputs {
		end := min(start+s.maxInputs, len(texts))
		part, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, part...)
	}
	return vectors, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{Model: s.model, Input: texts}
	if strings.HasPrefix(s.model, "text-embedding-3-") {
		reqBody.Dimensions = s.dimensions
	}

	body, status, err := s.post(ctx, "/embeddings", reqBody)
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai embeddings: decode response (status %d): %w", status, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("openai embeddings: %s (%s)", resp.Error.Message, resp.Error.Type)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("openai embeddings: status %d: %s", status, body)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("openai embeddings: no vector for input %d", i)
		}
	}
	return vectors, nil
}

// post sends a JSON body and returns the raw response. Throttling and
// server-side outages map to domain errors so callers can wait and retry.
func (s *EmbeddingService) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("openai embeddings: %w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, fmt.Errorf("openai embeddings: %w", domain.ErrRateLimited)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, resp.StatusCode, fmt.Errorf("openai embeddings: %w: status %d",
			domain.ErrEmbeddingUnavailable, resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without spending tokens.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: %w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best effort detail
		return fmt.Errorf("openai: ping returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
