// Package ollama embeds report chunks with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
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
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 120 * time.Second
	DefaultDimensions = 768
)

// Config configures the Ollama embedding client.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the vector size the model produces. Responses of any
	// other size are rejected so a model swap cannot mix vector spaces in
	// one index.
	Dimensions int

	// KeepAlive keeps the model loaded between ingestion batches, for
	// example "10m". Empty leaves the server default.
	KeepAlive string
}

// EmbeddingService turns chunk texts into vectors.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
	keepAlive  string
}

type embedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	Truncate  bool     `json:"truncate"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewEmbeddingService fills in defaults for unset fields.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		keepAlive:  cfg.KeepAlive,
	}
}

// Embed returns the vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in input order. Inputs longer
// than the model context are truncated by the server.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(embedRequest{
		Model:     s.model,
		Input:     texts,
		Truncate:  true,
		KeepAlive: s.keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ollama embeddings: %w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var embedResp embedResponse
	_ = json.Unmarshal(body, &embedResp) //nolint:errcheck // error bodies are not always JSON

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("ollama embeddings: %w (status %d)", domain.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("ollama embeddings: model %q not found, run 'ollama pull %s'", s.model, s.model)
	case resp.StatusCode != http.StatusOK:
		detail := embedResp.Error
		if detail == "" {
			detail = string(body)
		}
		return nil, fmt.Errorf("ollama embeddings: status %d: %s", resp.StatusCode, detail)
	}

	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs", len(embedResp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, raw := range embedResp.Embeddings {
		if len(raw) != s.dimensions {
			return nil, fmt.Errorf("ollama: model %s returned %d dimensions, expected %d",
				s.model, len(raw), s.dimensions)
		}
		v := make([]float32, len(raw))
		for j, x := range raw {
			v[j] = float32(x)
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the server answers /api/tags.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: %w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: ping returned status %d", resp.StatusCode)
	}
	return nil
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
