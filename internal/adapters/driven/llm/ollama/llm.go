// Package ollama generates text with a local Ollama server.
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

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 300 * time.Second

	// DefaultNumCtx fits a catalog listing of a few hundred reports. The
	// server default of 2048 tokens silently truncates it.
	DefaultNumCtx = 16384
)

// LLMConfig configures the Ollama client.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// NumCtx is the context window requested per call.
	NumCtx int
}

// LLMService answers prompts with /api/generate and /api/chat.
type LLMService struct {
	client  *http.Client
	baseURL string
	model   string
	numCtx  int
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewLLMService fills in defaults for unset fields.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if cfg.NumCtx == 0 {
		cfg.NumCtx = DefaultNumCtx
	}

	return &LLMService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		numCtx:  cfg.NumCtx,
	}
}

// Generate runs a single prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	reqBody := generateRequest{
		Model:   s.modelFor(opts.Model),
		Prompt:  prompt,
		Options: s.options(opts.MaxTokens, opts.Temperature, opts.StopWords),
	}

	var genResp generateResponse
	if err := s.post(ctx, "/api/generate", reqBody, &genResp); err != nil {
		return "", err
	}
	return genResp.Response, nil
}

// Chat runs a conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	reqBody := chatRequest{
		Model:    s.modelFor(opts.Model),
		Messages: msgs,
		Options:  s.options(opts.MaxTokens, opts.Temperature, nil),
	}

	var chatResp chatResponse
	if err := s.post(ctx, "/api/chat", reqBody, &chatResp); err != nil {
		return "", err
	}
	return chatResp.Message.Content, nil
}

func (s *LLMService) options(maxTokens int, temperature float64, stop []string) options {
	return options{
		NumPredict:  maxTokens,
		NumCtx:      s.numCtx,
		Temperature: temperature,
		Stop:        stop,
	}
}

func (s *LLMService) modelFor(override string) string {
	if override != "" {
		return override
	}
	return s.model
}

// post sends a JSON request and decodes the reply into out. A busy server
// (429 or 503) maps to domain.ErrRateLimited; an unreachable one to
// domain.ErrLLMUnavailable.
func (s *LLMService) post(ctx context.Context, path string, in, out any) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ollama: %w: %v", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("ollama: %w (status %d)", domain.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("ollama: model not found, run 'ollama pull %s'", s.modelFor(modelOf(in)))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck // best effort detail
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func modelOf(in any) string {
	switch r := in.(type) {
	case generateRequest:
		return r.Model
	case chatRequest:
		return r.Model
	}
	return ""
}

// ModelName returns the default model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the server is up and the default model has been pulled.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: %w: %v", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: ping returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("ollama: decode model list: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == s.model || strings.TrimSuffix(m.Name, ":latest") == s.model {
			return nil
		}
	}
	return fmt.Errorf("ollama: model %s not pulled, run 'ollama pull %s'", s.model, s.model)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
