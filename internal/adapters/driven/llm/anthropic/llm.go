// Package anthropic generates text with the Anthropic Messages API.
package anthropic

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
	"github.com/custodia-labs/reportqa/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"

	// statusOverloaded means the API is temporarily at capacity.
	statusOverloaded = 529
)

// Config configures the Messages API client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService answers prompts through /v1/messages.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string    `json:"stop_reason"`
	Error      *apiError `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewLLMService validates cfg and fills in defaults.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
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

	return &LLMService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Generate sends prompt as a single user turn.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := s.newRequest("", []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	req.StopSeqs = opts.StopWords
	return s.send(ctx, req)
}

// Chat lifts system messages into the system prompt and sends the rest.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var system []string
	var turns []driven.ChatMessage
	for _, m := range messages {
		if m.Role == driven.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return s.send(ctx, s.newRequest(strings.Join(system, "\n\n"), turns, opts))
}

func (s *LLMService) newRequest(system string, turns []driven.ChatMessage, opts driven.ChatOptions) messagesRequest {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}
	return messagesRequest{
		Model:       model,
		Messages:    alternate(turns),
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: opts.Temperature,
	}
}

// alternate merges consecutive turns of the same role. The Messages API
// rejects two user or two assistant turns in a row, which repair
// conversations can produce.
func alternate(turns []driven.ChatMessage) []messagesMessage {
	out := make([]messagesMessage, 0, len(turns))
	for _, t := range turns {
		if n := len(out); n > 0 && out[n-1].Role == t.Role {
			out[n-1].Content += "\n\n" + t.Content
			continue
		}
		out = append(out, messagesMessage{Role: t.Role, Content: t.Content})
	}
	return out
}

func (s *LLMService) send(ctx context.Context, reqBody messagesRequest) (string, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("anthropic: %w: %v", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var msgResp messagesResponse
	decodeErr := json.Unmarshal(body, &msgResp)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == statusOverloaded:
		return "", fmt.Errorf("anthropic: %w (status %d, retry after %q)",
			domain.ErrRateLimited, resp.StatusCode, resp.Header.Get("Retry-After"))
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("anthropic: %w (status %d)", domain.ErrLLMUnavailable, resp.StatusCode)
	case decodeErr != nil:
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, decodeErr)
	case msgResp.Error != nil:
		return "", fmt.Errorf("anthropic error: %s", msgResp.Error.Message)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("anthropic error (status %d): %s", resp.StatusCode, body)
	case len(msgResp.Content) == 0:
		return "", errors.New("anthropic: no response content returned")
	}

	if msgResp.StopReason == "max_tokens" {
		logger.Warn("anthropic: %s reply cut at %d tokens", reqBody.Model, reqBody.MaxTokens)
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (s *LLMService) authorize(req *http.Request) {
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

// ModelName returns the default model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without spending tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models?limit=1", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: create ping request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: %w: %v", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best effort detail
		return fmt.Errorf("anthropic: ping returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
