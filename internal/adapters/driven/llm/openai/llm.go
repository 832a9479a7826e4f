// Package openai generates text with the OpenAI chat completions API or a
// compatible server.
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
	"github.com/custodia-labs/reportqa/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o"
	DefaultLLMTimeout = 120 * time.Second
)

// reasoningPrefixes name model families that reject temperature and
// max_tokens and take their instructions as developer messages.
var reasoningPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// LLMConfig configures the chat client.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService answers prompts with chat completions.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type chatCompletionRequest struct {
	Model               string              `json:"model"`
	Messages            []chatCompletionMsg `json:"messages"`
	MaxTokens           int                 `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                 `json:"max_completion_tokens,omitempty"`
	Temperature         *float64            `json:"temperature,omitempty"`
	Stop                []string            `json:"stop,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewLLMService validates cfg and fills in defaults.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Generate sends prompt as a single user message.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	messages := []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}
	return s.complete(ctx, messages, driven.ChatOptions{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}, opts.StopWords)
}

// Chat sends the conversation as is.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return s.complete(ctx, messages, opts, nil)
}

func (s *LLMService) complete(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	stopWords []string,
) (string, error) {
	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}
	reqBody := buildRequest(model, messages, opts, stopWords)

	body, err := s.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("openai: no response choices returned")
	}

	choice := chatResp.Choices[0]
	if choice.FinishReason == "length" {
		logger.Warn("openai: %s reply cut at the token limit", model)
	}
	return choice.Message.Content, nil
}

// buildRequest shapes the request for the model family. Reasoning models
// get max_completion_tokens, no sampling options and developer messages in
// place of system messages.
func buildRequest(
	model string, messages []driven.ChatMessage, opts driven.ChatOptions, stopWords []string,
) chatCompletionRequest {
	reasoning := isReasoningModel(model)

	msgs := make([]chatCompletionMsg, len(messages))
	for i, m := range messages {
		role := m.Role
		if reasoning && role == driven.RoleSystem {
			role = "developer"
		}
		msgs[i] = chatCompletionMsg{Role: role, Content: m.Content}
	}

	req := chatCompletionRequest{Model: model, Messages: msgs}
	if reasoning {
		req.MaxCompletionTokens = opts.MaxTokens
		return req
	}
	temperature := opts.Temperature
	req.Temperature = &temperature
	req.MaxTokens = opts.MaxTokens
	req.Stop = stopWords
	return req
}

func isReasoningModel(model string) bool {
	for _, p := range reasoningPrefixes {
		if model == p || strings.HasPrefix(model, p+"-") {
			return true
		}
	}
	return false
}

// post sends a JSON body and maps throttling and outages to domain errors.
func (s *LLMService) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("openai: %w: %v", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("openai: %w: %s", domain.ErrRateLimited, errorMessage(body))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("openai: %w: status %d: %s",
			domain.ErrLLMUnavailable, resp.StatusCode, errorMessage(body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, errorMessage(body))
	}
	return body, nil
}

// errorMessage extracts the API error message, falling back to the raw body.
func errorMessage(body []byte) string {
	var wrapper struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error != nil {
		return wrapper.Error.Message
	}
	return string(body)
}

// ModelName returns the default model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without spending tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: %w: %v", domain.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best effort detail
		return fmt.Errorf("openai: ping returned status %d: %s", resp.StatusCode, errorMessage(body))
	}
	return nil
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
