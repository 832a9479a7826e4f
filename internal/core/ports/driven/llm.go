package driven

import "context"

// LLMService generates text for scope checks, report selection, keyword
// enrichment, summaries and answers. Backends are OpenAI, Anthropic and
// Ollama. Capacity refusals wrap domain.ErrRateLimited so callers can
// wait and retry; outages wrap domain.ErrLLMUnavailable.
type LLMService interface {
	// Generate completes a single prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat continues a conversation. Output repair uses it to show the
	// model its previous reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName is the model used when the options leave Model empty.
	ModelName() string

	// Ping checks the provider answers without spending tokens where the
	// API allows it.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions tune one Generate call. Zero values use the backend's
// defaults.
type GenerateOptions struct {
	// Model overrides ModelName for this call.
	Model       string
	MaxTokens   int
	Temperature float64

	// StopWords end generation early. Not every model honours them.
	StopWords []string
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOptions tune one Chat call.
type ChatOptions struct {
	// Model overrides ModelName for this call.
	Model       string
	MaxTokens   int
	Temperature float64
}
