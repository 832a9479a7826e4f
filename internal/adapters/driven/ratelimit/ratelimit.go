// Package ratelimit throttles calls to AI providers on the client side.
//
// The decorators pace requests with a token bucket so that long ingestion
// runs stay under provider quotas. Quota refusals that still happen are
// reported by the wrapped service as domain.ErrRateLimited.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// Ensure decorators implement the interfaces.
var (
	_ driven.LLMService       = (*LLM)(nil)
	_ driven.EmbeddingService = (*Embedding)(nil)
)

// NewLimiter returns a limiter allowing perSecond requests with a burst of one.
// A non-positive rate returns nil, which disables throttling.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// LLM paces calls to an LLMService.
type LLM struct {
	next    driven.LLMService
	limiter *rate.Limiter
}

// WrapLLM decorates next. A nil limiter returns next unchanged.
func WrapLLM(next driven.LLMService, limiter *rate.Limiter) driven.LLMService {
	if limiter == nil {
		return next
	}
	return &LLM{next: next, limiter: limiter}
}

// Generate waits for a token, then delegates.
func (l *LLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := wait(ctx, l.limiter); err != nil {
		return "", err
	}
	return l.next.Generate(ctx, prompt, opts)
}

// Chat waits for a token, then delegates.
func (l *LLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := wait(ctx, l.limiter); err != nil {
		return "", err
	}
	return l.next.Chat(ctx, messages, opts)
}

// ModelName delegates.
func (l *LLM) ModelName() string { return l.next.ModelName() }

// Ping delegates without waiting.
func (l *LLM) Ping(ctx context.Context) error { return l.next.Ping(ctx) }

// Close delegates.
func (l *LLM) Close() error { return l.next.Close() }

// Embedding paces calls to an EmbeddingService.
type Embedding struct {
	next    driven.EmbeddingService
	limiter *rate.Limiter
}

// WrapEmbedding decorates next. A nil limiter returns next unchanged.
func WrapEmbedding(next driven.EmbeddingService, limiter *rate.Limiter) driven.EmbeddingService {
	if limiter == nil {
		return next
	}
	return &Embedding{next: next, limiter: limiter}
}

// Embed waits for a token, then delegates.
func (e *Embedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := wait(ctx, e.limiter); err != nil {
		return nil, err
	}
	return e.next.Embed(ctx, text)
}

// EmbedBatch waits for a token, then delegates. A batch costs one token.
func (e *Embedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := wait(ctx, e.limiter); err != nil {
		return nil, err
	}
	return e.next.EmbedBatch(ctx, texts)
}

// Dimensions delegates.
func (e *Embedding) Dimensions() int { return e.next.Dimensions() }

// ModelName delegates.
func (e *Embedding) ModelName() string { return e.next.ModelName() }

// Ping delegates without waiting.
func (e *Embedding) Ping(ctx context.Context) error { return e.next.Ping(ctx) }

// Close delegates.
func (e *Embedding) Close() error { return e.next.Close() }
