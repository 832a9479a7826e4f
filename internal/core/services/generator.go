package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
	"github.com/custodia-labs/reportqa/internal/metrics"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRateLimitRetry runs fn until it succeeds or fails with an error other
// than domain.ErrRateLimited. Each rate-limited attempt waits delay first.
// Attempts are unbounded.
func withRateLimitRetry[T any](
	ctx context.Context,
	sleep Sleeper,
	delay time.Duration,
	operation string,
	fn func() (T, error),
) (T, error) {
	for {
		value, err := fn()
		if err == nil || !errors.Is(err, domain.ErrRateLimited) {
			return value, err
		}

		metrics.RateLimitWaits.WithLabelValues(operation).Inc()
		logger.Warn("%s rate limited, retrying in %s", operation, delay)

		if err := sleep(ctx, delay); err != nil {
			var zero T
			return zero, err
		}
	}
}

// TextGenerator wraps an LLMService with rate-limit handling.
type TextGenerator struct {
	llm   driven.LLMService
	sleep Sleeper
	delay time.Duration
}

// NewTextGenerator creates a generator. A nil sleep uses SleepContext.
func NewTextGenerator(llm driven.LLMService, delay time.Duration, sleep Sleeper) *TextGenerator {
	if sleep == nil {
		sleep = SleepContext
	}
	return &TextGenerator{llm: llm, sleep: sleep, delay: delay}
}

// Generate completes a single prompt with the given model at temperature 0.
func (g *TextGenerator) Generate(ctx context.Context, operation, prompt, model string) (string, error) {
	if g.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	return withRateLimitRetry(ctx, g.sleep, g.delay, operation, func() (string, error) {
		return g.llm.Generate(ctx, prompt, driven.GenerateOptions{Model: model, Temperature: 0})
	})
}

// Chat continues a conversation with the given model at temperature 0.
func (g *TextGenerator) Chat(
	ctx context.Context,
	operation string,
	messages []driven.ChatMessage,
	model string,
) (string, error) {
	if g.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	return withRateLimitRetry(ctx, g.sleep, g.delay, operation, func() (string, error) {
		return g.llm.Chat(ctx, messages, driven.ChatOptions{Model: model, Temperature: 0})
	})
}

// loadPrompt loads a template from the store.
func loadPrompt(store driven.PromptStore, name string) (string, error) {
	if store == nil {
		return "", fmt.Errorf("prompt %s: no prompt store", name)
	}
	tmpl, err := store.Load(name)
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", name, err)
	}
	return tmpl, nil
}

// renderPrompt substitutes {name} placeholders in tmpl.
// Unknown placeholders are left untouched.
func renderPrompt(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
