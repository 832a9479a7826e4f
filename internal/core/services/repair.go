package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
	"github.com/custodia-labs/reportqa/internal/metrics"
)

// RepairRequest describes one structured generation call.
type RepairRequest struct {
	// Operation names the call site in logs, metrics and errors.
	Operation string

	// Prompt is the initial user prompt.
	Prompt string

	// FixPrompt is appended to the conversation after a parse failure.
	FixPrompt string

	// Model selects the model. Empty uses the service default.
	Model string

	// MaxRetries is the number of repair attempts after the first call.
	MaxRetries int
}

// RepairResult is a successfully parsed value.
type RepairResult[T any] struct {
	// Value is the parsed output.
	Value T

	// Output is the raw text the value was parsed from.
	Output string

	// Attempts is the number of generation calls that were made.
	Attempts int

	// Failures holds the parse errors of earlier attempts.
	Failures []error
}

// RepairError reports that no attempt produced parseable output.
// It matches domain.ErrRepairExhausted with errors.Is.
type RepairError struct {
	// Operation is the call site.
	Operation string

	// Attempts is the number of generation calls that were made.
	Attempts int

	// LastOutput is the raw text of the final attempt.
	LastOutput string

	// Failures holds one parse error per attempt.
	Failures []error
}

// Error implements error.
func (e *RepairError) Error() string {
	reason := "no output"
	if n := len(e.Failures); n > 0 {
		reason = e.Failures[n-1].Error()
	}
	return fmt.Sprintf("%s: output repair exhausted after %d attempts: %s", e.Operation, e.Attempts, reason)
}

// Is matches domain.ErrRepairExhausted.
func (e *RepairError) Is(target error) bool {
	return target == domain.ErrRepairExhausted
}

// Unwrap exposes the parse failures.
func (e *RepairError) Unwrap() []error {
	return e.Failures
}

// Invoke runs the generate, parse, repair protocol.
//
// The first call sends req.Prompt. When the reply does not parse, the reply
// and a fix instruction (req.FixPrompt, the parser's format instructions and
// the parse error) are appended to the conversation and the model is called
// again, at most req.MaxRetries times. Rate-limited calls are retried by the
// generator and do not count as attempts. Errors other than parse failures
// are returned unchanged.
func Invoke[T any](
	ctx context.Context,
	gen *TextGenerator,
	req RepairRequest,
	parser driven.OutputParser[T],
) (RepairResult[T], error) {
	var result RepairResult[T]

	if req.MaxRetries < 0 {
		req.MaxRetries = 0
	}

	messages := []driven.ChatMessage{{Role: driven.RoleUser, Content: req.Prompt}}
	var lastOutput string

	for attempt := 0; attempt <= req.MaxRetries; attempt++ {
		result.Attempts++

		output, err := gen.Chat(ctx, req.Operation, messages, req.Model)
		if err != nil {
			return result, fmt.Errorf("%s: %w", req.Operation, err)
		}
		lastOutput = output

		value, parseErr := parser.Parse(output)
		if parseErr == nil {
			metrics.RepairAttempts.WithLabelValues(req.Operation, "parsed").Inc()
			result.Value = value
			result.Output = output
			return result, nil
		}

		metrics.RepairAttempts.WithLabelValues(req.Operation, "invalid").Inc()
		logger.Debug("%s: attempt %d unparseable: %v", req.Operation, result.Attempts, parseErr)
		result.Failures = append(result.Failures, parseErr)

		messages = append(messages,
			driven.ChatMessage{Role: driven.RoleAssistant, Content: output},
			driven.ChatMessage{Role: driven.RoleUser, Content: fixMessage(req.FixPrompt, parser.FormatInstructions(), parseErr)},
		)
	}

	metrics.RepairAttempts.WithLabelValues(req.Operation, "exhausted").Inc()
	return result, &RepairError{
		Operation:  req.Operation,
		Attempts:   result.Attempts,
		LastOutput: lastOutput,
		Failures:   result.Failures,
	}
}

func fixMessage(fixPrompt, instructions string, parseErr error) string {
	parts := make([]string, 0, 3)
	if fixPrompt != "" {
		parts = append(parts, fixPrompt)
	}
	if instructions != "" {
		parts = append(parts, instructions)
	}
	parts = append(parts, "The previous reply could not be parsed: "+parseErr.Error())
	return strings.Join(parts, "\n\n")
}

// IsRepairExhausted returns the RepairError in err's chain, if any.
func IsRepairExhausted(err error) (*RepairError, bool) {
	var repairErr *RepairError
	if errors.As(err, &repairErr) {
		return repairErr, true
	}
	return nil, false
}
