package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
	"github.com/custodia-labs/reportqa/internal/metrics"
)

// Target lengths passed to the summary and answer prompts.
const (
	SummaryLength = "around 60 words"
	AnswerLength  = "around 100 words"
)

// IrrelevantMarkers are phrases that mark a passage summary as irrelevant.
var IrrelevantMarkers = []string{"not applicable", "not relevant", "does not provide"}

// IsIrrelevant reports whether a summary contains an irrelevance marker,
// ignoring case.
func IsIrrelevant(summary string) bool {
	lower := strings.ToLower(summary)
	for _, m := range IrrelevantMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Synthesizer turns retrieved passages into a cited answer.
type Synthesizer struct {
	session *Session
	gen     *TextGenerator
}

// NewSynthesizer creates a synthesizer bound to the session.
func NewSynthesizer(session *Session) *Synthesizer {
	return &Synthesizer{session: session, gen: session.Generator()}
}

// Synthesize summarises each chunk with respect to the question, drops
// irrelevant summaries and composes an answer from the rest. When nothing
// relevant remains, no answer is composed. inScope is reported back as the
// list of checked reports.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	question string,
	chunks []domain.Chunk,
	inScope []domain.Report,
) (*domain.Answer, error) {
	logger.Section("Synthesize answer")

	answer := &domain.Answer{Question: question, CheckedReports: inScope}

	summaries, err := s.summarise(ctx, question, chunks)
	if err != nil {
		return nil, err
	}

	for i, summary := range summaries {
		if IsIrrelevant(summary) {
			metrics.SummariesFiltered.Inc()
			logger.Debug("dropped summary of %s page %d", chunks[i].ReportID, chunks[i].PageNumber)
			continue
		}
		answer.Citations = append(answer.Citations, domain.Citation{
			Summary:  strings.TrimSpace(summary),
			Title:    chunks[i].Title,
			Page:     chunks[i].PageNumber,
			Link:     chunks[i].SourceURL,
			ReportID: chunks[i].ReportID,
		})
	}

	if !answer.Found() {
		return answer, nil
	}

	text, err := s.compose(ctx, question, answer.Citations)
	if err != nil {
		return nil, err
	}
	answer.Text = strings.TrimSpace(text)
	return answer, nil
}

// summarise runs one summary call per chunk with bounded concurrency.
// Results keep the order of chunks.
func (s *Synthesizer) summarise(ctx context.Context, question string, chunks []domain.Chunk) ([]string, error) {
	tmpl, err := loadPrompt(s.session.Prompts, driven.PromptSummarise)
	if err != nil {
		return nil, err
	}

	limit := s.session.Settings.Pipeline.MapConcurrency
	if limit < 1 {
		limit = 1
	}

	summaries := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range chunks {
		chunk := chunks[i]
		g.Go(func() error {
			prompt := renderPrompt(tmpl, map[string]string{
				"text":           chunk.Text,
				"report":         chunk.Title,
				"question":       question,
				"summary_length": SummaryLength,
			})
			out, err := s.gen.Generate(gctx, "summarise", prompt, s.session.Settings.LLM.Model)
			if err != nil {
				return fmt.Errorf("summarise %s page %d: %w", chunk.ReportID, chunk.PageNumber, err)
			}
			summaries[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Synthesizer) compose(ctx context.Context, question string, citations []domain.Citation) (string, error) {
	tmpl, err := loadPrompt(s.session.Prompts, driven.PromptAnswer)
	if err != nil {
		return "", err
	}

	prompt := renderPrompt(tmpl, map[string]string{
		"context":       domain.FormatSources(citations),
		"answer_length": AnswerLength,
		"question":      question,
	})
	text, err := s.gen.Generate(ctx, "answer", prompt, s.session.Settings.LLM.Model)
	if err != nil {
		return "", fmt.Errorf("compose answer: %w", err)
	}
	return text, nil
}
