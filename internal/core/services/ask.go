package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
	"github.com/custodia-labs/reportqa/internal/metrics"
)

// Ensure AskService implements the interface.
var _ driving.Asker = (*AskService)(nil)

// AskService answers questions from the indexed reports.
type AskService struct {
	session     *Session
	resolver    *ScopeResolver
	retriever   *Retriever
	synthesizer *Synthesizer
}

// NewAskService creates an ask service bound to the session.
func NewAskService(session *Session) *AskService {
	return &AskService{
		session:     session,
		resolver:    NewScopeResolver(session),
		retriever:   NewRetriever(session),
		synthesizer: NewSynthesizer(session),
	}
}

// Ask implements driving.Asker.
func (s *AskService) Ask(ctx context.Context, question string, numReports int) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if err := s.session.Validate(); err != nil {
		return nil, err
	}
	if numReports <= 0 {
		numReports = s.session.Settings.Pipeline.DefaultNumReports
	}

	selected, err := s.resolver.Resolve(ctx, question, numReports)
	if err != nil {
		metrics.Questions.WithLabelValues("error").Inc()
		return nil, err
	}

	ids := make([]string, len(selected))
	for i := range selected {
		ids[i] = selected[i].ID
	}

	chunks, err := s.retriever.Retrieve(ctx, question, ids, s.session.Settings.Pipeline.TopK)
	if err != nil {
		metrics.Questions.WithLabelValues("error").Inc()
		return nil, err
	}

	answer, err := s.synthesizer.Synthesize(ctx, question, chunks, selected)
	if err != nil {
		metrics.Questions.WithLabelValues("error").Inc()
		return nil, err
	}

	if answer.Found() {
		metrics.Questions.WithLabelValues("answered").Inc()
	} else {
		metrics.Questions.WithLabelValues("no_references").Inc()
	}
	return answer, nil
}
