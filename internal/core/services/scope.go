package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
	"github.com/custodia-labs/reportqa/internal/logger"
	"github.com/custodia-labs/reportqa/internal/parsers/list"
)

// Repair budgets of the two selection branches.
const (
	ScopeListRetries    = 3
	QuestionListRetries = 7
)

// keyListInstructions tells the model how to repair a key list.
const keyListInstructions = "Your response should be the comma separated keys of the selected reports, " +
	"eg: `0, 3, 5`, or None when no report fits"

// KeyError reports a selection key that does not address a pool row.
type KeyError struct {
	// Key is the raw key returned by the model.
	Key string

	// PoolSize is the number of selectable reports.
	PoolSize int
}

// Error implements error.
func (e *KeyError) Error() string {
	return fmt.Sprintf("model returned key %q, want an integer in [0, %d)", e.Key, e.PoolSize)
}

// Is matches domain.ErrInvalidModelKey.
func (e *KeyError) Is(target error) bool {
	return target == domain.ErrInvalidModelKey
}

// ScopeResolver picks the reports a question should be answered from.
type ScopeResolver struct {
	session *Session
	gen     *TextGenerator
	parser  *list.Parser
}

// NewScopeResolver creates a resolver bound to the session.
func NewScopeResolver(session *Session) *ScopeResolver {
	return &ScopeResolver{
		session: session,
		gen:     session.Generator(),
		parser:  list.New(list.SingleTokenItems(), list.WithInstructions(keyListInstructions)),
	}
}

// SelectionPool returns the first numReports catalog rows that have both a
// document and an enrichment, in canonical order. A row's position in the
// pool is its selection key.
func SelectionPool(reports []domain.Report, numReports int) []domain.Report {
	var pool []domain.Report
	for i := range reports {
		if !reports[i].HasDocument() || !reports[i].IsEnriched() {
			continue
		}
		if numReports > 0 && len(pool) == numReports {
			break
		}
		pool = append(pool, reports[i])
	}
	return pool
}

// Resolve selects reports for the question.
//
// The model is first asked whether the question names particular reports.
// If it does, only reports matching that scope are selected, possibly none.
// Otherwise the model picks the reports most likely to answer the question.
// Keys that are not integers, or that fall outside the pool, are a hard error.
func (r *ScopeResolver) Resolve(ctx context.Context, question string, numReports int) ([]domain.Report, error) {
	logger.Section("Resolve scope")

	reports, err := r.session.Catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	pool := SelectionPool(reports, numReports)
	if len(pool) == 0 {
		return nil, domain.ErrEmptyCatalog
	}

	scope, err := r.checkScope(ctx, question)
	if err != nil {
		return nil, err
	}

	var keys []string
	if scope != "" {
		logger.Debug("explicit scope: %s", scope)
		keys, err = r.selectKeys(ctx, "scope_reports", driven.PromptScopeReports, map[string]string{
			"scope":   scope,
			"reports": listing(pool, false),
		}, ScopeListRetries)
	} else {
		logger.Debug("no explicit scope, selecting by question")
		keys, err = r.selectKeys(ctx, "question_reports", driven.PromptQuestionReports, map[string]string{
			"question": question,
			"reports":  listing(pool, true),
		}, QuestionListRetries)
	}
	if err != nil {
		return nil, err
	}

	selected, err := pick(pool, keys)
	if err != nil {
		return nil, err
	}
	if scope != "" && len(selected) == 0 {
		logger.Warn("no reports match the scope %q", scope)
	}

	for i := range selected {
		logger.Debug("selected %s", selected[i].Title)
	}
	return selected, nil
}

// checkScope returns the scope named by the question, or "" when there is none.
func (r *ScopeResolver) checkScope(ctx context.Context, question string) (string, error) {
	tmpl, err := loadPrompt(r.session.Prompts, driven.PromptScopeCheck)
	if err != nil {
		return "", err
	}

	reply, err := r.gen.Generate(ctx, "scope_check", renderPrompt(tmpl, map[string]string{
		"question": question,
	}), r.session.Settings.LLM.Model)
	if err != nil {
		return "", fmt.Errorf("scope check: %w", err)
	}
	return parseScope(reply), nil
}

// parseScope normalises a scope-check reply. "None" in any case, with or
// without quotes and trailing punctuation, means no scope.
func parseScope(reply string) string {
	scope := strings.TrimSpace(reply)
	bare := strings.Trim(scope, "\"'`.!")
	if bare == "" || strings.EqualFold(bare, "none") {
		return ""
	}
	return scope
}

func (r *ScopeResolver) selectKeys(
	ctx context.Context,
	operation string,
	promptName string,
	vars map[string]string,
	retries int,
) ([]string, error) {
	tmpl, err := loadPrompt(r.session.Prompts, promptName)
	if err != nil {
		return nil, err
	}
	fix, err := loadPrompt(r.session.Prompts, driven.PromptListFix)
	if err != nil {
		return nil, err
	}

	result, err := Invoke(ctx, r.gen, RepairRequest{
		Operation:  operation,
		Prompt:     renderPrompt(tmpl, vars),
		FixPrompt:  fix,
		Model:      r.session.Settings.LLM.ListModel(),
		MaxRetries: retries,
	}, r.parser)
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// listing renders the pool as "key: title" lines, or "key:year:title" lines
// when withYear is set.
func listing(pool []domain.Report, withYear bool) string {
	var b strings.Builder
	for i := range pool {
		if withYear {
			year := "unknown"
			if y := pool[i].PublishedYear(); y > 0 {
				year = strconv.Itoa(y)
			}
			fmt.Fprintf(&b, "%d:%s:%s\n", i, year, pool[i].Title)
			continue
		}
		fmt.Fprintf(&b, "%d: %s\n", i, pool[i].Title)
	}
	return b.String()
}

// pick maps keys to pool rows, in key order, collapsing repeats.
func pick(pool []domain.Report, keys []string) ([]domain.Report, error) {
	seen := make(map[int]struct{}, len(keys))
	selected := make([]domain.Report, 0, len(keys))
	for _, key := range keys {
		n, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || n < 0 || n >= len(pool) {
			return nil, &KeyError{Key: key, PoolSize: len(pool)}
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		selected = append(selected, pool[n])
	}
	return selected, nil
}
