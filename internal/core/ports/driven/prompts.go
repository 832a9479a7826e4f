package driven

// PromptStore provides access to LLM prompt templates.
// Templates use {name} placeholders that callers substitute.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Implementations fall back to a built-in default when no override exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptKeywords extracts keywords and a year from report metadata.
	// Placeholders: {title}, {date_published}, {abstract}.
	PromptKeywords = "keywords"

	// PromptKeywordsFix asks the model to return the keyword object again.
	PromptKeywordsFix = "keywords_fix"

	// PromptScopeCheck asks whether a question names specific reports.
	// Placeholders: {question}.
	PromptScopeCheck = "scope_check"

	// PromptScopeReports selects reports matching a named scope.
	// Placeholders: {scope}, {reports}.
	PromptScopeReports = "scope_reports"

	// PromptQuestionReports selects reports that may answer a question.
	// Placeholders: {question}, {reports}.
	PromptQuestionReports = "question_reports"

	// PromptListFix asks the model to return a bare comma-separated key list.
	PromptListFix = "list_fix"

	// PromptSummarise summarises one passage with respect to a question.
	// Placeholders: {text}, {report}, {question}, {summary_length}.
	PromptSummarise = "summarise"

	// PromptAnswer composes the final answer from relevant sources.
	// Placeholders: {context}, {answer_length}, {question}.
	PromptAnswer = "answer"
)

// PromptNames returns every well-known prompt name.
func PromptNames() []string {
	return []string{
		PromptKeywords,
		PromptKeywordsFix,
		PromptScopeCheck,
		PromptScopeReports,
		PromptQuestionReports,
		PromptListFix,
		PromptSummarise,
		PromptAnswer,
	}
}
