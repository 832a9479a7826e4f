package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/reportqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driven"
)

// mockIndex is an in-memory VectorIndex. Query returns matching chunks in
// insertion order.
type mockIndex struct {
	mu       sync.Mutex
	entries  map[string]*domain.IndexEntry
	order    []string
	marked   map[string]bool
	batches  []int
	addErrs  []error
	queries  int
	queryErr []error
}

func newMockIndex() *mockIndex {
	return &mockIndex{entries: make(map[string]*domain.IndexEntry), marked: make(map[string]bool)}
}

func (m *mockIndex) AddChunks(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.addErrs) > 0 {
		err := m.addErrs[0]
		m.addErrs = m.addErrs[1:]
		if err != nil {
			return err
		}
	}
	m.batches = append(m.batches, len(chunks))
	for _, c := range chunks {
		if _, ok := m.entries[c.ID]; ok {
			continue
		}
		m.entries[c.ID] = &domain.IndexEntry{Chunk: c, Origins: []domain.ChunkOrigin{c.ChunkOrigin}}
		m.order = append(m.order, c.ID)
	}
	return nil
}

func (m *mockIndex) Attach(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		e, ok := m.entries[c.ID]
		if !ok || slices.ContainsFunc(e.Origins, func(o domain.ChunkOrigin) bool {
			return o.ReportID == c.ReportID && o.PageNumber == c.PageNumber
		}) {
			continue
		}
		e.Origins = append(e.Origins, c.ChunkOrigin)
	}
	return nil
}

func (m *mockIndex) Contains(_ context.Context, chunkID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[chunkID]
	return ok, nil
}

func (m *mockIndex) HasDocument(_ context.Context, documentURL string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marked[documentURL], nil
}

func (m *mockIndex) MarkDocument(_ context.Context, documentURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked[documentURL] = true
	return nil
}

func (m *mockIndex) Query(_ context.Context, _ string, reportIDs []string, k int) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if len(m.queryErr) > 0 {
		err := m.queryErr[0]
		m.queryErr = m.queryErr[1:]
		if err != nil {
			return nil, err
		}
	}

	scope := make(map[string]struct{}, len(reportIDs))
	for _, id := range reportIDs {
		scope[id] = struct{}{}
	}

	var out []domain.Chunk
	for _, id := range m.order {
		e := m.entries[id]
		origin, ok := e.OriginIn(scope)
		if !ok {
			continue
		}
		out = append(out, domain.Chunk{ID: id, Text: e.Chunk.Text, ChunkOrigin: origin})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (m *mockIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *mockIndex) Close() error { return nil }

// mockSource serves listing pages from memory. Pages past the last one
// return domain.ErrNoMorePages.
type mockSource struct {
	pages   [][]string
	details map[string]*driven.ReportDetail
	listed  []int
	failOn  int
}

func (m *mockSource) ListPage(_ context.Context, n int) ([]string, error) {
	m.listed = append(m.listed, n)
	if m.failOn == n {
		return nil, fmt.Errorf("listing page %d: status 503", n)
	}
	if n < 1 || n > len(m.pages) {
		return nil, domain.ErrNoMorePages
	}
	return m.pages[n-1], nil
}

func (m *mockSource) FetchDetail(_ context.Context, reportURL string) (*driven.ReportDetail, error) {
	if d, ok := m.details[reportURL]; ok {
		return d, nil
	}
	doc := reportURL + ".pdf"
	return &driven.ReportDetail{Title: "Title of " + domain.ReportIDFromURL(reportURL), DocumentURL: &doc}, nil
}

// mockLoader returns fixed page texts per document URL.
type mockLoader struct {
	docs  map[string][]string
	loads []string
}

func (m *mockLoader) Load(_ context.Context, documentURL string) ([]string, error) {
	m.loads = append(m.loads, documentURL)
	pages, ok := m.docs[documentURL]
	if !ok {
		return nil, fmt.Errorf("no document %s", documentURL)
	}
	return pages, nil
}

// mockLLM routes calls to per-test functions and records them.
type mockLLM struct {
	mu        sync.Mutex
	generate  func(prompt string) (string, error)
	chat      func(messages []driven.ChatMessage) (string, error)
	prompts   []string
	chats     [][]driven.ChatMessage
	models    []string
	closeCall int
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.models = append(m.models, opts.Model)
	fn := m.generate
	m.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(prompt)
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.chats = append(m.chats, append([]driven.ChatMessage(nil), messages...))
	m.models = append(m.models, opts.Model)
	fn := m.chat
	m.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(messages)
}

func (m *mockLLM) ModelName() string            { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { m.closeCall++; return nil }

func (m *mockLLM) generateCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.prompts {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// sequence returns a chat function that replays outputs in order. Each
// element is a string reply or an error. The last element repeats.
func sequence(outputs ...any) func([]driven.ChatMessage) (string, error) {
	var mu sync.Mutex
	i := 0
	return func([]driven.ChatMessage) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		out := outputs[min(i, len(outputs)-1)]
		i++
		if err, ok := out.(error); ok {
			return "", err
		}
		return out.(string), nil
	}
}

// mockPrompts serves short templates whose first word names the prompt.
type mockPrompts struct{}

var testPrompts = map[string]string{
	driven.PromptKeywords:        "KEYWORDS {title}|{date_published}|{abstract}",
	driven.PromptKeywordsFix:     "FIX_KEYWORDS",
	driven.PromptScopeCheck:      "SCOPE_CHECK {question}",
	driven.PromptScopeReports:    "SCOPE_REPORTS {scope}\n{reports}",
	driven.PromptQuestionReports: "QUESTION_REPORTS {question}\n{reports}",
	driven.PromptListFix:         "FIX_LIST",
	driven.PromptSummarise:       "SUMMARISE {report}|{question}|{summary_length}\n{text}",
	driven.PromptAnswer:          "ANSWER {answer_length}|{question}\n{context}",
}

func (mockPrompts) Load(name string) (string, error) {
	tmpl, ok := testPrompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return tmpl, nil
}

func (mockPrompts) Reload() {}

// sleepRecorder collects requested delays without sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

// testSession wires mocks into a session with small pipeline settings.
func testSession(llm *mockLLM) (*Session, *memory.CatalogStore, *mockIndex, *sleepRecorder) {
	catalog := memory.NewCatalogStore()
	index := newMockIndex()
	sleeper := &sleepRecorder{}

	settings := domain.DefaultAppSettings()
	settings.Pipeline.ChunkSize = 10
	settings.Pipeline.ChunkOverlap = 0
	settings.Pipeline.BatchSize = 100
	settings.Pipeline.RateLimitDelay = 20 * time.Second
	settings.LLM.Model = "reasoning"
	settings.LLM.FastModel = "fast"

	session := &Session{
		Catalog:  catalog,
		Index:    index,
		LLM:      llm,
		Prompts:  mockPrompts{},
		Settings: settings,
		Sleep:    sleeper.sleep,
	}
	return session, catalog, index, sleeper
}

// seedCatalog appends reports to catalog in order.
func seedCatalog(t *testing.T, catalog *memory.CatalogStore, reports ...domain.Report) {
	t.Helper()
	for _, r := range reports {
		if err := catalog.Append(context.Background(), r); err != nil {
			t.Fatalf("seeding catalog: %v", err)
		}
	}
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

// enrichedReport builds a report with a document and keyword enrichment.
func enrichedReport(id, title string, year int) domain.Report {
	return domain.Report{
		ID:          id,
		SourceURL:   "https://example.org/reports/" + id,
		Title:       title,
		DocumentURL: strPtr("https://example.org/files/" + id + ".pdf"),
		Enrichment:  &domain.Enrichment{Keywords: []string{"energy"}, Year: intPtr(year)},
	}
}
