package mcp

import (
	"context"

	"github.com/custodia-labs/reportqa/internal/core/domain"
	"github.com/custodia-labs/reportqa/internal/core/ports/driving"
)

// mockAsker is a mock implementation of driving.Asker.
type mockAsker struct {
	answer     *domain.Answer
	err        error
	question   string
	numReports int
}

func (m *mockAsker) Ask(_ context.Context, question string, numReports int) (*domain.Answer, error) {
	m.question = question
	m.numReports = numReports
	return m.answer, m.err
}

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	reports   []domain.Report
	report    *domain.Report
	err       error
	lastLimit int
	lastQuery string
}

func (m *mockCatalogService) List(_ context.Context, limit int) ([]domain.Report, error) {
	m.lastLimit = limit
	return m.reports, m.err
}

func (m *mockCatalogService) Get(_ context.Context, _ string) (*domain.Report, error) {
	return m.report, m.err
}

func (m *mockCatalogService) Search(_ context.Context, query string, limit int) ([]domain.Report, error) {
	m.lastQuery = query
	m.lastLimit = limit
	return m.reports, m.err
}

func (m *mockCatalogService) Stats(_ context.Context) (*driving.CatalogStats, error) {
	return &driving.CatalogStats{Reports: len(m.reports)}, m.err
}

func strPtr(s string) *string { return &s }
