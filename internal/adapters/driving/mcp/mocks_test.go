package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

type mockAnswerService struct {
	result *domain.QueryResult
	err    error
	last   domain.QueryRequest
}

func (m *mockAnswerService) Ask(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.last = req
	return m.result, m.err
}

type mockRetrievalService struct {
	results   []domain.RetrievedChunk
	err       error
	lastTopK  int
	lastScope string
}

func (m *mockRetrievalService) Search(_ context.Context, _ string, topK int, category string) ([]domain.RetrievedChunk, error) {
	m.lastTopK, m.lastScope = topK, category
	return m.results, m.err
}

type mockEngine struct {
	answer    *mockAnswerService
	retrieval *mockRetrievalService
	status    domain.EngineStatus
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		answer:    &mockAnswerService{result: &domain.QueryResult{Mode: domain.AnswerModeDirect}},
		retrieval: &mockRetrievalService{},
	}
}

func (m *mockEngine) Answer() driving.AnswerService       { return m.answer }
func (m *mockEngine) Retrieval() driving.RetrievalService { return m.retrieval }

func (m *mockEngine) Status(_ context.Context) domain.EngineStatus { return m.status }
func (m *mockEngine) Reinitialize(_ context.Context) error         { return nil }
func (m *mockEngine) ClearIndex(_ context.Context) error           { return nil }

type mockCorpusService struct {
	categories []string
	documents  []domain.DocumentInfo
	err        error
}

func (m *mockCorpusService) Categories(_ context.Context) ([]string, error) {
	return m.categories, m.err
}

func (m *mockCorpusService) Documents(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.err
}

func (m *mockCorpusService) Upload(_ context.Context, _ driving.UploadRequest) (*domain.DocumentInfo, error) {
	return nil, domain.ErrInvalidInput
}

func (m *mockCorpusService) Watch(_ context.Context, _ time.Duration, _ func()) error { return nil }
