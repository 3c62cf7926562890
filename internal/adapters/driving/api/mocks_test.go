package api

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

type mockAnswer struct {
	mu     sync.Mutex
	result *domain.QueryResult
	err    error
	last   domain.QueryRequest
}

func (m *mockAnswer) Ask(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	if req.Question == "" {
		return nil, domain.ErrInvalidInput
	}
	return m.result, nil
}

type mockRetrieval struct{}

func (mockRetrieval) Search(_ context.Context, _ string, _ int, _ string) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

type mockEngine struct {
	answer   *mockAnswer
	status   domain.EngineStatus
	clearErr error
	cleared  int
}

func (m *mockEngine) Answer() driving.AnswerService       { return m.answer }
func (m *mockEngine) Retrieval() driving.RetrievalService { return mockRetrieval{} }

func (m *mockEngine) Status(_ context.Context) domain.EngineStatus { return m.status }
func (m *mockEngine) Reinitialize(_ context.Context) error         { return nil }

func (m *mockEngine) ClearIndex(_ context.Context) error {
	m.cleared++
	return m.clearErr
}

type mockIngest struct {
	report *domain.IngestReport
	err    error
}

func (m *mockIngest) Ingest(_ context.Context) (*domain.IngestReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockIngest) Status() driving.IngestStatus { return driving.IngestStatus{} }

type mockCorpus struct {
	categories []string
	documents  []domain.DocumentInfo
	err        error
	uploaded   []driving.UploadRequest
	content    []string
	uploadErr  error
}

func (m *mockCorpus) Categories(_ context.Context) ([]string, error) { return m.categories, m.err }

func (m *mockCorpus) Documents(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.err
}

func (m *mockCorpus) Upload(_ context.Context, req driving.UploadRequest) (*domain.DocumentInfo, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	m.uploaded = append(m.uploaded, req)
	m.content = append(m.content, string(data))
	category := req.Category
	if category == "" {
		category = domain.GeneralCategory
	}
	version := max(req.Version, 1)
	return &domain.DocumentInfo{
		Filename:  req.Filename,
		Category:  category,
		Version:   version,
		Path:      "source_documents/" + category + "/" + req.Filename,
		SizeBytes: int64(len(data)),
	}, nil
}

func (m *mockCorpus) Watch(_ context.Context, _ time.Duration, _ func()) error { return nil }
