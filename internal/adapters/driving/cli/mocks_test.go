package cli

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

type mockEngine struct {
	answer    *mockAnswer
	retrieval *mockRetrieval
	status    domain.EngineStatus
	reinitErr error
	clearErr  error
	reinits   int
	cleared   bool
}

func (m *mockEngine) Answer() driving.AnswerService       { return m.answer }
func (m *mockEngine) Retrieval() driving.RetrievalService { return m.retrieval }

func (m *mockEngine) Status(_ context.Context) domain.EngineStatus { return m.status }

func (m *mockEngine) Reinitialize(_ context.Context) error {
	m.reinits++
	return m.reinitErr
}

func (m *mockEngine) ClearIndex(_ context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = true
	return nil
}

type mockAnswer struct {
	result  *domain.QueryResult
	err     error
	lastReq domain.QueryRequest
}

func (m *mockAnswer) Ask(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockRetrieval struct {
	results      []domain.RetrievedChunk
	err          error
	lastQuery    string
	lastTopK     int
	lastCategory string
}

func (m *mockRetrieval) Search(
	_ context.Context, query string, topK int, category string,
) ([]domain.RetrievedChunk, error) {
	m.lastQuery, m.lastTopK, m.lastCategory = query, topK, category
	return m.results, m.err
}

type mockIngest struct {
	mu     sync.Mutex
	report *domain.IngestReport
	err    error
	status driving.IngestStatus
	calls  int
}

func (m *mockIngest) Ingest(_ context.Context) (*domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.report, m.err
}

func (m *mockIngest) Status() driving.IngestStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

type mockCorpus struct {
	categories []string
	documents  []domain.DocumentInfo
	err        error
	uploaded   driving.UploadRequest
	body       string
	watchErr   error
}

func (m *mockCorpus) Categories(_ context.Context) ([]string, error) {
	return m.categories, m.err
}

func (m *mockCorpus) Documents(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.err
}

func (m *mockCorpus) Upload(_ context.Context, req driving.UploadRequest) (*domain.DocumentInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	m.uploaded, m.body = req, string(data)
	category := req.Category
	if category == "" {
		category = domain.GeneralCategory
	}
	return &domain.DocumentInfo{
		Filename: req.Filename,
		Category: category,
		Version:  req.Version,
		Path:     "source_documents/" + req.Filename,
	}, nil
}

// Watch fires fn once, then reports cancellation.
func (m *mockCorpus) Watch(_ context.Context, _ time.Duration, fn func()) error {
	if m.watchErr != nil {
		return m.watchErr
	}
	fn()
	return context.Canceled
}

type mockSettings struct {
	settings    domain.AppSettings
	set         map[string]string
	setErr      error
	validateErr error
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettings) Keys() []string {
	return []string{"llm.model", "retrieval.top_k"}
}

func (m *mockSettings) Validate() error { return m.validateErr }

func (m *mockSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	engine    *mockEngine
	answer    *mockAnswer
	retrieval *mockRetrieval
	ingest    *mockIngest
	corpus    *mockCorpus
	settings  *mockSettings
}

// setupTestServices installs fresh mocks and resets flag state. The returned
// function restores the previous services.
func setupTestServices() (*testServices, func()) {
	oldEngine, oldIngest, oldCorpus, oldSettings := engine, ingestService, corpusService, settingsService
	oldServer, oldClose, oldBuilder, oldPrompt := serverSettings, closeServices, builder, promptInput

	ts := &testServices{
		answer: &mockAnswer{result: &domain.QueryResult{
			Answer: "Twenty days.",
			Mode:   domain.AnswerModeRetrieval,
			Sources: []domain.Source{
				{OriginPath: "source_documents/HR/leave_v2.pdf", Page: 3, Category: "HR", Version: 2, IsLatest: true},
				{OriginPath: "source_documents/HR/leave_v1.pdf", Page: 3, Category: "HR", Version: 1},
			},
		}},
		retrieval: &mockRetrieval{},
		ingest:    &mockIngest{report: &domain.IngestReport{Documents: 2, Chunks: 7}},
		corpus:    &mockCorpus{},
		settings:  &mockSettings{settings: domain.DefaultAppSettings()},
	}
	ts.engine = &mockEngine{answer: ts.answer, retrieval: ts.retrieval}

	engine = ts.engine
	ingestService = ts.ingest
	corpusService = ts.corpus
	settingsService = ts.settings
	closeServices = nil
	builder = nil
	resetFlags()

	return ts, func() {
		engine, ingestService, corpusService, settingsService = oldEngine, oldIngest, oldCorpus, oldSettings
		serverSettings, closeServices, builder, promptInput = oldServer, oldClose, oldBuilder, oldPrompt
		rootCmd.SetArgs(nil)
		resetFlags()
	}
}

func resetFlags() {
	opts = Options{}
	askCategory, askJSON = "", false
	searchCategory, searchLimit, searchJSON = "", domain.DefaultTopK, false
	ingestJSON, corpusJSON, statusJSON = false, false, false
	uploadCategory, uploadVersion = "", 0
	serveAddr, mcpHTTPAddr = "", ""
	watchDebounce = DefaultWatchDebounce
}
