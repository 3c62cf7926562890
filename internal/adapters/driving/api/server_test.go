package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

type fixture struct {
	engine *mockEngine
	ingest *mockIngest
	corpus *mockCorpus
	server *Server
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		engine: &mockEngine{
			answer: &mockAnswer{result: &domain.QueryResult{
				Answer: "25 days.",
				Mode:   domain.AnswerModeRetrieval,
				Sources: []domain.Source{{
					OriginPath: "source_documents/Leave/leave_v2.pdf",
					Page:       1,
					Category:   "Leave",
					Version:    2,
					IsLatest:   true,
				}},
			}},
			status: domain.EngineStatus{Ready: true, LLMAvailable: true, IndexedChunks: 12},
		},
		ingest: &mockIngest{report: &domain.IngestReport{Documents: 3, Chunks: 12}},
		corpus: &mockCorpus{categories: []string{"HR", "IT"}},
	}
	s, err := NewServer(&Ports{Engine: f.engine, Ingest: f.ingest, Corpus: f.corpus}, cfg)
	require.NoError(t, err)
	f.server = s
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewServer_RequiresPorts(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
	}{
		{"nil ports", nil},
		{"missing engine", &Ports{Ingest: &mockIngest{}, Corpus: &mockCorpus{}}},
		{"missing ingest", &Ports{Engine: &mockEngine{}, Corpus: &mockCorpus{}}},
		{"missing corpus", &Ports{Engine: &mockEngine{}, Ingest: &mockIngest{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServer(tt.ports, Config{})
			assert.Error(t, err)
		})
	}
}

func TestServer_PublicRoutes(t *testing.T) {
	f := newFixture(t, Config{APIKey: "secret"})

	w := f.do(httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"message": "pong"}, decode(t, w))

	w = f.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["message"], "Welcome")

	w = f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["engine_ready"])
	assert.Equal(t, true, body["llm_available"])
	assert.InDelta(t, 12, body["indexed_chunks"], 0)
}

func TestServer_HealthNotReady(t *testing.T) {
	f := newFixture(t, Config{})
	f.engine.status = domain.EngineStatus{}

	body := decode(t, f.do(httptest.NewRequest(http.MethodGet, "/health", nil)))
	assert.Equal(t, "initializing or error", body["status"])
	assert.Equal(t, false, body["engine_ready"])
}

func TestServer_RequestID(t *testing.T) {
	f := newFixture(t, Config{})

	w := f.do(httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = f.do(req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestServer_APIKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		header   string
		wantCode int
	}{
		{name: "open when no key configured", key: "", header: "", wantCode: http.StatusOK},
		{name: "missing header", key: "secret", header: "", wantCode: http.StatusForbidden},
		{name: "wrong key", key: "secret", header: "nope", wantCode: http.StatusForbidden},
		{name: "matching key", key: "secret", header: "secret", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{APIKey: tt.key})
			req := httptest.NewRequest(http.MethodGet, "/categories", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			w := f.do(req)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusForbidden {
				assert.Equal(t, "forbidden", decode(t, w)["error"])
			}
		})
	}
}

func TestServer_Query(t *testing.T) {
	f := newFixture(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/query",
		strings.NewReader(`{"query": "How many leave days?", "category": "Leave"}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.QueryRequest{Question: "How many leave days?", Category: "Leave"}, f.engine.answer.last)

	var result domain.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "25 days.", result.Answer)
	assert.Equal(t, domain.AnswerModeRetrieval, result.Mode)
	require.Len(t, result.Sources, 1)
	assert.True(t, result.Sources[0].IsLatest)
}

func TestServer_QueryErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		askErr   error
		wantCode int
		wantErr  string
	}{
		{name: "malformed json", body: `{"query":`, wantCode: http.StatusBadRequest, wantErr: "invalid_input"},
		{name: "empty query", body: `{"query": ""}`, wantCode: http.StatusBadRequest, wantErr: "invalid_input"},
		{name: "embedding down", body: `{"query": "x"}`, askErr: fmt.Errorf("embed query: %w", domain.ErrEmbeddingUnavailable),
			wantCode: http.StatusServiceUnavailable, wantErr: "unavailable"},
		{name: "internal", body: `{"query": "x"}`, askErr: errors.New("boom"),
			wantCode: http.StatusInternalServerError, wantErr: "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.engine.answer.err = tt.askErr

			req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := f.do(req)

			assert.Equal(t, tt.wantCode, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.wantErr, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestServer_CategoriesAndDocuments(t *testing.T) {
	f := newFixture(t, Config{})
	f.corpus.documents = []domain.DocumentInfo{
		{Filename: "leave_v2.pdf", Category: "Leave", Version: 2, Path: "source_documents/Leave/leave_v2.pdf", SizeBytes: 42},
	}

	w := f.do(httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"categories": ["HR", "IT"]}`, w.Body.String())

	w = f.do(httptest.NewRequest(http.MethodGet, "/documents", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documents": [{"filename": "leave_v2.pdf", "category": "Leave", "version": 2,
		"path": "source_documents/Leave/leave_v2.pdf", "size_bytes": 42}]}`, w.Body.String())

	f.corpus.err = errors.New("disk gone")
	w = f.do(httptest.NewRequest(http.MethodGet, "/documents", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_Ingest(t *testing.T) {
	f := newFixture(t, Config{})

	w := f.do(httptest.NewRequest(http.MethodPost, "/ingest", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.InDelta(t, 3, body["documents"], 0)
	assert.InDelta(t, 12, body["chunks"], 0)

	f.ingest.err = domain.ErrIngestInProgress
	w = f.do(httptest.NewRequest(http.MethodPost, "/ingest", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ingest_in_progress", decode(t, w)["error"])
}

func TestServer_Clear(t *testing.T) {
	f := newFixture(t, Config{})

	w := f.do(httptest.NewRequest(http.MethodPost, "/clear", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.engine.cleared)

	f.engine.clearErr = fmt.Errorf("clear: %w", domain.ErrIndexBusy)
	w = f.do(httptest.NewRequest(http.MethodPost, "/clear", nil))
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "index_busy", decode(t, w)["error"])
}

func multipartUpload(t *testing.T, target string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestServer_Upload(t *testing.T) {
	t.Run("form fields", func(t *testing.T) {
		f := newFixture(t, Config{})
		w := f.do(multipartUpload(t, "/upload", map[string]string{"category": "Leave", "version": "3"}, "leave.pdf", "pdf bytes"))

		require.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, f.corpus.uploaded, 1)
		assert.Equal(t, "Leave", f.corpus.uploaded[0].Category)
		assert.Equal(t, 3, f.corpus.uploaded[0].Version)
		assert.Equal(t, "pdf bytes", f.corpus.content[0])

		body := decode(t, w)
		assert.Equal(t, "leave.pdf", body["filename"])
		assert.InDelta(t, 3, body["version"], 0)
		assert.Contains(t, body["message"], "/ingest")
	})

	t.Run("query string fallback", func(t *testing.T) {
		f := newFixture(t, Config{})
		w := f.do(multipartUpload(t, "/upload?category=IT&version=2", nil, "vpn.txt", "x"))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "IT", f.corpus.uploaded[0].Category)
		assert.Equal(t, 2, f.corpus.uploaded[0].Version)
	})

	tests := []struct {
		name      string
		fields    map[string]string
		filename  string
		uploadErr error
		wantCode  int
	}{
		{name: "missing file", wantCode: http.StatusBadRequest},
		{name: "bad version", fields: map[string]string{"version": "two"}, filename: "a.pdf", wantCode: http.StatusBadRequest},
		{name: "unsupported", filename: "a.exe", uploadErr: domain.ErrUnsupportedFormat, wantCode: http.StatusUnsupportedMediaType},
		{name: "traversal", filename: "a.pdf", uploadErr: domain.ErrInvalidInput, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.corpus.uploadErr = tt.uploadErr
			w := f.do(multipartUpload(t, "/upload", tt.fields, tt.filename, "x"))
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestServer_RateLimit(t *testing.T) {
	f := newFixture(t, Config{RateLimit: 0.001, RateBurst: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		w := f.do(httptest.NewRequest(http.MethodGet, "/categories", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health is never limited")

	other := httptest.NewRequest(http.MethodGet, "/categories", nil)
	other.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, http.StatusOK, f.do(other).Code, "buckets are per client")
}

func TestClientLimiter_EvictsIdleClients(t *testing.T) {
	l := newClientLimiter(1, 1)
	now := time.Unix(1_000_000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("1.1.1.1"))
	assert.False(t, l.allow("1.1.1.1"))

	now = now.Add(2 * idleLimiterTTL)
	assert.True(t, l.allow("2.2.2.2"))
	assert.NotContains(t, l.clients, "1.1.1.1")
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
		{domain.ErrIngestInProgress, http.StatusConflict},
		{domain.ErrIndexBusy, http.StatusLocked},
		{domain.ErrLLMUnavailable, http.StatusServiceUnavailable},
		{domain.ErrIndexUnavailable, http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, _ := errorStatus(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	f := newFixture(t, Config{ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
