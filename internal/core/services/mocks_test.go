package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// mockCorpus holds files in memory, keyed by "<category>/<name>".
type mockCorpus struct {
	mu      sync.Mutex
	files   map[string]string
	walkErr error
	saved   []string
	watched bool
}

func newMockCorpus(files map[string]string) *mockCorpus {
	if files == nil {
		files = make(map[string]string)
	}
	return &mockCorpus{files: files}
}

func (m *mockCorpus) Root() string { return "corpus" }

func (m *mockCorpus) Walk(ctx context.Context) ([]domain.CorpusFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.walkErr != nil {
		return nil, m.walkErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.CorpusFile
	for key, content := range m.files {
		category, name := path.Split(key)
		category = strings.TrimSuffix(category, "/")
		if category == "" {
			category = domain.GeneralCategory
		}
		out = append(out, domain.CorpusFile{
			Path:      "corpus/" + key,
			Name:      name,
			Category:  category,
			SizeBytes: int64(len(content)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

type nopReaderAt struct{ *bytes.Reader }

func (nopReaderAt) Close() error { return nil }

func (m *mockCorpus) Open(p string) (driven.ReadAtCloser, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[strings.TrimPrefix(p, "corpus/")]
	if !ok {
		return nil, 0, domain.ErrNotFound
	}
	return nopReaderAt{bytes.NewReader([]byte(content))}, int64(len(content)), nil
}

func (m *mockCorpus) Save(_ context.Context, category, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := filename
	if category != domain.GeneralCategory {
		key = category + "/" + filename
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = string(data)
	m.saved = append(m.saved, key)
	return "corpus/" + key, nil
}

func (m *mockCorpus) Watch(_ context.Context, _ time.Duration, fn func()) error {
	m.watched = true
	fn()
	return nil
}

// pagedNormaliser treats .pdf and .txt as text with form feeds between pages.
// Content starting with "CORRUPT" fails to parse.
type pagedNormaliser struct{}

func (pagedNormaliser) Name() string         { return "paged" }
func (pagedNormaliser) Extensions() []string { return []string{".pdf", ".txt"} }

func (pagedNormaliser) Parse(_ context.Context, r io.ReaderAt, size int64) ([]domain.Section, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, err
	}
	text := string(data)
	if strings.HasPrefix(text, "CORRUPT") {
		return nil, domain.ErrParseFailed
	}
	var sections []domain.Section
	for i, page := range strings.Split(text, "\f") {
		sections = append(sections, domain.Section{Text: page, Page: i + 1})
	}
	return sections, nil
}

// mockRegistry resolves only pagedNormaliser extensions.
type mockRegistry struct{}

func (mockRegistry) Register(driven.Normaliser) {}

func (mockRegistry) Get(filename string) (driven.Normaliser, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf", ".txt":
		return pagedNormaliser{}, nil
	}
	return nil, domain.ErrUnsupportedFormat
}

func (mockRegistry) Extensions() []string { return []string{".pdf", ".txt"} }

// vocabulary gives the mock embedder a stable bag-of-words space.
var vocabulary = []string{"leave", "annual", "days", "vpn", "password", "budget", "sick"}

// mockEmbedder maps text onto word counts over vocabulary.
type mockEmbedder struct {
	mu      sync.Mutex
	batches int
	err     error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(vocabulary)+1)
		vec[len(vocabulary)] = 0.01
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,?!")
			for j, v := range vocabulary {
				if word == v {
					vec[j]++
				}
			}
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return len(vocabulary) + 1 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }
func (m *mockEmbedder) batchCount() int              { m.mu.Lock(); defer m.mu.Unlock(); return m.batches }

// mockLLM records prompts and returns a canned answer.
type mockLLM struct {
	mu      sync.Mutex
	answer  string
	err     error
	pingErr error
	prompts []string
	active  int
	maxSeen int
	delay   time.Duration
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.active++
	if m.active > m.maxSeen {
		m.maxSeen = m.active
	}
	m.mu.Unlock()

	time.Sleep(m.delay)

	m.mu.Lock()
	m.active--
	m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return m.pingErr }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// mockPromptStore serves fixed templates.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func (m *mockPromptStore) Reload() {}

// mockRetriever returns fixed chunks and records calls.
type mockRetriever struct {
	chunks   []domain.RetrievedChunk
	err      error
	topK     int
	category string
	calls    int
}

func (m *mockRetriever) Search(_ context.Context, _ string, topK int, category string) ([]domain.RetrievedChunk, error) {
	m.calls++
	m.topK = topK
	m.category = category
	return m.chunks, m.err
}

// mockConfigValidator records validation calls.
type mockConfigValidator struct {
	embedErr error
	llmErr   error
	calls    int
}

func (m *mockConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	m.calls++
	return m.embedErr
}

func (m *mockConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	m.calls++
	return m.llmErr
}

// mockChunker returns one chunk per document.
type mockChunker struct{}

func (mockChunker) Name() string { return "mock" }

func (mockChunker) Split(docs []domain.Document) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(docs))
	for i, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		out = append(out, domain.Chunk{
			ID:         d.ID,
			DocumentID: d.ID,
			Content:    d.Content,
			Position:   i,
			OriginPath: d.OriginPath,
			Category:   d.Category,
			Version:    d.Version,
			Page:       d.Page,
		})
	}
	return out
}

func retrieved(origin, category string, version int, content string) domain.RetrievedChunk {
	return domain.RetrievedChunk{Chunk: domain.Chunk{
		ID:         origin + "#" + content,
		OriginPath: origin,
		Category:   category,
		Version:    version,
		Content:    content,
		Page:       1,
	}, Similarity: 0.5}
}
