package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure CorpusService implements the interface.
var _ driving.CorpusService = (*CorpusService)(nil)

// CorpusService lists and extends the document corpus.
type CorpusService struct {
	corpus   driven.Corpus
	registry driven.NormaliserRegistry
}

// NewCorpusService creates a corpus service.
func NewCorpusService(corpus driven.Corpus, registry driven.NormaliserRegistry) *CorpusService {
	return &CorpusService{corpus: corpus, registry: registry}
}

// Categories returns the categories that hold at least one supported document.
func (s *CorpusService) Categories(ctx context.Context) ([]string, error) {
	docs, err := s.Documents(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	categories := []string{}
	for _, d := range docs {
		if _, ok := seen[d.Category]; ok {
			continue
		}
		seen[d.Category] = struct{}{}
		categories = append(categories, d.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// Documents lists supported corpus files sorted by category then filename.
func (s *CorpusService) Documents(ctx context.Context) ([]domain.DocumentInfo, error) {
	files, err := s.corpus.Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}

	docs := []domain.DocumentInfo{}
	for _, f := range files {
		if _, err := s.registry.Get(f.Name); err != nil {
			continue
		}
		docs = append(docs, documentInfo(f))
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Category != docs[j].Category {
			return docs[i].Category < docs[j].Category
		}
		return docs[i].Filename < docs[j].Filename
	})
	return docs, nil
}

// Upload stores a document. A positive version is written into the file
// name as _v<N>, replacing any suffix already present.
func (s *CorpusService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.DocumentInfo, error) {
	if req.Body == nil {
		return nil, fmt.Errorf("%w: missing file body", domain.ErrInvalidInput)
	}

	name := strings.TrimSpace(req.Filename)
	if name == "" || name != filepath.Base(filepath.ToSlash(name)) || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: invalid filename %q", domain.ErrInvalidInput, req.Filename)
	}
	if _, err := s.registry.Get(name); err != nil {
		return nil, err
	}
	if req.Version < 0 {
		return nil, fmt.Errorf("%w: version must be positive", domain.ErrInvalidInput)
	}
	if req.Version > 0 {
		name = domain.WithVersion(name, req.Version)
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = domain.GeneralCategory
	}

	body := &countingReader{r: req.Body}
	path, err := s.corpus.Save(ctx, category, name, body)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", name, err)
	}
	logger.Info("Stored %s (category: %s)", path, category)

	info := documentInfo(domain.CorpusFile{Path: path, Name: name, Category: category, SizeBytes: body.n})
	return &info, nil
}

// Watch invokes fn after the corpus changes.
func (s *CorpusService) Watch(ctx context.Context, debounce time.Duration, fn func()) error {
	return s.corpus.Watch(ctx, debounce, fn)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func documentInfo(f domain.CorpusFile) domain.DocumentInfo {
	return domain.DocumentInfo{
		Filename:  f.Name,
		Category:  f.Category,
		Version:   domain.ResolveVersion(f.Name),
		Path:      f.Path,
		SizeBytes: f.SizeBytes,
	}
}
