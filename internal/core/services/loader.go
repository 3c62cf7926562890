package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// documentNamespace seeds deterministic document IDs.
var documentNamespace = uuid.MustParse("a3d1e8f2-57c4-4b9e-8e61-0c2f7d94b5aa")

// LoadResult holds the documents read from the corpus.
type LoadResult struct {
	// Documents holds one entry per file section; paged formats yield one per page.
	Documents []domain.Document

	// Skipped is the number of files that failed to parse.
	Skipped int
}

// Loader reads the corpus into documents.
type Loader struct {
	corpus   driven.Corpus
	registry driven.NormaliserRegistry
}

// NewLoader creates a loader.
func NewLoader(corpus driven.Corpus, registry driven.NormaliserRegistry) *Loader {
	return &Loader{corpus: corpus, registry: registry}
}

// Load parses every supported corpus file. Unsupported extensions are
// ignored; files that fail to parse are logged and skipped.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	files, err := l.corpus.Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}

	result := &LoadResult{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		normaliser, err := l.registry.Get(file.Name)
		if err != nil {
			logger.Debug("Skipping %s: %v", file.Path, err)
			continue
		}

		sections, err := l.parse(ctx, normaliser, file)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			logger.Warn("Skipping %s: %v", file.Path, err)
			result.Skipped++
			continue
		}

		version := domain.ResolveVersion(file.Name)
		for _, section := range sections {
			result.Documents = append(result.Documents, domain.Document{
				ID:         documentID(file.Path, section.Page),
				OriginPath: file.Path,
				Content:    section.Text,
				Category:   file.Category,
				Version:    version,
				Page:       section.Page,
				Metadata:   map[string]any{"normaliser": normaliser.Name()},
			})
		}
		logger.Debug("Loaded %s (%s, v%d, %d sections)", file.Path, file.Category, version, len(sections))
	}

	return result, nil
}

func (l *Loader) parse(ctx context.Context, n driven.Normaliser, file domain.CorpusFile) ([]domain.Section, error) {
	f, size, err := l.corpus.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	sections, err := n.Parse(ctx, f, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.Name(), err)
	}
	return sections, nil
}

func documentID(path string, page int) string {
	return uuid.NewSHA1(documentNamespace, []byte(path+"#"+strconv.Itoa(page))).String()
}
