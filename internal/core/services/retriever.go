package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// Retriever embeds a query and searches the vector index.
type Retriever struct {
	embedder    driven.EmbeddingService
	index       driven.VectorIndex
	defaultTopK int
}

// NewRetriever creates a retriever. A non-positive defaultTopK uses domain.DefaultTopK.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, defaultTopK int) *Retriever {
	if defaultTopK <= 0 {
		defaultTopK = domain.DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, defaultTopK: defaultTopK}
}

// Search returns up to topK chunks, best first, tagged with TagLatest. An
// unknown category yields an empty result.
func (r *Retriever) Search(ctx context.Context, query string, topK int, category string) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.index.Search(ctx, vec, topK, domain.SearchFilter{Category: category})
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return TagLatest(results), nil
}
