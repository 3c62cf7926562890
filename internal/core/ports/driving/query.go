package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// AnswerService answers natural-language questions.
type AnswerService interface {
	// Ask routes the question to direct chat or retrieval-augmented
	// generation and always returns a well-formed result unless the
	// request itself is invalid or an internal failure occurs.
	Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)
}

// RetrievalService performs similarity search over the index.
type RetrievalService interface {
	// Search returns up to topK chunks ranked by similarity. A non-empty
	// category restricts results to that exact category. IsLatest is set
	// relative to the returned set.
	Search(ctx context.Context, query string, topK int, category string) ([]domain.RetrievedChunk, error)
}
