package driven

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// VectorIndex stores embedded chunks and performs similarity search.
//
// The index is rebuilt wholesale: Rebuild writes a complete new generation and
// swaps it in atomically, so concurrent searches observe either the previous
// or the new corpus, never a partial one.
type VectorIndex interface {
	// Rebuild replaces the index contents with the given chunks.
	// Every chunk must carry an embedding. Insertion order is preserved
	// and used to break similarity ties.
	Rebuild(ctx context.Context, chunks []domain.Chunk) error

	// Search returns up to k chunks ranked by cosine similarity, descending.
	// A filter with no matching entries yields an empty result, not an error.
	Search(ctx context.Context, query []float32, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)

	// Categories returns the distinct categories present in the index, sorted.
	Categories(ctx context.Context) ([]string, error)

	// Clear removes every entry. It returns domain.ErrIndexBusy when the
	// index is in use by a search, a rebuild or another process.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}
