package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/ranking"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory driven.VectorIndex. Contents are lost on Close.
type Index struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
	dims   int
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{}
}

// Rebuild replaces the contents. The new slice is prepared before the swap.
func (i *Index) Rebuild(_ context.Context, chunks []domain.Chunk) error {
	dims, err := ranking.Validate(chunks)
	if err != nil {
		return err
	}
	next := slices.Clone(chunks)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.chunks, i.dims = next, dims
	return nil
}

// Search scores every chunk in scope.
func (i *Index) Search(ctx context.Context, query []float32, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	cands := make([]ranking.Candidate, 0, len(i.chunks))
	for seq, c := range i.chunks {
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim, err := ranking.Cosine(query, c.Embedding)
		if err != nil {
			return nil, err
		}
		cands = append(cands, ranking.Candidate{Chunk: c, Similarity: sim, Seq: int64(seq)})
	}
	return ranking.Top(cands, k), nil
}

// Count returns the number of chunks.
func (i *Index) Count(_ context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks), nil
}

// Categories returns the distinct categories, sorted.
func (i *Index) Categories(_ context.Context) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	set := make(map[string]struct{})
	for _, c := range i.chunks {
		set[c.Category] = struct{}{}
	}
	return ranking.SortedKeys(set), nil
}

// Clear drops every chunk, or returns domain.ErrIndexBusy while a search
// or rebuild holds the index.
func (i *Index) Clear(_ context.Context) error {
	if !i.mu.TryLock() {
		return domain.ErrIndexBusy
	}
	defer i.mu.Unlock()
	i.chunks, i.dims = nil, 0
	return nil
}

// Close releases the contents.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.chunks = nil
	return nil
}
