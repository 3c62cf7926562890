// Package indextest holds behaviour checks shared by VectorIndex backends.
package indextest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Factory opens a fresh, empty index for one test.
type Factory func(t *testing.T) driven.VectorIndex

// Chunk builds an embedded chunk for tests.
func Chunk(id, category, origin string, version int, embedding ...float32) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: origin + "#" + id,
		Content:    "content of " + id,
		OriginPath: origin,
		Category:   category,
		Version:    version,
		Page:       1,
		Embedding:  embedding,
	}
}

// Corpus is a small fixture spread over two categories.
func Corpus() []domain.Chunk {
	return []domain.Chunk{
		Chunk("leave-1", "Leave", "Leave/leave_v1.pdf", 1, 1, 0, 0),
		Chunk("leave-2", "Leave", "Leave/leave_v2.pdf", 2, 0.9, 0.1, 0),
		Chunk("it-1", "IT", "IT/vpn.pdf", 1, 0, 1, 0),
		Chunk("gen-1", "General", "handbook.txt", 1, 0, 0, 1),
	}
}

// Run exercises the VectorIndex contract against a backend.
func Run(t *testing.T, open Factory) {
	ctx := context.Background()

	t.Run("empty index", func(t *testing.T) {
		idx := open(t)

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		got, err := idx.Search(ctx, []float32{1, 0, 0}, 5, domain.SearchFilter{})
		require.NoError(t, err)
		assert.Empty(t, got)

		cats, err := idx.Categories(ctx)
		require.NoError(t, err)
		assert.Empty(t, cats)
	})

	t.Run("rebuild and count", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Rebuild(ctx, Corpus()))

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		cats, err := idx.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"General", "IT", "Leave"}, cats)
	})

	t.Run("search ranks by similarity", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Rebuild(ctx, Corpus()))

		got, err := idx.Search(ctx, []float32{1, 0, 0}, 2, domain.SearchFilter{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "leave-1", got[0].Chunk.ID)
		assert.Equal(t, "leave-2", got[1].Chunk.ID)
		assert.InDelta(t, 1.0, got[0].Similarity, 1e-5)
		assert.Greater(t, got[0].Similarity, got[1].Similarity)

		c := got[1].Chunk
		assert.Equal(t, "Leave/leave_v2.pdf", c.OriginPath)
		assert.Equal(t, "Leave", c.Category)
		assert.Equal(t, 2, c.Version)
		assert.Equal(t, 1, c.Page)
		assert.Equal(t, "content of leave-2", c.Content)
	})

	t.Run("category filter", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Rebuild(ctx, Corpus()))

		got, err := idx.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{Category: "IT"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "it-1", got[0].Chunk.ID)

		got, err = idx.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{Category: "Finance"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		idx := open(t)
		chunks := []domain.Chunk{
			Chunk("first", "A", "a.txt", 1, 0, 1),
			Chunk("second", "A", "b.txt", 1, 0, 2),
			Chunk("third", "A", "c.txt", 1, 0, 3),
		}
		require.NoError(t, idx.Rebuild(ctx, chunks))

		got, err := idx.Search(ctx, []float32{0, 1}, 3, domain.SearchFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"first", "second", "third"},
			[]string{got[0].Chunk.ID, got[1].Chunk.ID, got[2].Chunk.ID})
	})

	t.Run("rebuild replaces contents", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Rebuild(ctx, Corpus()))
		require.NoError(t, idx.Rebuild(ctx, []domain.Chunk{Chunk("only", "HR", "hr.txt", 1, 1, 1, 1)}))

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		cats, err := idx.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"HR"}, cats)
	})

	t.Run("rejects chunks without embeddings", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Rebuild(ctx, Corpus()))

		err := idx.Rebuild(ctx, []domain.Chunk{Chunk("bare", "A", "a.txt", 1)})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n, "failed rebuild must keep the previous contents")
	})

	t.Run("non-positive k", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Rebuild(ctx, Corpus()))

		got, err := idx.Search(ctx, []float32{1, 0, 0}, 0, domain.SearchFilter{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("clear", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Rebuild(ctx, Corpus()))
		require.NoError(t, idx.Clear(ctx))

		n, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		require.NoError(t, idx.Rebuild(ctx, Corpus()))
		n, err = idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("concurrent searches during rebuild", func(t *testing.T) {
		idx := open(t)
		require.NoError(t, idx.Rebuild(ctx, Corpus()))

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 20 {
					got, err := idx.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{})
					assert.NoError(t, err)
					// Either generation is complete: four chunks or one.
					assert.Contains(t, []int{1, 4}, len(got))
				}
			}()
		}
		for i := range 5 {
			var chunks []domain.Chunk
			if i%2 == 0 {
				chunks = []domain.Chunk{Chunk("only", "HR", "hr.txt", 1, 1, 0, 0)}
			} else {
				chunks = Corpus()
			}
			require.NoError(t, idx.Rebuild(ctx, chunks))
		}
		wg.Wait()
	})
}
