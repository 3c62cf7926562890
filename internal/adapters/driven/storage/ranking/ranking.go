// Package ranking holds the similarity scoring shared by the index backends.
package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b. Zero vectors score 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector dimensions differ (%d vs %d)", domain.ErrInvalidInput, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// Candidate is a scored entry awaiting ranking.
type Candidate struct {
	Chunk      domain.Chunk
	Similarity float64
	// Seq is the insertion sequence; lower wins ties.
	Seq int64
}

// Top orders candidates by similarity descending, then by Seq ascending,
// and returns at most k of them.
func Top(candidates []Candidate, k int) []domain.RetrievedChunk {
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	if k >= 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]domain.RetrievedChunk, len(candidates))
	for i, c := range candidates {
		out[i] = domain.RetrievedChunk{Chunk: c.Chunk, Similarity: c.Similarity}
	}
	return out
}

// Validate checks that every chunk carries an embedding of the same size.
// It returns that size.
func Validate(chunks []domain.Chunk) (int, error) {
	dims := -1
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return 0, fmt.Errorf("%w: chunk %d (%s) has no embedding", domain.ErrInvalidInput, i, c.ID)
		}
		if dims == -1 {
			dims = len(c.Embedding)
		} else if len(c.Embedding) != dims {
			return 0, fmt.Errorf("%w: chunk %d has %d dimensions, want %d", domain.ErrInvalidInput, i, len(c.Embedding), dims)
		}
	}
	return max(dims, 0), nil
}

// SortedKeys returns the keys of set in ascending order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
