package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := Cosine([]float32{1}, []float32{1, 2})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestTop_OrdersBySimilarityThenSequence(t *testing.T) {
	cands := []Candidate{
		{Chunk: domain.Chunk{ID: "c"}, Similarity: 0.5, Seq: 3},
		{Chunk: domain.Chunk{ID: "b"}, Similarity: 0.9, Seq: 2},
		{Chunk: domain.Chunk{ID: "a"}, Similarity: 0.5, Seq: 1},
		{Chunk: domain.Chunk{ID: "d"}, Similarity: 0.1, Seq: 0},
	}

	got := Top(cands, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Chunk.ID)
	assert.Equal(t, "a", got[1].Chunk.ID)
	assert.Equal(t, "c", got[2].Chunk.ID)
	assert.InDelta(t, 0.9, got[0].Similarity, 1e-9)
}

func TestTop_KLargerThanCandidates(t *testing.T) {
	got := Top([]Candidate{{Similarity: math.Pi}}, 10)
	assert.Len(t, got, 1)
	assert.Empty(t, Top(nil, 10))
}

func TestValidate(t *testing.T) {
	dims, err := Validate([]domain.Chunk{{Embedding: []float32{1, 2}}, {Embedding: []float32{3, 4}}})
	require.NoError(t, err)
	assert.Equal(t, 2, dims)

	dims, err = Validate(nil)
	require.NoError(t, err)
	assert.Zero(t, dims)

	_, err = Validate([]domain.Chunk{{ID: "x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Validate([]domain.Chunk{{Embedding: []float32{1}}, {Embedding: []float32{1, 2}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSortedKeys(t *testing.T) {
	got := SortedKeys(map[string]struct{}{"Leave": {}, "General": {}, "IT": {}})
	assert.Equal(t, []string{"General", "IT", "Leave"}, got)
}
