package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestLoader_Load(t *testing.T) {
	corpus := newMockCorpus(map[string]string{
		"handbook.txt":       "General rules",
		"Leave/leave_v1.pdf": "page one\fpage two",
		"Leave/leave_v2.pdf": "newer policy",
		"Leave/notes.xlsx":   "unsupported",
		"IT/broken.pdf":      "CORRUPT bytes",
	})
	loader := NewLoader(corpus, mockRegistry{})

	result, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Documents, 4)

	byKey := map[string]domain.Document{}
	for _, d := range result.Documents {
		byKey[d.OriginPath+"|"+d.Content] = d
	}

	general := byKey["corpus/handbook.txt|General rules"]
	assert.Equal(t, domain.GeneralCategory, general.Category)
	assert.Equal(t, 1, general.Version)

	p2 := byKey["corpus/Leave/leave_v1.pdf|page two"]
	assert.Equal(t, "Leave", p2.Category)
	assert.Equal(t, 1, p2.Version)
	assert.Equal(t, 2, p2.Page)

	v2 := byKey["corpus/Leave/leave_v2.pdf|newer policy"]
	assert.Equal(t, 2, v2.Version)
	assert.NotEmpty(t, v2.ID)
}

func TestLoader_Load_DeterministicIDs(t *testing.T) {
	corpus := newMockCorpus(map[string]string{"Leave/leave_v1.pdf": "a\fb"})
	loader := NewLoader(corpus, mockRegistry{})

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, first.Documents, 2)
	assert.Equal(t, first.Documents[0].ID, second.Documents[0].ID)
	assert.NotEqual(t, first.Documents[0].ID, first.Documents[1].ID)
}

func TestLoader_Load_Empty(t *testing.T) {
	result, err := NewLoader(newMockCorpus(nil), mockRegistry{}).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
	assert.Zero(t, result.Skipped)
}

func TestLoader_Load_WalkError(t *testing.T) {
	corpus := newMockCorpus(nil)
	corpus.walkErr = errors.New("permission denied")

	_, err := NewLoader(corpus, mockRegistry{}).Load(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

func TestLoader_Load_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(newMockCorpus(map[string]string{"a.txt": "x"}), mockRegistry{}).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
