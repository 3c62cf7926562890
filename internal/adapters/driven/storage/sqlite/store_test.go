package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/indextest"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// setupTestIndex creates a SQLite index in a temporary directory.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := NewIndex(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, idx)
	t.Cleanup(func() {
		assert.NoError(t, idx.Close())
	})
	return idx
}

func TestIndex_Contract(t *testing.T) {
	indextest.Run(t, func(t *testing.T) driven.VectorIndex {
		return setupTestIndex(t)
	})
}

func TestIndex_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewIndex(dir)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(ctx, indextest.Corpus()))
	require.NoError(t, idx.Close())

	reopened, err := NewIndex(dir)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := reopened.Search(ctx, []float32{0, 0, 1}, 1, domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "gen-1", got[0].Chunk.ID)
	assert.Equal(t, []float32{0, 0, 1}, got[0].Chunk.Embedding)
}

func TestIndex_SearchRejectsWrongDimensions(t *testing.T) {
	idx := setupTestIndex(t)
	require.NoError(t, idx.Rebuild(context.Background(), indextest.Corpus()))

	_, err := idx.Search(context.Background(), []float32{1, 0}, 3, domain.SearchFilter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_ClearBusyWhileOpenByAnotherHandle(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewIndex(dir)
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.Rebuild(context.Background(), indextest.Corpus()))

	other, err := NewIndex(dir)
	require.NoError(t, err)

	assert.ErrorIs(t, idx.Clear(context.Background()), domain.ErrIndexBusy)

	require.NoError(t, other.Close())
	assert.NoError(t, idx.Clear(context.Background()))
}

func TestIndex_OldGenerationsRemoved(t *testing.T) {
	ctx := context.Background()
	idx := setupTestIndex(t)

	for range 3 {
		require.NoError(t, idx.Rebuild(ctx, indextest.Corpus()))
	}

	matches, err := filepath.Glob(filepath.Join(idx.Dir(), generationPrefix+"-*"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), dbFileName)

	db, err := openDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = openDB(path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, 1, version)
}

func TestEmbeddingCodec(t *testing.T) {
	v := []float32{0.25, -1.5, 3.75e-7, 0}
	assert.Equal(t, v, decodeEmbedding(encodeEmbedding(v)))
	assert.Nil(t, decodeEmbedding([]byte{1, 2, 3}))
	assert.Empty(t, encodeEmbedding(nil))
}

func TestNewIndex_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "index")
	idx, err := NewIndex(dir)
	require.NoError(t, err)
	defer idx.Close()

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}
