// Package chromem provides a vector index backed by chromem-go's persistent
// embedded database.
package chromem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/generation"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/ranking"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

const (
	collectionName   = "documents"
	generationPrefix = "chromem"
	dbDirName        = "db"
	categoriesFile   = "categories.json"
	addBatchSize     = 256
)

// Metadata keys stored alongside each embedding.
const (
	metaChunkID    = "chunk_id"
	metaDocumentID = "document_id"
	metaOrigin     = "origin_path"
	metaCategory   = "category"
	metaVersion    = "version"
	metaPage       = "page"
	metaPosition   = "position"
	metaSeq        = "seq"
)

// Index is a VectorIndex stored as a chromem-go persistent database.
type Index struct {
	gens *generation.Set[*handle]
}

var _ driven.VectorIndex = (*Index)(nil)

type handle struct {
	collection *chromem.Collection
	categories []string
}

// Close is a no-op; chromem-go persists on write and holds no descriptors.
func (h *handle) Close() error { return nil }

// NewIndex opens the index stored under dir.
func NewIndex(dir string) (*Index, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: chromem index path is empty", domain.ErrInvalidInput)
	}
	gens, err := generation.Open(dir, generationPrefix, openGeneration)
	if err != nil {
		return nil, fmt.Errorf("opening chromem index: %w", err)
	}
	return &Index{gens: gens}, nil
}

// Dir returns the index directory.
func (i *Index) Dir() string { return i.gens.Dir() }

// Close releases the directory lock.
func (i *Index) Close() error { return i.gens.Close() }

// Rebuild writes chunks to a fresh chromem database and swaps it in.
func (i *Index) Rebuild(ctx context.Context, chunks []domain.Chunk) error {
	if _, err := ranking.Validate(chunks); err != nil {
		return err
	}
	return i.gens.Rebuild(func(path string) error {
		return writeGeneration(ctx, path, chunks)
	})
}

// Search queries the live collection. Every in-scope entry is requested so
// that ties can be ordered by insertion sequence.
func (i *Index) Search(ctx context.Context, query []float32, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	results := []domain.RetrievedChunk{}
	if k <= 0 {
		return results, nil
	}

	err := i.gens.View(func(h *handle, ok bool) error {
		if !ok {
			return nil
		}
		n := h.collection.Count()
		if n == 0 {
			return nil
		}

		var where map[string]string
		if filter.Category != "" {
			where = map[string]string{metaCategory: filter.Category}
		}
		found, err := h.collection.QueryEmbedding(ctx, query, n, where, nil)
		if err != nil {
			return fmt.Errorf("querying chromem: %w", err)
		}

		cands := make([]ranking.Candidate, 0, len(found))
		for _, r := range found {
			c, seq := chunkFromResult(r)
			cands = append(cands, ranking.Candidate{Chunk: c, Similarity: float64(r.Similarity), Seq: seq})
		}
		results = ranking.Top(cands, k)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Count returns the number of entries in the live collection.
func (i *Index) Count(_ context.Context) (int, error) {
	var n int
	err := i.gens.View(func(h *handle, ok bool) error {
		if ok {
			n = h.collection.Count()
		}
		return nil
	})
	return n, err
}

// Categories returns the categories recorded when the generation was built.
func (i *Index) Categories(_ context.Context) ([]string, error) {
	cats := []string{}
	err := i.gens.View(func(h *handle, ok bool) error {
		if ok {
			cats = append(cats, h.categories...)
		}
		return nil
	})
	return cats, err
}

// Clear removes every generation.
func (i *Index) Clear(_ context.Context) error {
	return i.gens.Clear()
}

func openGeneration(path string) (*handle, error) {
	db, err := chromem.NewPersistentDB(filepath.Join(path, dbDirName), false)
	if err != nil {
		return nil, fmt.Errorf("loading chromem db: %w", err)
	}
	collection, err := db.GetOrCreateCollection(collectionName, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return nil, fmt.Errorf("loading collection: %w", err)
	}

	h := &handle{collection: collection, categories: []string{}}
	data, err := os.ReadFile(filepath.Join(path, categoriesFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading categories: %w", err)
	default:
		if err := json.Unmarshal(data, &h.categories); err != nil {
			return nil, fmt.Errorf("decoding categories: %w", err)
		}
	}
	return h, nil
}

func writeGeneration(ctx context.Context, path string, chunks []domain.Chunk) error {
	db, err := chromem.NewPersistentDB(filepath.Join(path, dbDirName), false)
	if err != nil {
		return fmt.Errorf("creating chromem db: %w", err)
	}
	collection, err := db.GetOrCreateCollection(collectionName, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	seen := make(map[string]struct{})
	for start := 0; start < len(chunks); start += addBatchSize {
		end := min(start+addBatchSize, len(chunks))
		batch := chunks[start:end]

		ids := make([]string, len(batch))
		vectors := make([][]float32, len(batch))
		metadatas := make([]map[string]string, len(batch))
		contents := make([]string, len(batch))
		for j, c := range batch {
			seq := start + j
			// Chunk IDs may repeat across documents; the sequence never does.
			ids[j] = strconv.Itoa(seq)
			vectors[j] = c.Embedding
			metadatas[j] = metadataFor(c, seq)
			contents[j] = c.Content
			seen[c.Category] = struct{}{}
		}
		if err := collection.Add(ctx, ids, vectors, metadatas, contents); err != nil {
			return fmt.Errorf("adding chunks %d-%d: %w", start, end-1, err)
		}
	}

	data, err := json.Marshal(ranking.SortedKeys(seen))
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, categoriesFile), data, 0o600); err != nil {
		return fmt.Errorf("writing categories: %w", err)
	}
	return nil
}

func metadataFor(c domain.Chunk, seq int) map[string]string {
	return map[string]string{
		metaChunkID:    c.ID,
		metaDocumentID: c.DocumentID,
		metaOrigin:     c.OriginPath,
		metaCategory:   c.Category,
		metaVersion:    strconv.Itoa(c.Version),
		metaPage:       strconv.Itoa(c.Page),
		metaPosition:   strconv.Itoa(c.Position),
		metaSeq:        strconv.Itoa(seq),
	}
}

func chunkFromResult(r chromem.Result) (domain.Chunk, int64) {
	m := r.Metadata
	atoi := func(key string) int {
		n, _ := strconv.Atoi(m[key])
		return n
	}
	seq, _ := strconv.ParseInt(m[metaSeq], 10, 64)
	return domain.Chunk{
		ID:         m[metaChunkID],
		DocumentID: m[metaDocumentID],
		Content:    r.Content,
		Position:   atoi(metaPosition),
		OriginPath: m[metaOrigin],
		Category:   m[metaCategory],
		Version:    atoi(metaVersion),
		Page:       atoi(metaPage),
		Embedding:  r.Embedding,
	}, seq
}
