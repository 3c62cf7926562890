package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultEmbedBatchSize is the number of chunks embedded per request.
const DefaultEmbedBatchSize = 32

// IngestService rebuilds the vector index from the corpus.
type IngestService struct {
	loader    *Loader
	chunker   driven.Chunker
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	engine    driving.Engine
	batchSize int

	run sync.Mutex

	mu     sync.RWMutex
	status driving.IngestStatus
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithEngine reinitialises engine after each successful run.
func WithEngine(engine driving.Engine) IngestOption {
	return func(s *IngestService) {
		s.engine = engine
	}
}

// WithEmbedBatchSize sets the number of chunks per embedding request.
func WithEmbedBatchSize(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewIngestService creates an ingestion service.
func NewIngestService(
	loader *Loader,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		batchSize: DefaultEmbedBatchSize,
		status:    driving.IngestStatus{Stage: driving.IngestStageIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest loads, chunks and embeds the whole corpus, then swaps the result
// into the index. Only one run may be active; a second caller gets
// domain.ErrIngestInProgress. An empty corpus leaves the index untouched.
func (s *IngestService) Ingest(ctx context.Context) (*domain.IngestReport, error) {
	if !s.run.TryLock() {
		return nil, domain.ErrIngestInProgress
	}
	defer s.run.Unlock()

	started := time.Now()
	s.update(func(st *driving.IngestStatus) {
		*st = driving.IngestStatus{Running: true, Stage: driving.IngestStageLoading, StartedAt: started}
	})

	report, err := s.ingest(ctx, started)
	if err != nil {
		s.update(func(st *driving.IngestStatus) {
			st.Running = false
			st.Stage = driving.IngestStageFailed
			st.Err = err
		})
		return nil, err
	}

	s.update(func(st *driving.IngestStatus) {
		st.Running = false
		st.Stage = driving.IngestStageDone
	})
	return report, nil
}

func (s *IngestService) ingest(ctx context.Context, started time.Time) (*domain.IngestReport, error) {
	logger.Section("Ingest")

	loaded, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	s.update(func(st *driving.IngestStatus) { st.DocumentsLoaded = len(loaded.Documents) })

	report := &domain.IngestReport{Documents: len(loaded.Documents), Skipped: loaded.Skipped}
	if len(loaded.Documents) == 0 {
		logger.Info("No documents found in corpus, index left unchanged")
		report.Duration = time.Since(started)
		return report, nil
	}
	logger.Info("Loaded %d documents (%d files skipped)", len(loaded.Documents), loaded.Skipped)

	s.update(func(st *driving.IngestStatus) { st.Stage = driving.IngestStageChunking })
	chunks := s.chunker.Split(loaded.Documents)
	logger.Info("Split into %d chunks", len(chunks))

	s.update(func(st *driving.IngestStatus) {
		st.Stage = driving.IngestStageEmbedding
		st.ChunksTotal = len(chunks)
	})
	if err := s.embed(ctx, chunks); err != nil {
		return nil, err
	}

	s.update(func(st *driving.IngestStatus) { st.Stage = driving.IngestStageWriting })
	if err := s.index.Rebuild(ctx, chunks); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}

	if s.engine != nil {
		if err := s.engine.Reinitialize(ctx); err != nil {
			logger.Warn("Index rebuilt but engine not ready: %v", err)
		}
	}

	report.Chunks = len(chunks)
	report.Duration = time.Since(started)
	logger.Info("Ingestion complete: %d chunks in %s", report.Chunks, report.Duration.Round(time.Millisecond))
	return report, nil
}

// embed fills in chunk embeddings in batches.
func (s *IngestService) embed(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))

		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Content
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end, len(vectors), len(texts))
		}
		for i, vec := range vectors {
			chunks[start+i].Embedding = vec
		}

		s.update(func(st *driving.IngestStatus) { st.ChunksEmbedded = end })
		logger.Debug("Embedded %d/%d chunks", end, len(chunks))
	}
	return nil
}

// Status returns a copy of the current or last run's progress.
func (s *IngestService) Status() driving.IngestStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *IngestService) update(fn func(*driving.IngestStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.status)
}
