package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// IngestService rebuilds the index from the corpus.
type IngestService interface {
	// Ingest loads, chunks and embeds the whole corpus and swaps the result in.
	// Returns domain.ErrIngestInProgress if another run is active.
	Ingest(ctx context.Context) (*domain.IngestReport, error)

	// Status returns the progress of the current or last run.
	Status() IngestStatus
}

// IngestStage names a step of an ingestion run.
type IngestStage string

// Ingestion stages in execution order.
const (
	IngestStageIdle      IngestStage = "idle"
	IngestStageLoading   IngestStage = "loading"
	IngestStageChunking  IngestStage = "chunking"
	IngestStageEmbedding IngestStage = "embedding"
	IngestStageWriting   IngestStage = "writing"
	IngestStageDone      IngestStage = "done"
	IngestStageFailed    IngestStage = "failed"
)

// IngestStatus represents the current state of an ingestion.
type IngestStatus struct {
	// Running indicates if ingestion is currently in progress.
	Running bool

	// Stage is the current step.
	Stage IngestStage

	// DocumentsLoaded is the count of documents loaded so far.
	DocumentsLoaded int

	// ChunksEmbedded is the count of chunks embedded so far.
	ChunksEmbedded int

	// ChunksTotal is the number of chunks to embed.
	ChunksTotal int

	// StartedAt is when the run began.
	StartedAt time.Time

	// Err is the failure of the last run, if any.
	Err error
}
