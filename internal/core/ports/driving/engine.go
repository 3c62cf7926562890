package driving

import (
	"context"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Engine is the process-wide query context shared by every request path.
type Engine interface {
	// Answer returns the answer service.
	Answer() AnswerService

	// Retrieval returns the retrieval service.
	Retrieval() RetrievalService

	// Status reports readiness.
	Status(ctx context.Context) domain.EngineStatus

	// Reinitialize re-probes the model and index after ingestion or a clear.
	// Calls are serialised.
	Reinitialize(ctx context.Context) error

	// ClearIndex removes every indexed entry. Returns domain.ErrIndexBusy
	// while the index is in use.
	ClearIndex(ctx context.Context) error
}
