package driven

import "github.com/custodia-labs/docrag/internal/core/domain"

// Chunker splits documents into overlapping chunks.
// Output must be deterministic for identical input.
type Chunker interface {
	// Name identifies the chunker in logs.
	Name() string

	// Split chunks every document, preserving provenance.
	Split(docs []domain.Document) []domain.Chunk
}
