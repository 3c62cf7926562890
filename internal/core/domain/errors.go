package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat indicates a file extension no normaliser handles.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrParseFailed indicates a single document could not be parsed.
	// Ingestion logs it and moves on to the next file.
	ErrParseFailed = errors.New("parse failed")

	// ErrIngestInProgress indicates an ingestion is already running.
	ErrIngestInProgress = errors.New("ingestion in progress")

	// ErrIndexBusy indicates the index is in active use and cannot be cleared.
	// Callers may retry once readers and writers have finished.
	ErrIndexBusy = errors.New("index busy")

	// ErrLLMUnavailable indicates the language model is not loaded or unreachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not reachable.
	// Ingestion and retrieval both depend on it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable indicates the vector index is not configured or closed.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)
