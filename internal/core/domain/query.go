package domain

import (
	"fmt"
	"strings"
	"time"
)

// DirectChatCategory is the reserved category that bypasses retrieval.
// It is compared case-insensitively.
const DirectChatCategory = "Noting"

// IsDirectChat reports whether a requested category selects direct chat.
func IsDirectChat(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), DirectChatCategory)
}

// AnswerMode identifies which branch produced an answer.
type AnswerMode string

// Available answer modes.
const (
	// AnswerModeDirect sends the question straight to the model.
	AnswerModeDirect AnswerMode = "direct"

	// AnswerModeRetrieval grounds the answer in retrieved chunks.
	AnswerModeRetrieval AnswerMode = "retrieval"
)

// QueryRequest is a question with an optional category scope.
type QueryRequest struct {
	// Question is the natural-language question.
	Question string `json:"query"`

	// Category scopes retrieval. Empty searches every category;
	// DirectChatCategory skips retrieval altogether.
	Category string `json:"category,omitempty"`
}

// Source is a retrieved chunk as reported to the caller.
type Source struct {
	OriginPath string  `json:"origin_path"`
	Page       int     `json:"page"`
	Category   string  `json:"category"`
	Version    int     `json:"version"`
	IsLatest   bool    `json:"is_latest"`
	Similarity float64 `json:"similarity"`
	Excerpt    string  `json:"excerpt,omitempty"`
}

// NewSource builds a Source from a retrieved chunk.
func NewSource(rc RetrievedChunk) Source {
	return Source{
		OriginPath: rc.Chunk.OriginPath,
		Page:       rc.Chunk.Page,
		Category:   rc.Chunk.Category,
		Version:    rc.Chunk.Version,
		IsLatest:   rc.IsLatest,
		Similarity: rc.Similarity,
		Excerpt:    rc.Chunk.Content,
	}
}

// String renders the source the way answers cite it.
func (s Source) String() string {
	marker := "[OLD VERSION]"
	if s.IsLatest {
		marker = "[LATEST]"
	}
	return fmt.Sprintf("%s (Page %d, Category: %s, Version: %d) %s",
		s.OriginPath, s.Page, s.Category, s.Version, marker)
}

// QueryResult is the answer to one question.
type QueryResult struct {
	// Answer is the model's text, or an explanation when the model is unavailable.
	Answer string `json:"answer"`

	// Mode is the branch that produced the answer.
	Mode AnswerMode `json:"mode"`

	// Sources are the retrieved chunks, best match first. Always empty in
	// direct mode and when the model is unavailable.
	Sources []Source `json:"sources"`
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// Documents is the number of loaded documents (pages count separately).
	Documents int `json:"documents"`

	// Chunks is the number of chunks written to the index.
	Chunks int `json:"chunks"`

	// Skipped is the number of files that failed to parse.
	Skipped int `json:"skipped"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`
}

// EngineStatus describes the readiness of the query engine.
type EngineStatus struct {
	Ready          bool   `json:"engine_ready"`
	LLMAvailable   bool   `json:"llm_available"`
	IndexedChunks  int    `json:"indexed_chunks"`
	Model          string `json:"model,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
}
