package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.Engine = (*Engine)(nil)

// LLMConnector opens a model handle. It is retried on Reinitialize while
// no model is available.
type LLMConnector func(ctx context.Context) (driven.LLMService, error)

// EngineConfig holds everything an Engine is built from.
type EngineConfig struct {
	Embedder driven.EmbeddingService
	Index    driven.VectorIndex

	// LLM is the initial model handle. May be nil.
	LLM driven.LLMService

	// Connect, when set, is used to open a model handle while LLM is nil.
	Connect LLMConnector

	// Prompts overrides the built-in templates. May be nil.
	Prompts driven.PromptStore

	// TopK is the number of chunks retrieved per question.
	TopK int
}

// engineState is a snapshot published by Reinitialize.
type engineState struct {
	ready        bool
	llmAvailable bool
	chunks       int
}

// Engine is the process-wide query context. It is built once at startup and
// shared by every driving adapter.
type Engine struct {
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	connect   LLMConnector
	retriever *Retriever
	answer    *AnswerService

	mu    sync.Mutex
	state atomic.Pointer[engineState]
}

// NewEngine builds an engine. Call Reinitialize before serving to probe the
// model and index.
func NewEngine(cfg EngineConfig) *Engine {
	retriever := NewRetriever(cfg.Embedder, cfg.Index, cfg.TopK)
	answer := NewAnswerService(retriever, cfg.LLM, cfg.TopK)
	if cfg.Prompts != nil {
		answer.SetPromptStore(cfg.Prompts)
	}

	e := &Engine{
		embedder:  cfg.Embedder,
		index:     cfg.Index,
		connect:   cfg.Connect,
		retriever: retriever,
		answer:    answer,
	}
	e.state.Store(&engineState{llmAvailable: cfg.LLM != nil})
	return e
}

// Answer returns the answer service.
func (e *Engine) Answer() driving.AnswerService {
	return e.answer
}

// Retrieval returns the retrieval service.
func (e *Engine) Retrieval() driving.RetrievalService {
	return e.retriever
}

// Status reports the state published by the last Reinitialize.
func (e *Engine) Status(_ context.Context) domain.EngineStatus {
	st := e.state.Load()
	status := domain.EngineStatus{
		Ready:         st.ready,
		LLMAvailable:  st.llmAvailable,
		IndexedChunks: st.chunks,
	}
	if llm := e.answer.LLM(); llm != nil {
		status.Model = llm.ModelName()
	}
	if e.embedder != nil {
		status.EmbeddingModel = e.embedder.ModelName()
	}
	return status
}

// Reinitialize re-probes the model and the index. A model that was missing
// is connected if possible; an existing handle is kept and pinged. Calls are
// serialised and readers see either the old or the new state.
func (e *Engine) Reinitialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := &engineState{}

	llm := e.answer.LLM()
	if llm == nil && e.connect != nil {
		connected, err := e.connect(ctx)
		if err != nil {
			logger.Warn("Model not available: %v", err)
		} else if connected != nil {
			e.answer.SetLLM(connected)
			llm = connected
		}
	}
	if llm != nil {
		if err := llm.Ping(ctx); err != nil {
			logger.Warn("Model %s did not answer: %v", llm.ModelName(), err)
		} else {
			next.llmAvailable = true
		}
	}

	count, err := e.index.Count(ctx)
	if err != nil {
		e.state.Store(next)
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	next.ready = true
	next.chunks = count
	e.state.Store(next)

	logger.Info("Engine ready: %d chunks indexed, model available: %t", count, next.llmAvailable)
	return nil
}

// ClearIndex empties the index and refreshes the engine state.
func (e *Engine) ClearIndex(ctx context.Context) error {
	if err := e.index.Clear(ctx); err != nil {
		return err
	}
	return e.Reinitialize(ctx)
}
