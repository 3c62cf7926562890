package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure AnswerService implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerService)(nil)
	_ driven.PromptStoreAware = (*AnswerService)(nil)
)

// UnavailableAnswer is returned in place of an answer when no model can be reached.
const UnavailableAnswer = "Error: LLM not initialized (model not found?)"

// contextSeparator joins retrieved chunks in the prompt.
const contextSeparator = "\n\n"

// AnswerService routes questions to direct chat or retrieval-augmented generation.
//
// The model handle runs one generation at a time; concurrent questions
// retrieve in parallel and queue on genMu for the model.
type AnswerService struct {
	retriever driving.RetrievalService
	topK      int

	mu      sync.RWMutex
	llm     driven.LLMService
	prompts driven.PromptStore

	genMu sync.Mutex
}

// NewAnswerService creates an answer service. llm may be nil.
func NewAnswerService(retriever driving.RetrievalService, llm driven.LLMService, topK int) *AnswerService {
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	return &AnswerService{retriever: retriever, llm: llm, topK: topK}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = store
}

// SetLLM replaces the model handle. nil marks the model unavailable.
func (s *AnswerService) SetLLM(llm driven.LLMService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.llm = llm
}

// LLM returns the current model handle, or nil.
func (s *AnswerService) LLM() driven.LLMService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llm
}

// Ask answers one question.
//
// A missing or unreachable model is not an error: the result carries
// UnavailableAnswer and no sources. Retrieval failures and other generation
// failures are returned.
func (s *AnswerService) Ask(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	mode := domain.AnswerModeRetrieval
	if domain.IsDirectChat(req.Category) {
		mode = domain.AnswerModeDirect
	}

	llm := s.LLM()
	if llm == nil {
		return unavailable(mode), nil
	}

	logger.Info("Query: %q (category: %q, mode: %s)", question, req.Category, mode)

	if mode == domain.AnswerModeDirect {
		return s.direct(ctx, llm, question)
	}
	return s.retrieval(ctx, llm, question, req.Category)
}

func (s *AnswerService) direct(ctx context.Context, llm driven.LLMService, question string) (*domain.QueryResult, error) {
	prompt := fill(s.template(driven.PromptDirectChat), "", question)

	answer, err := s.generate(ctx, llm, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrLLMUnavailable) {
			logger.Warn("Direct chat: %v", err)
			return unavailable(domain.AnswerModeDirect), nil
		}
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.QueryResult{
		Answer:  answer,
		Mode:    domain.AnswerModeDirect,
		Sources: []domain.Source{},
	}, nil
}

func (s *AnswerService) retrieval(ctx context.Context, llm driven.LLMService, question, category string) (*domain.QueryResult, error) {
	chunks, err := s.retriever.Search(ctx, question, s.topK, category)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	chunks = TagLatest(chunks)
	logRetrieved(chunks)

	texts := make([]string, len(chunks))
	for i, rc := range chunks {
		texts[i] = rc.Chunk.Content
	}
	prompt := fill(s.template(driven.PromptQA), strings.Join(texts, contextSeparator), question)

	answer, err := s.generate(ctx, llm, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrLLMUnavailable) {
			logger.Warn("Retrieval answer: %v", err)
			return unavailable(domain.AnswerModeRetrieval), nil
		}
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := make([]domain.Source, len(chunks))
	for i, rc := range chunks {
		sources[i] = domain.NewSource(rc)
	}
	return &domain.QueryResult{
		Answer:  answer,
		Mode:    domain.AnswerModeRetrieval,
		Sources: sources,
	}, nil
}

func (s *AnswerService) generate(ctx context.Context, llm driven.LLMService, prompt string) (string, error) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return llm.Generate(ctx, prompt, driven.GenerateOptions{})
}

// template loads a prompt, falling back to the built-in text.
func (s *AnswerService) template(name string) string {
	s.mu.RLock()
	store := s.prompts
	s.mu.RUnlock()

	if store != nil {
		if tmpl, err := store.Load(name); err == nil && tmpl != "" {
			return tmpl
		} else if err != nil {
			logger.Warn("Load prompt %s: %v", name, err)
		}
	}
	return driven.DefaultPrompts[name]
}

// fill substitutes both placeholders in one pass, so text inside the
// question or context is never expanded.
func fill(tmpl, contextText, question string) string {
	return strings.NewReplacer("{context}", contextText, "{question}", question).Replace(tmpl)
}

func unavailable(mode domain.AnswerMode) *domain.QueryResult {
	return &domain.QueryResult{
		Answer:  UnavailableAnswer,
		Mode:    mode,
		Sources: []domain.Source{},
	}
}

func logRetrieved(chunks []domain.RetrievedChunk) {
	if !logger.IsVerbose() {
		return
	}
	logger.Debug("Retrieved %d chunks:", len(chunks))
	for i, rc := range chunks {
		preview := []rune(strings.TrimSpace(rc.Chunk.Content))
		if len(preview) > 100 {
			preview = preview[:100]
		}
		logger.Debug("  [%d] %s", i+1, domain.NewSource(rc))
		logger.Debug("      Preview: %s...", string(preview))
	}
}
