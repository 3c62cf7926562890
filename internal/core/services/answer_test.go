package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

func TestAnswerService_Ask_Retrieval(t *testing.T) {
	retriever := &mockRetriever{chunks: []domain.RetrievedChunk{
		retrieved("Leave/leave_v2.pdf", "Leave", 2, "Annual leave is 25 days."),
		retrieved("Leave/leave_v1.pdf", "Leave", 1, "Annual leave is 20 days."),
	}}
	llm := &mockLLM{answer: "25 days"}
	svc := NewAnswerService(retriever, llm, 0)

	result, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "How much leave?", Category: "Leave"})
	require.NoError(t, err)

	assert.Equal(t, "25 days", result.Answer)
	assert.Equal(t, domain.AnswerModeRetrieval, result.Mode)
	assert.Equal(t, domain.DefaultTopK, retriever.topK)
	assert.Equal(t, "Leave", retriever.category)

	require.Len(t, result.Sources, 2)
	assert.True(t, result.Sources[0].IsLatest)
	assert.False(t, result.Sources[1].IsLatest)
	assert.Equal(t, "Leave/leave_v2.pdf (Page 1, Category: Leave, Version: 2) [LATEST]", result.Sources[0].String())
	assert.Equal(t, "Leave/leave_v1.pdf (Page 1, Category: Leave, Version: 1) [OLD VERSION]", result.Sources[1].String())

	want := "Use the following pieces of context to answer the question at the end. \n" +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n" +
		"Provide a detailed and helpful answer based on the context.\n\n" +
		"Context: Annual leave is 25 days.\n\nAnnual leave is 20 days.\n\n" +
		"Question: How much leave?\n\n" +
		"Answer:"
	assert.Equal(t, want, llm.lastPrompt())
}

func TestAnswerService_Ask_EmptyRetrievalStillAnswers(t *testing.T) {
	llm := &mockLLM{answer: "I don't know"}
	svc := NewAnswerService(&mockRetriever{}, llm, 5)

	result, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "What is the VPN?", Category: "Unknown"})
	require.NoError(t, err)
	assert.Equal(t, "I don't know", result.Answer)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
	assert.Contains(t, llm.lastPrompt(), "Context: \n\n")
}

func TestAnswerService_Ask_DirectChat(t *testing.T) {
	for _, category := range []string{"Noting", "noting", "NOTING", " Noting "} {
		t.Run(category, func(t *testing.T) {
			retriever := &mockRetriever{chunks: []domain.RetrievedChunk{retrieved("a.pdf", "General", 1, "x")}}
			llm := &mockLLM{answer: "hello there"}
			svc := NewAnswerService(retriever, llm, 0)

			result, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "Say hi", Category: category})
			require.NoError(t, err)

			assert.Equal(t, domain.AnswerModeDirect, result.Mode)
			assert.Equal(t, "hello there", result.Answer)
			assert.Empty(t, result.Sources)
			assert.Zero(t, retriever.calls, "direct chat must not retrieve")
			assert.Equal(t, "Say hi", llm.lastPrompt())
		})
	}
}

func TestAnswerService_Ask_ModelUnavailable(t *testing.T) {
	unavailableErr := fmt.Errorf("%w: connection refused", domain.ErrLLMUnavailable)

	tests := []struct {
		name     string
		llm      driven.LLMService
		category string
		mode     domain.AnswerMode
	}{
		{name: "nil handle", llm: nil, category: "Leave", mode: domain.AnswerModeRetrieval},
		{name: "nil handle direct", llm: nil, category: "Noting", mode: domain.AnswerModeDirect},
		{name: "unreachable during retrieval", llm: &mockLLM{err: unavailableErr}, category: "", mode: domain.AnswerModeRetrieval},
		{name: "unreachable during direct chat", llm: &mockLLM{err: unavailableErr}, category: "noting", mode: domain.AnswerModeDirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retriever := &mockRetriever{chunks: []domain.RetrievedChunk{retrieved("a.pdf", "General", 1, "x")}}
			svc := NewAnswerService(retriever, tt.llm, 0)

			result, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "q", Category: tt.category})
			require.NoError(t, err)
			assert.Equal(t, UnavailableAnswer, result.Answer)
			assert.Equal(t, tt.mode, result.Mode)
			assert.NotNil(t, result.Sources)
			assert.Empty(t, result.Sources)
		})
	}
}

func TestAnswerService_Ask_Errors(t *testing.T) {
	t.Run("empty question", func(t *testing.T) {
		svc := NewAnswerService(&mockRetriever{}, &mockLLM{}, 0)
		_, err := svc.Ask(context.Background(), domain.QueryRequest{Question: " \n"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("generation failure is wrapped", func(t *testing.T) {
		boom := errors.New("context length exceeded")
		svc := NewAnswerService(&mockRetriever{}, &mockLLM{err: boom}, 0)

		_, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "q"})
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "generate answer")
	})

	t.Run("retrieval failure is returned", func(t *testing.T) {
		boom := errors.New("index closed")
		svc := NewAnswerService(&mockRetriever{err: boom}, &mockLLM{}, 0)

		_, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "q"})
		assert.ErrorIs(t, err, boom)
	})
}

func TestAnswerService_PromptStore(t *testing.T) {
	llm := &mockLLM{answer: "ok"}
	svc := NewAnswerService(&mockRetriever{chunks: []domain.RetrievedChunk{
		retrieved("a.pdf", "General", 1, "ctx"),
	}}, llm, 0)
	svc.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptQA:         "C={context} Q={question}",
		driven.PromptDirectChat: "Answer briefly: {question}",
	}})

	_, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "what {context}?"})
	require.NoError(t, err)
	assert.Equal(t, "C=ctx Q=what {context}?", llm.lastPrompt())

	_, err = svc.Ask(context.Background(), domain.QueryRequest{Question: "hi", Category: "Noting"})
	require.NoError(t, err)
	assert.Equal(t, "Answer briefly: hi", llm.lastPrompt())
}

func TestAnswerService_MissingPromptFallsBack(t *testing.T) {
	llm := &mockLLM{answer: "ok"}
	svc := NewAnswerService(&mockRetriever{}, llm, 0)
	svc.SetPromptStore(&mockPromptStore{})

	_, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "q"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(llm.lastPrompt(), "Use the following pieces of context"))
}

func TestAnswerService_SerialisesGeneration(t *testing.T) {
	llm := &mockLLM{answer: "ok", delay: 10 * time.Millisecond}
	svc := NewAnswerService(&mockRetriever{}, llm, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "q"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, llm.maxSeen)
	assert.Len(t, llm.prompts, 8)
}

func TestAnswerService_SetLLM(t *testing.T) {
	svc := NewAnswerService(&mockRetriever{}, nil, 0)
	assert.Nil(t, svc.LLM())

	llm := &mockLLM{answer: "now available"}
	svc.SetLLM(llm)

	result, err := svc.Ask(context.Background(), domain.QueryRequest{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "now available", result.Answer)
}
