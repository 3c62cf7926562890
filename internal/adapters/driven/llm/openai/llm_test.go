package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

func TestNewLLMService_RequiresKeyForHostedAPI(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s, err := NewLLMService(LLMConfig{BaseURL: "http://localhost:8080/v1"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, s.ModelName())
}

func TestGenerate(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Twenty days."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	s, err := NewLLMService(LLMConfig{
		APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "local-model",
		MaxOutputTokens: 256, Temperature: 0.3,
	})
	require.NoError(t, err)

	answer, err := s.Generate(context.Background(), "How much leave?", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Twenty days.", answer)

	assert.Equal(t, "local-model", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "How much leave?", got.Messages[0].Content)
	assert.Equal(t, 256, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.3, *got.Temperature, 1e-9)
}

func TestGenerate_NoAuthHeaderWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	s, err := NewLLMService(LLMConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = s.Generate(context.Background(), "q", driven.GenerateOptions{})
	assert.NoError(t, err)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{"model missing", http.StatusNotFound, `{"error":{"message":"model not found"}}`, domain.ErrLLMUnavailable, "status 404"},
		{"server error", http.StatusInternalServerError, `oops`, nil, "status 500"},
		{"error object", http.StatusOK, `{"error":{"message":"quota exceeded"}}`, nil, "quota exceeded"},
		{"no choices", http.StatusOK, `{"choices":[]}`, nil, "no response choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s, err := NewLLMService(LLMConfig{BaseURL: srv.URL})
			require.NoError(t, err)
			_, err = s.Generate(context.Background(), "q", driven.GenerateOptions{})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NotErrorIs(t, err, domain.ErrLLMUnavailable)
			}
		})
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/present" {
			_, _ = w.Write([]byte(`{"id":"present"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ok, err := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "present"})
	require.NoError(t, err)
	assert.NoError(t, ok.Ping(context.Background()))

	missing, err := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "absent"})
	require.NoError(t, err)
	assert.ErrorIs(t, missing.Ping(context.Background()), domain.ErrLLMUnavailable)
}
