package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func sampleResults() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{
			Chunk: domain.Chunk{
				Content:    "Employees   receive\ntwenty days.",
				Position:   4,
				OriginPath: "source_documents/HR/leave_v2.pdf",
				Category:   "HR",
				Version:    2,
				Page:       1,
			},
			Similarity: 0.91,
			IsLatest:   true,
		},
	}
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_PassesOptions(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "--limit", "3", "-c", "HR", "annual", "leave")

	require.NoError(t, err)
	assert.Equal(t, "annual leave", ts.retrieval.lastQuery)
	assert.Equal(t, 3, ts.retrieval.lastTopK)
	assert.Equal(t, "HR", ts.retrieval.lastCategory)
}

func TestSearchCmd_Table(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.results = sampleResults()

	out, err := execute(t, "search", "leave")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] source_documents/HR/leave_v2.pdf (Page 1, Category: HR, Version: 2) [LATEST] (0.91)")
	assert.Contains(t, out, "Employees receive twenty days.")
}

func TestSearchCmd_NoResults(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "nothing")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.results = sampleResults()

	out, err := execute(t, "search", "--json", "leave")

	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "source_documents/HR/leave_v2.pdf", got[0]["origin_path"])
	assert.Equal(t, true, got[0]["is_latest"])
	assert.EqualValues(t, 4, got[0]["position"])
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"short", "a  b\nc", 10, "a b c"},
		{"exact", "abcde", 5, "abcde"},
		{"truncated", strings.Repeat("x", 20), 10, "xxxxxxx..."},
		{"unicode", "ééééééé", 5, "éé..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snippet(tt.text, tt.n))
		})
	}
}
