package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask")

	assert.Error(t, err)
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "how", "much", "leave?")

	require.NoError(t, err)
	assert.Equal(t, "how much leave?", ts.answer.lastReq.Question)
	assert.Equal(t, 1, ts.engine.reinits)
	assert.Contains(t, out, "Twenty days.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] source_documents/HR/leave_v2.pdf (Page 3, Category: HR, Version: 2) [LATEST]")
	assert.Contains(t, out, "[2] source_documents/HR/leave_v1.pdf (Page 3, Category: HR, Version: 1) [OLD VERSION]")
}

func TestAskCmd_DirectAnswerHasNoSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.answer.result = &domain.QueryResult{Answer: "Hello.", Mode: domain.AnswerModeDirect}

	out, err := execute(t, "ask", "-c", "Noting", "hi")

	require.NoError(t, err)
	assert.Equal(t, "Noting", ts.answer.lastReq.Category)
	assert.Equal(t, "Hello.\n", out)
}

func TestAskCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "--json", "--category", "HR", "leave?")

	require.NoError(t, err)
	var got domain.QueryResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Twenty days.", got.Answer)
	assert.Equal(t, domain.AnswerModeRetrieval, got.Mode)
	require.Len(t, got.Sources, 2)
	assert.True(t, got.Sources[0].IsLatest)
}

func TestAskCmd_EngineNotReadyStillAsks(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.engine.reinitErr = domain.ErrLLMUnavailable

	out, err := execute(t, "ask", "leave?")

	require.NoError(t, err)
	assert.Contains(t, out, "Twenty days.")
}

func TestAskCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.answer.err = errors.New("index exploded")

	_, err := execute(t, "ask", "leave?")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask failed: index exploded")
}
