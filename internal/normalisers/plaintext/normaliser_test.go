package plaintext

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

func parse(t *testing.T, content string) ([]domain.Section, error) {
	t.Helper()
	return New().Parse(context.Background(), strings.NewReader(content), int64(len(content)))
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.Equal(t, "plaintext", normaliser.Name())
	assert.Equal(t, []string{".txt"}, normaliser.Extensions())
}

func TestParse_Success(t *testing.T) {
	sections, err := parse(t, "This is plain text content.")

	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "This is plain text content.", sections[0].Text)
	assert.Equal(t, 0, sections[0].Page)
}

func TestParse_NilReader(t *testing.T) {
	_, err := New().Parse(context.Background(), nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_EmptyContent(t *testing.T) {
	for _, content := range []string{"", "  \n\t\n"} {
		sections, err := parse(t, content)
		require.NoError(t, err)
		assert.Empty(t, sections)
	}
}

func TestReadText_Normalisation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"byte order mark dropped", "\uFEFFhello", "hello"},
		{"windows line endings", "a\r\nb\r\n", "a\nb\n"},
		{"old mac line endings", "a\rb", "a\nb"},
		{"invalid utf8 replaced", "ok\xffok", "ok\uFFFDok"},
		{"unicode preserved", "Congé annuel: 25 jours", "Congé annuel: 25 jours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := ReadText(strings.NewReader(tt.input), int64(len(tt.input)))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, text)
		})
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
