package postprocessors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/postprocessors/chunker"
)

// registryMockChunker is a simple mock for testing registry functionality.
type registryMockChunker struct {
	name string
}

func (m *registryMockChunker) Name() string                             { return m.name }
func (m *registryMockChunker) Split(_ []domain.Document) []domain.Chunk { return nil }

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	assert.Empty(t, r.builders)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	r.Register("test", func(_ map[string]any) (driven.Chunker, error) {
		return &registryMockChunker{name: "test"}, nil
	})

	assert.True(t, r.Has("test"))
	assert.False(t, r.Has("other"))
}

func TestRegistry_Build(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.Chunker, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &registryMockChunker{name: name}, nil
	})

	c, err := r.Build("test", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", c.Name())

	_, err = r.Build("missing", nil)
	assert.Error(t, err)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)
	r.Register("alpha", nil)

	assert.Equal(t, []string{"alpha", "chunker"}, r.Names())
}

func TestRegisterDefaults_BuildsChunkerFromConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	tests := []struct {
		name        string
		cfg         map[string]any
		wantSize    int
		wantOverlap int
	}{
		{"nil config uses defaults", nil, 1000, 200},
		{"int values", map[string]any{"chunk_size": 500, "chunk_overlap": 50}, 500, 50},
		{"int64 values from TOML", map[string]any{"chunk_size": int64(300), "chunk_overlap": int64(30)}, 300, 30},
		{"float64 values from JSON", map[string]any{"chunk_size": float64(400), "chunk_overlap": float64(0)}, 400, 0},
		{"wrong type ignored", map[string]any{"chunk_size": "big"}, 1000, 200},
		{"from settings", ChunkerConfig(domain.ChunkerSettings{ChunkSize: 800, ChunkOverlap: 100}), 800, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := r.Build(DefaultChunker, tt.cfg)
			require.NoError(t, err)

			p, ok := c.(*chunker.Processor)
			require.True(t, ok)
			assert.Equal(t, tt.wantSize, p.ChunkSize())
			assert.Equal(t, tt.wantOverlap, p.Overlap())
		})
	}
}

func TestRegisterDefaults_RejectsOverlapNotBelowSize(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	_, err := r.Build(DefaultChunker, map[string]any{"chunk_size": 100, "chunk_overlap": 100})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
