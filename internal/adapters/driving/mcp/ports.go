package mcp

import (
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Engine answers questions and runs retrieval.
	Engine driving.Engine

	// Corpus lists categories and documents. Optional.
	Corpus driving.CorpusService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Engine == nil {
		return ErrMissingEngine
	}
	return nil
}
