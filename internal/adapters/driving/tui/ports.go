// Package tui provides an interactive terminal user interface for docrag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Engine answers questions. Required.
	Engine driving.Engine

	// Corpus lists documents. Optional; the documents view reports an
	// error without it.
	Corpus driving.CorpusService

	// Ingest rebuilds the index. Optional; the menu hides reindexing
	// without it.
	Ingest driving.IngestService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Engine == nil {
		return ErrMissingEngine
	}
	return nil
}
