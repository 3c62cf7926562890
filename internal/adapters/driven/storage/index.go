// Package storage selects a vector index backend.
package storage

import (
	"fmt"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/chromem"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// OpenIndex opens the configured backend rooted at dir.
func OpenIndex(backend domain.IndexBackend, dir string) (driven.VectorIndex, error) {
	switch backend {
	case domain.IndexBackendSQLite, "":
		return sqlite.NewIndex(dir)
	case domain.IndexBackendChromem:
		return chromem.NewIndex(dir)
	case domain.IndexBackendMemory:
		return memory.NewIndex(), nil
	default:
		return nil, fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, backend)
	}
}
