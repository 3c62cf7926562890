package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Normaliser parses one kind of file into text sections.
// Each normaliser handles a fixed set of file extensions (e.g., ".pdf").
type Normaliser interface {
	// Name identifies the normaliser in logs.
	Name() string

	// Extensions returns the lower-case extensions handled, with leading dot.
	Extensions() []string

	// Parse extracts text. Paged formats return one section per page.
	Parse(ctx context.Context, r io.ReaderAt, size int64) ([]domain.Section, error)
}

// NormaliserRegistry selects a normaliser for a file name.
type NormaliserRegistry interface {
	// Register adds a normaliser, replacing any earlier one for the same extensions.
	Register(n Normaliser)

	// Get returns the normaliser for the file's extension, or
	// domain.ErrUnsupportedFormat.
	Get(filename string) (Normaliser, error)

	// Extensions returns every supported extension, sorted.
	Extensions() []string
}
