package driven

import (
	"context"
	"io"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// Corpus is the categorised document tree on disk.
// Files directly under the root belong to domain.GeneralCategory; files in an
// immediate subdirectory belong to the category named after it.
type Corpus interface {
	// Root returns the corpus root path.
	Root() string

	// Walk lists corpus files. A missing root is created and yields no files.
	Walk(ctx context.Context) ([]domain.CorpusFile, error)

	// Open opens a corpus file for reading.
	Open(path string) (ReadAtCloser, int64, error)

	// Save stores a file in a category and returns its path.
	Save(ctx context.Context, category, filename string, r io.Reader) (string, error)

	// Watch calls fn once changes under the root have been quiet for debounce.
	// It blocks until ctx is cancelled.
	Watch(ctx context.Context, debounce time.Duration, fn func()) error
}

// ReadAtCloser is a random-access file handle.
type ReadAtCloser interface {
	io.ReaderAt
	io.Closer
}
