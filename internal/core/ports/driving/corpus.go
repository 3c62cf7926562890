package driving

import (
	"context"
	"io"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// CorpusService manages the categorised document tree.
type CorpusService interface {
	// Categories returns category names, sorted. domain.GeneralCategory is
	// included only when files exist directly under the root.
	Categories(ctx context.Context) ([]string, error)

	// Documents lists supported corpus files.
	Documents(ctx context.Context) ([]domain.DocumentInfo, error)

	// Upload stores a new file and returns its listing entry.
	Upload(ctx context.Context, req UploadRequest) (*domain.DocumentInfo, error)

	// Watch invokes fn after the corpus changes. Blocks until ctx is done.
	Watch(ctx context.Context, debounce time.Duration, fn func()) error
}

// UploadRequest describes a file to add to the corpus.
type UploadRequest struct {
	// Filename is the client-supplied base name.
	Filename string

	// Category is the target category. Empty or General stores at the root.
	Category string

	// Version, when positive, is encoded in the stored name as _v<N>.
	Version int

	// Body is the file content.
	Body io.Reader
}
