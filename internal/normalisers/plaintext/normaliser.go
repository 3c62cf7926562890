// Package plaintext reads UTF-8 text files.
package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "plaintext"
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".txt"}
}

// Parse returns the file content as a single section.
func (n *Normaliser) Parse(_ context.Context, r io.ReaderAt, size int64) ([]domain.Section, error) {
	text, err := ReadText(r, size)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []domain.Section{{Text: text}}, nil
}

// ReadText reads a whole text file, dropping a UTF-8 byte order mark,
// normalising line endings and replacing invalid UTF-8 sequences.
func ReadText(r io.ReaderAt, size int64) (string, error) {
	if r == nil || size < 0 {
		return "", domain.ErrInvalidInput
	}

	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", fmt.Errorf("%w: read text: %v", domain.ErrParseFailed, err)
	}

	text := strings.TrimPrefix(string(data), "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ToValidUTF8(text, "\uFFFD"), nil
}
