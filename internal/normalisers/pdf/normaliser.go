// Package pdf extracts per-page text from PDF documents.
package pdf

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents. Each non-empty page becomes one section.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "pdf"
}

// Extensions returns the file extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".pdf"}
}

// Parse extracts the plain text of every page.
func (n *Normaliser) Parse(ctx context.Context, r io.ReaderAt, size int64) (sections []domain.Section, err error) {
	if r == nil || size <= 0 {
		return nil, domain.ErrInvalidInput
	}

	// The PDF reader panics on some malformed inputs.
	defer func() {
		if rec := recover(); rec != nil {
			sections = nil
			err = fmt.Errorf("%w: pdf: %v", domain.ErrParseFailed, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: pdf: %v", domain.ErrParseFailed, err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("%w: pdf page %d: %v", domain.ErrParseFailed, i, err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		sections = append(sections, domain.Section{Text: text, Page: i})
	}

	return sections, nil
}
