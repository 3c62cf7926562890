// Package chunker provides a boundary-aware overlapping text chunker.
package chunker

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// separators are tried in order when looking for a chunk boundary.
var separators = []string{"\n\n", "\n", ". ", " "}

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("6f1c0a7e-3b8d-4c52-9e07-2d4a9b1f6c3e")

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits document content into overlapping chunks, preferring
// paragraph, line, sentence and word boundaries before a hard cut.
// Sizes are measured in characters (runes).
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
// The overlap must be strictly smaller than the chunk size.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d: %w",
			p.overlap, p.chunkSize, domain.ErrInvalidInput)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Split chunks every document in order.
func (p *Processor) Split(docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for i := range docs {
		chunks = append(chunks, p.Process(&docs[i])...)
	}
	return chunks
}

// Process splits one document. Whitespace-only content produces no chunks.
func (p *Processor) Process(doc *domain.Document) []domain.Chunk {
	if doc == nil || strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	pieces := p.splitText([]rune(doc.Content))
	chunks := make([]domain.Chunk, 0, len(pieces))
	for position, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			ID:         chunkID(doc.ID, position),
			DocumentID: doc.ID,
			Content:    piece,
			Position:   position,
			OriginPath: doc.OriginPath,
			Category:   doc.Category,
			Version:    doc.Version,
			Page:       doc.Page,
		})
	}
	return chunks
}

// splitText returns windows of at most chunkSize runes. Each window after
// the first starts at least overlap runes before the previous one ended and
// ends after it.
func (p *Processor) splitText(text []rune) []string {
	var out []string
	start, prevEnd := 0, 0
	for {
		if len(text)-start <= p.chunkSize {
			out = append(out, string(text[start:]))
			return out
		}

		end := p.breakPoint(text, start, prevEnd)
		out = append(out, string(text[start:end]))
		start, prevEnd = p.nextStart(text, start, end), end
	}
}

// breakPoint picks the end of the window beginning at start. The end must
// pass the previous window's end and leave room for progress after stepping
// back by the overlap.
func (p *Processor) breakPoint(text []rune, start, prevEnd int) int {
	limit := start + p.chunkSize
	minEnd := max(start+p.overlap+1, start+p.chunkSize/2, prevEnd+1)

	window := string(text[start:limit])
	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		// idx is a byte offset; convert the end of the separator to runes.
		end := start + utf8.RuneCountInString(window[:idx+len(sep)])
		if end >= minEnd {
			return end
		}
	}
	return limit
}

// nextStart steps back by the overlap from end, then extends the overlap
// to the start of a word when one is close by. The extension never makes
// the next window unable to reach past end.
func (p *Processor) nextStart(text []rune, start, end int) int {
	next := end - p.overlap
	if p.overlap == 0 {
		return next
	}
	floor := max(start+1, next-p.overlap/4, end-p.chunkSize+1)
	for i := next; i > floor; i-- {
		if unicode.IsSpace(text[i-1]) {
			return i
		}
	}
	return next
}

func chunkID(documentID string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(documentID+"#"+strconv.Itoa(position))).String()
}
