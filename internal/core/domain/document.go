package domain

// GeneralCategory is assigned to documents stored directly under the corpus root.
const GeneralCategory = "General"

// Document represents a loaded unit of text.
// Paged formats produce one Document per page.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OriginPath is the file the document was read from.
	OriginPath string

	// Content is the full text content after normalisation.
	// This is the complete text before chunking.
	Content string

	// Category is the corpus directory the file lives in, or GeneralCategory.
	Category string

	// Version is the revision number parsed from the file name (>= 1).
	Version int

	// Page is the 1-based page number, or 0 when the format has no pages.
	Page int

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any
}

// Chunk represents an embeddable unit within a document.
// It carries the provenance of its parent Document unmodified.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// OriginPath is inherited from the parent Document.
	OriginPath string

	// Category is inherited from the parent Document.
	Category string

	// Version is inherited from the parent Document.
	Version int

	// Page is inherited from the parent Document.
	Page int

	// Embedding is the vector representation for similarity search.
	Embedding []float32
}

// Key returns the version key grouping revisions of the same logical document.
func (c Chunk) Key() VersionKey {
	return VersionKey{Origin: OriginName(c.OriginPath), Category: c.Category}
}

// Section is one parsed piece of a file, such as a PDF page.
type Section struct {
	// Text is the extracted text.
	Text string

	// Page is the 1-based page number, or 0 if unknown.
	Page int
}

// CorpusFile is a file discovered in the corpus directory tree.
type CorpusFile struct {
	// Path is the absolute or root-relative path on disk.
	Path string

	// Name is the base file name.
	Name string

	// Category is the parent directory name, or GeneralCategory.
	Category string

	// SizeBytes is the file size.
	SizeBytes int64
}

// DocumentInfo describes a corpus file for listings.
type DocumentInfo struct {
	Filename  string `json:"filename"`
	Category  string `json:"category"`
	Version   int    `json:"version"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// SearchFilter restricts a similarity search.
type SearchFilter struct {
	// Category limits results to entries with exactly this category.
	// Empty means unscoped.
	Category string
}

// RetrievedChunk is a chunk returned by similarity search.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Similarity is the cosine similarity to the query.
	Similarity float64

	// IsLatest reports whether the chunk carries the newest version
	// among retrieved chunks with the same VersionKey.
	IsLatest bool
}
