package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or any OpenAI-compatible local server.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible"
	default:
		return unknownDescription
	}
}

// IndexBackend selects the vector index implementation.
type IndexBackend string

// Available index backends.
const (
	// IndexBackendSQLite stores entries in a SQLite database file.
	IndexBackendSQLite IndexBackend = "sqlite"

	// IndexBackendChromem stores entries in a chromem-go persistent collection.
	IndexBackendChromem IndexBackend = "chromem"

	// IndexBackendMemory keeps entries in process memory only.
	IndexBackendMemory IndexBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b IndexBackend) IsValid() bool {
	switch b {
	case IndexBackendSQLite, IndexBackendChromem, IndexBackendMemory:
		return true
	default:
		return false
	}
}

// PathSettings holds on-disk locations.
type PathSettings struct {
	// SourceDocumentsDir is the corpus root.
	SourceDocumentsDir string

	// PersistDirectory holds the vector index generations.
	PersistDirectory string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.IsValid() && e.Model != ""
}

// LLMSettings holds language model configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the model served by the provider.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// ContextWindowSize is the model context length in tokens.
	ContextWindowSize int

	// ThreadCount is the number of inference threads.
	ThreadCount int

	// MaxOutputTokens caps the generated answer.
	MaxOutputTokens int

	// RequestTimeout bounds a single generation call.
	RequestTimeout time.Duration

	// Temperature controls sampling randomness.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.IsValid() && l.Model != ""
}

// ChunkerSettings holds chunking parameters, measured in characters.
type ChunkerSettings struct {
	ChunkSize    int
	ChunkOverlap int
}

// RetrievalSettings holds query-time retrieval parameters.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per question.
	TopK int
}

// IndexSettings holds vector index configuration.
type IndexSettings struct {
	// Backend selects the index implementation.
	Backend IndexBackend
}

// ServerSettings holds HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// APIKey, when set, is required in the X-API-Key header.
	APIKey string

	// RateLimit is the sustained requests per second allowed per client.
	RateLimit float64

	// RateBurst is the burst size per client.
	RateBurst int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Paths     PathSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunker   ChunkerSettings
	Retrieval RetrievalSettings
	Index     IndexSettings
	Server    ServerSettings
}

// Default settings values.
const (
	DefaultSourceDocumentsDir = "source_documents"
	DefaultPersistDirectory   = "chroma_db"
	DefaultOllamaURL          = "http://localhost:11434"
	DefaultEmbeddingModel     = "all-minilm"
	DefaultLLMModel           = "llama3.2"
	DefaultContextWindowSize  = 2048
	DefaultThreadCount        = 4
	DefaultMaxOutputTokens    = 2048
	DefaultRequestTimeout     = 300 * time.Second
	DefaultTemperature        = 0.3
	DefaultChunkSize          = 1000
	DefaultChunkOverlap       = 200
	DefaultTopK               = 10
	DefaultServerAddr         = ":8000"
	DefaultRateLimit          = 5.0
	DefaultRateBurst          = 10
)

// DefaultAppSettings returns settings with sensible defaults.
// Both models default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Paths: PathSettings{
			SourceDocumentsDir: DefaultSourceDocumentsDir,
			PersistDirectory:   DefaultPersistDirectory,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModel,
			BaseURL:  DefaultOllamaURL,
		},
		LLM: LLMSettings{
			Provider:          AIProviderOllama,
			Model:             DefaultLLMModel,
			BaseURL:           DefaultOllamaURL,
			ContextWindowSize: DefaultContextWindowSize,
			ThreadCount:       DefaultThreadCount,
			MaxOutputTokens:   DefaultMaxOutputTokens,
			RequestTimeout:    DefaultRequestTimeout,
			Temperature:       DefaultTemperature,
		},
		Chunker: ChunkerSettings{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{TopK: DefaultTopK},
		Index:     IndexSettings{Backend: IndexBackendSQLite},
		Server: ServerSettings{
			Addr:      DefaultServerAddr,
			RateLimit: DefaultRateLimit,
			RateBurst: DefaultRateBurst,
		},
	}
}

// AllAIProviders returns every supported provider.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: DefaultEmbeddingModel,
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: DefaultLLMModel,
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
