package driven

import "github.com/custodia-labs/docrag/internal/core/domain"

// AIConfigValidator checks that configured AI providers are reachable.
type AIConfigValidator interface {
	// ValidateEmbedding pings the embedding provider. Unconfigured settings are not an error.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the language model provider. Unconfigured settings are not an error.
	ValidateLLM(config *domain.LLMSettings) error
}
