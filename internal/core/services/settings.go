package services

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySourceDir       = "paths.source_documents_dir"
	keyPersistDir      = "paths.persist_directory"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMContext      = "llm.context_window_size"
	keyLLMThreads      = "llm.thread_count"
	keyLLMMaxTokens    = "llm.max_output_tokens"
	keyLLMTimeout      = "llm.request_timeout"
	keyLLMTemperature  = "llm.temperature"
	keyChunkSize       = "chunker.chunk_size"
	keyChunkOverlap    = "chunker.chunk_overlap"
	keyTopK            = "retrieval.top_k"
	keyIndexBackend    = "index.backend"
	keyServerAddr      = "server.addr"
	keyServerAPIKey    = "server.api_key"
	keyServerRateLimit = "server.rate_limit"
	keyServerRateBurst = "server.rate_burst"
)

// keyKind is the value type stored under a key.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindProvider
	kindBackend
)

var keyKinds = map[string]keyKind{
	keySourceDir:       kindString,
	keyPersistDir:      kindString,
	keyEmbedProvider:   kindProvider,
	keyEmbedModel:      kindString,
	keyEmbedBaseURL:    kindString,
	keyEmbedAPIKey:     kindString,
	keyLLMProvider:     kindProvider,
	keyLLMModel:        kindString,
	keyLLMBaseURL:      kindString,
	keyLLMAPIKey:       kindString,
	keyLLMContext:      kindInt,
	keyLLMThreads:      kindInt,
	keyLLMMaxTokens:    kindInt,
	keyLLMTimeout:      kindInt,
	keyLLMTemperature:  kindFloat,
	keyChunkSize:       kindInt,
	keyChunkOverlap:    kindInt,
	keyTopK:            kindInt,
	keyIndexBackend:    kindBackend,
	keyServerAddr:      kindString,
	keyServerAPIKey:    kindString,
	keyServerRateLimit: kindFloat,
	keyServerRateBurst: kindInt,
}

// legacyKeys maps the flat keys of a config.yaml onto dotted keys.
var legacyKeys = map[string]string{
	"source_documents_dir": keySourceDir,
	"persist_directory":    keyPersistDir,
	"embedding_model_name": keyEmbedModel,
	"model_path":           keyLLMModel,
	"n_ctx":                keyLLMContext,
	"context_window_size":  keyLLMContext,
	"n_threads":            keyLLMThreads,
	"thread_count":         keyLLMThreads,
	"max_tokens":           keyLLMMaxTokens,
	"max_output_tokens":    keyLLMMaxTokens,
	"request_timeout":      keyLLMTimeout,
	"chunk_size":           keyChunkSize,
	"chunk_overlap":        keyChunkOverlap,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service. aiValidator may be nil,
// in which case Validate only checks consistency.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings. Missing keys take defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, d.Embedding.Provider)
	llmProvider := s.getProvider(keyLLMProvider, d.LLM.Provider)

	settings := &domain.AppSettings{
		Paths: domain.PathSettings{
			SourceDocumentsDir: s.getString(keySourceDir, d.Paths.SourceDocumentsDir),
			PersistDirectory:   s.getString(keyPersistDir, d.Paths.PersistDirectory),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: embedProvider,
			Model:    s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[embedProvider]),
			BaseURL:  s.getString(keyEmbedBaseURL, defaultBaseURL(embedProvider)),
			APIKey:   s.getString(keyEmbedAPIKey, ""),
		},
		LLM: domain.LLMSettings{
			Provider:          llmProvider,
			Model:             s.getModel(domain.DefaultLLMModels()[llmProvider]),
			BaseURL:           s.getString(keyLLMBaseURL, defaultBaseURL(llmProvider)),
			APIKey:            s.getString(keyLLMAPIKey, ""),
			ContextWindowSize: s.getInt(keyLLMContext, d.LLM.ContextWindowSize),
			ThreadCount:       s.getInt(keyLLMThreads, d.LLM.ThreadCount),
			MaxOutputTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxOutputTokens),
			RequestTimeout:    time.Duration(s.getInt(keyLLMTimeout, int(d.LLM.RequestTimeout/time.Second))) * time.Second,
			Temperature:       s.getFloat(keyLLMTemperature, d.LLM.Temperature),
		},
		Chunker: domain.ChunkerSettings{
			ChunkSize:    s.getInt(keyChunkSize, d.Chunker.ChunkSize),
			ChunkOverlap: s.getIntAllowZero(keyChunkOverlap, d.Chunker.ChunkOverlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyTopK, d.Retrieval.TopK),
		},
		Index: domain.IndexSettings{
			Backend: s.getBackend(d.Index.Backend),
		},
		Server: domain.ServerSettings{
			Addr:      s.getString(keyServerAddr, d.Server.Addr),
			APIKey:    s.getString(keyServerAPIKey, ""),
			RateLimit: s.getFloat(keyServerRateLimit, d.Server.RateLimit),
			RateBurst: s.getInt(keyServerRateBurst, d.Server.RateBurst),
		},
	}

	return settings, nil
}

// Set parses value for key and persists it. Legacy flat keys are accepted
// and stored under their dotted name.
func (s *SettingsService) Set(key, value string) error {
	key = strings.TrimSpace(key)
	if mapped, ok := legacyKeys[key]; ok {
		key = mapped
	}
	kind, ok := keyKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	value = strings.TrimSpace(value)
	var parsed any
	switch kind {
	case kindString:
		parsed = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: %s must be one of %v", domain.ErrInvalidInput, key, domain.AllAIProviders())
		}
		parsed = value
	case kindBackend:
		if !domain.IndexBackend(value).IsValid() {
			return fmt.Errorf("%w: unknown index backend %q", domain.ErrInvalidInput, value)
		}
		parsed = value
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every recognised dotted key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the current settings for consistency and, when a
// validator was supplied, that the configured providers answer.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider is not configured"))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("llm provider is not configured"))
	}
	if settings.Chunker.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunker.chunk_size must be positive"))
	}
	if settings.Chunker.ChunkOverlap >= settings.Chunker.ChunkSize {
		errs = append(errs, fmt.Errorf("chunker.chunk_overlap (%d) must be below chunker.chunk_size (%d)",
			settings.Chunker.ChunkOverlap, settings.Chunker.ChunkSize))
	}
	if settings.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be positive"))
	}
	if !settings.Index.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("unknown index backend %q", settings.Index.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}

	if s.aiValidator == nil {
		return nil
	}
	if err := s.aiValidator.ValidateEmbedding(&settings.Embedding); err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

// lookup returns the store key holding a value for key, preferring the
// dotted key over any legacy alias. Aliases are tried in sorted order.
func (s *SettingsService) lookup(key string) (string, bool) {
	if _, ok := s.configStore.Get(key); ok {
		return key, true
	}
	for _, legacy := range slices.Sorted(maps.Keys(legacyKeys)) {
		if legacyKeys[legacy] != key {
			continue
		}
		if _, ok := s.configStore.Get(legacy); ok {
			return legacy, true
		}
	}
	return "", false
}

func (s *SettingsService) getString(key, defaultVal string) string {
	k, ok := s.lookup(key)
	if !ok {
		return defaultVal
	}
	if val := s.configStore.GetString(k); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	k, ok := s.lookup(key)
	if !ok {
		return defaultVal
	}
	if val := s.configStore.GetInt(k); val > 0 {
		return val
	}
	return defaultVal
}

// getIntAllowZero treats an explicit zero as a value rather than a gap.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	k, ok := s.lookup(key)
	if !ok {
		return defaultVal
	}
	if val := s.configStore.GetInt(k); val >= 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	k, ok := s.lookup(key)
	if !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(k)
}

// getModel reads llm.model. A model_path from an old config pointing at a
// weights file is reduced to the file's stem.
func (s *SettingsService) getModel(defaultVal string) string {
	k, ok := s.lookup(keyLLMModel)
	if !ok {
		return defaultVal
	}
	val := s.configStore.GetString(k)
	if val == "" {
		return defaultVal
	}
	if k != keyLLMModel {
		switch ext := strings.ToLower(filepath.Ext(val)); ext {
		case ".gguf", ".bin":
			base := filepath.Base(val)
			val = base[:len(base)-len(ext)]
		}
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.getString(key, ""))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.IndexBackend) domain.IndexBackend {
	backend := domain.IndexBackend(s.getString(keyIndexBackend, ""))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func defaultBaseURL(provider domain.AIProvider) string {
	if provider == domain.AIProviderOllama {
		return domain.DefaultOllamaURL
	}
	return ""
}
