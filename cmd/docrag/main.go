// Command docrag answers questions from a folder of versioned documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/docrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docrag/internal/adapters/driven/corpus/filesystem"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage"
	"github.com/custodia-labs/docrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/core/services"
	"github.com/custodia-labs/docrag/internal/logger"
	"github.com/custodia-labs/docrag/internal/normalisers"
	"github.com/custodia-labs/docrag/internal/postprocessors"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// Environment variables read at startup.
const (
	envConfig = "DOCRAG_CONFIG"
	envAPIKey = "API_KEY"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetBuilder(build)
	err := cli.Execute(ctx)
	if cerr := cli.Close(); cerr != nil {
		logger.Warn("Shutdown: %v", cerr)
	}
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}

// build wires the driven adapters into the core services.
func build(_ context.Context, opts cli.Options) (*cli.Services, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = os.Getenv(envConfig)
	}
	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	settingsService := services.NewSettingsService(store, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if key := os.Getenv(envAPIKey); key != "" {
		settings.Server.APIKey = key
	}
	logger.Debug("Config: %s", store.Path())

	aiServices, err := ai.Initialise(settings)
	if err != nil {
		return nil, err
	}

	index, err := storage.OpenIndex(settings.Index.Backend, settings.Paths.PersistDirectory)
	if err != nil {
		aiServices.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	chunkers := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(chunkers)
	chunker, err := chunkers.Build(postprocessors.DefaultChunker, postprocessors.ChunkerConfig(settings.Chunker))
	if err != nil {
		index.Close()
		aiServices.Close()
		return nil, fmt.Errorf("build chunker: %w", err)
	}

	var prompts driven.PromptStore
	if ps, err := file.NewPromptStore(""); err != nil {
		logger.Warn("Custom prompts disabled: %v", err)
	} else {
		prompts = ps
	}

	engine := services.NewEngine(services.EngineConfig{
		Embedder: aiServices.EmbeddingService,
		Index:    index,
		Connect:  aiServices.Connect,
		Prompts:  prompts,
		TopK:     settings.Retrieval.TopK,
	})

	corpus := filesystem.New(settings.Paths.SourceDocumentsDir)
	registry := normalisers.NewDefaultRegistry()
	loader := services.NewLoader(corpus, registry)
	ingest := services.NewIngestService(loader, chunker, aiServices.EmbeddingService, index,
		services.WithEngine(engine))

	return &cli.Services{
		Engine:   engine,
		Ingest:   ingest,
		Corpus:   services.NewCorpusService(corpus, registry),
		Settings: settingsService,
		Server:   settings.Server,
		Close: func() error {
			aiServices.Close()
			return index.Close()
		},
	}, nil
}
