package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/adapters/driving/api"
	"github.com/custodia-labs/docrag/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API.

Endpoints:
  GET  /ping, /health
  POST /query
  GET  /categories, /documents
  POST /ingest, /clear, /upload

When server.api_key is set (or API_KEY in the environment), every
endpoint except /ping and /health requires the X-API-Key header.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if ingestService == nil || corpusService == nil {
		return errors.New("services not configured")
	}
	if err := prepareEngine(cmd.Context()); err != nil {
		return err
	}

	cfg := api.Config{
		Addr:      serverSettings.Addr,
		APIKey:    serverSettings.APIKey,
		RateLimit: serverSettings.RateLimit,
		RateBurst: serverSettings.RateBurst,
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	server, err := api.NewServer(&api.Ports{
		Engine: engine,
		Ingest: ingestService,
		Corpus: corpusService,
	}, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.APIKey == "" {
		logger.Warn("API key not set; the HTTP API is unauthenticated")
	}
	logger.Info("HTTP API listening on %s", cfg.Addr)
	return server.Run(cmd.Context())
}
