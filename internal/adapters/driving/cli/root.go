// Package cli provides the cobra command tree for docrag.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Options carries the global flags to the service builder.
type Options struct {
	// ConfigPath overrides the config file location.
	ConfigPath string

	// Verbose enables debug logging.
	Verbose bool
}

// Services holds the driving ports used by the commands.
type Services struct {
	Engine   driving.Engine
	Ingest   driving.IngestService
	Corpus   driving.CorpusService
	Settings driving.SettingsService

	// Server holds the HTTP API settings for serve.
	Server domain.ServerSettings

	// Close releases the index and model handles. May be nil.
	Close func() error
}

// Builder constructs services once the global flags are parsed.
type Builder func(ctx context.Context, opts Options) (*Services, error)

var (
	opts    Options
	builder Builder

	engine          driving.Engine
	ingestService   driving.IngestService
	corpusService   driving.CorpusService
	settingsService driving.SettingsService
	serverSettings  = domain.DefaultAppSettings().Server
	closeServices   func() error
)

// skipServices marks commands that run without building services.
const skipServices = "skip-services"

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Ask questions about your documents",
	Long: `docrag answers questions from a folder of versioned documents.

Documents live in category folders under the source documents directory.
A "_v<N>" suffix in a file name marks its revision; answers cite every
retrieved source and flag which revisions are the latest.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.docrag/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
}

// SetBuilder registers the function that constructs services.
func SetBuilder(b Builder) {
	builder = b
}

// SetServices installs services directly, bypassing the builder.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	engine = s.Engine
	ingestService = s.Ingest
	corpusService = s.Corpus
	settingsService = s.Settings
	if s.Server != (domain.ServerSettings{}) {
		serverSettings = s.Server
	}
	closeServices = s.Close
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Command output goes to stdout.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if cmd.Annotations[skipServices] == "true" || builder == nil {
		return nil
	}
	s, err := builder(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	SetServices(s)
	return nil
}

// Close releases services built by the builder. It is safe to call twice.
func Close() error {
	return teardown()
}

func teardown() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// prepareEngine probes the model and index. Failures are logged; the
// engine degrades instead of refusing to start.
func prepareEngine(ctx context.Context) error {
	if engine == nil {
		return errors.New("query engine not configured")
	}
	if err := engine.Reinitialize(ctx); err != nil {
		logger.Warn("Engine not ready: %v", err)
	}
	return nil
}

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInvalid     = 2
	ExitUnavailable = 3
	ExitBusy        = 4
)

// ExitCode maps an error from Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrNotFound):
		return ExitInvalid
	case errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrIndexUnavailable):
		return ExitUnavailable
	case errors.Is(err, domain.ErrIndexBusy),
		errors.Is(err, domain.ErrIngestInProgress):
		return ExitBusy
	default:
		return ExitFailure
	}
}
