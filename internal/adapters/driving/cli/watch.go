package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/logger"
)

// DefaultWatchDebounce is the quiet period before a change triggers ingestion.
const DefaultWatchDebounce = 2 * time.Second

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-index when the corpus changes",
	Long: `Watches the source documents directory and runs ingestion after files
are added, changed or removed. Bursts of changes are coalesced; ingestion
starts once the directory has been quiet for --debounce.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", DefaultWatchDebounce, "quiet period before re-indexing")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if corpusService == nil || ingestService == nil {
		return errors.New("services not configured")
	}
	ctx := cmd.Context()
	r := newReindexer(ctx, cmd)
	defer r.wait()

	cmd.Println("Watching for changes. Press Ctrl+C to stop.")
	err := corpusService.Watch(ctx, watchDebounce, r.trigger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// reindexer runs ingestion for corpus changes. A change that arrives while
// a run is active schedules exactly one more run after it.
type reindexer struct {
	ctx context.Context
	cmd *cobra.Command

	mu      sync.Mutex
	running bool
	pending bool
	wg      sync.WaitGroup
}

func newReindexer(ctx context.Context, cmd *cobra.Command) *reindexer {
	return &reindexer{ctx: ctx, cmd: cmd}
}

func (r *reindexer) trigger() {
	r.mu.Lock()
	if r.running {
		r.pending = true
		r.mu.Unlock()
		return
	}
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	for {
		reindex(r.ctx, r.cmd)

		r.mu.Lock()
		if !r.pending || r.ctx.Err() != nil {
			r.running, r.pending = false, false
			r.mu.Unlock()
			return
		}
		r.pending = false
		r.mu.Unlock()
		logger.Debug("corpus changed during ingestion, re-indexing again")
	}
}

// wait blocks until the active run, if any, has finished.
func (r *reindexer) wait() {
	r.wg.Wait()
}

func reindex(ctx context.Context, cmd *cobra.Command) {
	report, err := ingestService.Ingest(ctx)
	switch {
	case errors.Is(err, domain.ErrIngestInProgress):
		logger.Warn("Another ingestion is running; this change will be indexed by the next one")
		return
	case err != nil:
		logger.Error("Re-index failed: %v", err)
		return
	}
	outputReport(cmd, report)
	if engine != nil {
		if err := engine.Reinitialize(ctx); err != nil {
			logger.Warn("Engine not ready: %v", err)
		}
	}
}
