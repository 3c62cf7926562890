package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

// progressInterval is how often ingestion progress is polled.
const progressInterval = 500 * time.Millisecond

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index the source documents",
	Long: `Loads every supported document under the source documents directory,
splits it into overlapping chunks, embeds them and replaces the index.
Files that fail to parse are skipped and counted. The previous index stays
in place until the new one is complete.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	cmd.Println("Indexing documents...")
	report, err := ingestWithProgress(cmd.Context(), cmd, ingestService)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		return outputJSON(cmd, report)
	}
	outputReport(cmd, report)
	return nil
}

// ingestWithProgress runs ingestion while displaying progress updates.
func ingestWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	svc driving.IngestService,
) (*domain.IngestReport, error) {
	type result struct {
		report *domain.IngestReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := svc.Ingest(ctx)
		done <- result{report, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var last string
	for {
		select {
		case r := <-done:
			if last != "" {
				cmd.Println()
			}
			return r.report, r.err
		case <-ticker.C:
			if line := progressLine(svc.Status()); line != "" && line != last {
				cmd.Printf("\r%s", line)
				last = line
			}
		}
	}
}

func progressLine(st driving.IngestStatus) string {
	if !st.Running {
		return ""
	}
	switch st.Stage {
	case driving.IngestStageLoading:
		return "Loading documents..."
	case driving.IngestStageChunking:
		return fmt.Sprintf("Chunking %d documents...", st.DocumentsLoaded)
	case driving.IngestStageEmbedding:
		return fmt.Sprintf("Embedding... %d/%d chunks", st.ChunksEmbedded, st.ChunksTotal)
	case driving.IngestStageWriting:
		return fmt.Sprintf("Writing %d chunks...", st.ChunksTotal)
	default:
		return ""
	}
}

func outputReport(cmd *cobra.Command, r *domain.IngestReport) {
	if r == nil {
		cmd.Println("Nothing to index.")
		return
	}
	cmd.Printf("Indexed %d documents into %d chunks in %s.\n",
		r.Documents, r.Chunks, r.Duration.Round(time.Millisecond))
	if r.Skipped > 0 {
		cmd.Printf("Skipped %d files that could not be parsed (run with --verbose for details).\n", r.Skipped)
	}
}
