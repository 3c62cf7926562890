package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var statusJSON bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every chunk from the index",
	Long: `Empties the vector index. Fails without waiting if a search or ingestion
currently holds the index; retry once it finishes.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine readiness",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statusCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if engine == nil {
		return errors.New("query engine not configured")
	}

	if err := engine.ClearIndex(cmd.Context()); err != nil {
		if errors.Is(err, domain.ErrIndexBusy) {
			return fmt.Errorf("index is in use, try again shortly: %w", err)
		}
		return fmt.Errorf("clear failed: %w", err)
	}
	cmd.Println("Index cleared.")
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := prepareEngine(cmd.Context()); err != nil {
		return err
	}

	st := engine.Status(cmd.Context())
	if statusJSON {
		return outputJSON(cmd, st)
	}

	cmd.Printf("Engine ready:    %s\n", yesNo(st.Ready))
	cmd.Printf("Model:           %s (available: %s)\n", orNone(st.Model), yesNo(st.LLMAvailable))
	cmd.Printf("Embedding model: %s\n", orNone(st.EmbeddingModel))
	cmd.Printf("Indexed chunks:  %d\n", st.IndexedChunks)

	if ingestService != nil {
		if ist := ingestService.Status(); ist.Running {
			cmd.Printf("Ingestion:       %s\n", ist.Stage)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
