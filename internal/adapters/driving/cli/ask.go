package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var (
	askCategory string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the documents",
	Long: `Retrieves the passages most similar to the question and asks the model
to answer from them. Every retrieved source is listed with its page, category
and version; the newest revision of each document is marked [LATEST].

Use --category to search one category only, or --category Noting to send
the question straight to the model without retrieval.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCategory, "category", "c", "", "restrict retrieval to one category")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := prepareEngine(cmd.Context()); err != nil {
		return err
	}

	req := domain.QueryRequest{
		Question: strings.Join(args, " "),
		Category: askCategory,
	}
	result, err := engine.Answer().Ask(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputJSON(cmd, result)
	}
	outputAnswer(cmd, result)
	return nil
}

func outputAnswer(cmd *cobra.Command, result *domain.QueryResult) {
	cmd.Println(result.Answer)
	if len(result.Sources) == 0 {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range result.Sources {
		cmd.Printf("  [%d] %s\n", i+1, src)
	}
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
