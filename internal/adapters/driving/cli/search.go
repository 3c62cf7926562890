package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

var (
	searchCategory string
	searchLimit    int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed passages",
	Long: `Performs a similarity search over the indexed passages without asking the
model. Results are ranked by cosine similarity and tagged with the version
markers used in answers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "restrict results to one category")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchResult is the JSON shape of one passage.
type searchResult struct {
	domain.Source
	Position int `json:"position"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := prepareEngine(cmd.Context()); err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results, err := engine.Retrieval().Search(cmd.Context(), query, searchLimit, searchCategory)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		out := make([]searchResult, 0, len(results))
		for _, r := range results {
			out = append(out, searchResult{Source: domain.NewSource(r), Position: r.Chunk.Position})
		}
		return outputJSON(cmd, out)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		src := domain.NewSource(r)
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, src, src.Similarity)
		if snippet := snippet(src.Excerpt, 160); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// snippet collapses whitespace and truncates to n runes.
func snippet(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
