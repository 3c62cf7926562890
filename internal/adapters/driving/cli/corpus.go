package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

var (
	corpusJSON     bool
	uploadCategory string
	uploadVersion  int
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List document categories",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List source documents",
	Long: `Lists the supported documents under the source documents directory with
their category, version and size.`,
	Args: cobra.NoArgs,
	RunE: runDocuments,
}

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Add a document to the corpus",
	Long: `Copies a file into the source documents directory.

The file is stored in the --category folder (General stores it at the root).
With --version the stored name carries a "_v<N>" suffix, replacing any
suffix already present. Run "docrag ingest" afterwards to index it.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	categoriesCmd.Flags().BoolVar(&corpusJSON, "json", false, "output as JSON")
	documentsCmd.Flags().BoolVar(&corpusJSON, "json", false, "output as JSON")
	uploadCmd.Flags().StringVarP(&uploadCategory, "category", "c", "", "category folder (default General)")
	uploadCmd.Flags().IntVar(&uploadVersion, "version", 0, "version number to encode in the file name")
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(uploadCmd)
}

func runCategories(cmd *cobra.Command, _ []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	categories, err := corpusService.Categories(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}

	if corpusJSON {
		return outputJSON(cmd, map[string][]string{"categories": categories})
	}
	if len(categories) == 0 {
		cmd.Println("No categories found.")
		return nil
	}
	for _, c := range categories {
		cmd.Println(c)
	}
	return nil
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	docs, err := corpusService.Documents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if corpusJSON {
		return outputJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Printf("%-16s %-8s %10s  %s\n", "CATEGORY", "VERSION", "SIZE", "FILE")
	for _, d := range docs {
		cmd.Printf("%-16s %-8d %10d  %s\n", d.Category, d.Version, d.SizeBytes, d.Filename)
	}
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := corpusService.Upload(cmd.Context(), driving.UploadRequest{
		Filename: filepath.Base(args[0]),
		Category: uploadCategory,
		Version:  uploadVersion,
		Body:     f,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Printf("Stored %s (category %s, version %d).\n", info.Path, info.Category, info.Version)
	cmd.Println("Run 'docrag ingest' to index it.")
	return nil
}
