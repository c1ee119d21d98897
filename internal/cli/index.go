package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/CamdenClark/zett-languageservice/internal/index"
	"github.com/CamdenClark/zett-languageservice/internal/links"
	"github.com/CamdenClark/zett-languageservice/internal/slug"
	"github.com/CamdenClark/zett-languageservice/internal/toc"
	"github.com/CamdenClark/zett-languageservice/internal/tokenizer"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Rebuild the persistent link index",
	Long: `Index scans every markdown document under the workspace root and
rebuilds the sqlite link index that backs references and the graph view.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := rootDir
	if len(args) > 0 {
		var err error
		root, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	ws, err := workspace.NewDir(root, cfg.Excludes...)
	if err != nil {
		return err
	}

	tok := tokenizer.NewMarkdown()
	slugifier := slug.NewGitHub()
	tocs := toc.NewProvider(tok, slugifier, ws)
	defer tocs.Dispose()
	linkProvider := links.NewProvider(tok, ws, tocs, slugifier)
	defer linkProvider.Dispose()

	indexPath := filepath.Join(ws.Root(), filepath.FromSlash(cfg.IndexPath))
	if err := os.MkdirAll(filepath.Dir(indexPath), 0700); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	idx, err := index.Open(indexPath, ws, linkProvider)
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	docs, err := ws.GetAllMarkdownDocuments(ctx)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("indexing"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	for _, doc := range docs {
		if err := idx.Update(ctx, doc); err != nil {
			return fmt.Errorf("failed to index %s: %w", doc.URI(), err)
		}
		bar.Add(1)
	}

	fmt.Printf("indexed %d document(s) into %s\n", len(docs), indexPath)
	return nil
}
