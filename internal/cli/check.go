package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CamdenClark/zett-languageservice/internal/diagnostics"
	"github.com/CamdenClark/zett-languageservice/internal/document"
	"github.com/CamdenClark/zett-languageservice/internal/links"
	"github.com/CamdenClark/zett-languageservice/internal/slug"
	"github.com/CamdenClark/zett-languageservice/internal/toc"
	"github.com/CamdenClark/zett-languageservice/internal/tokenizer"
	"github.com/CamdenClark/zett-languageservice/internal/workspace"
)

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Validate every link in the workspace",
	Long: `Check scans every markdown document under the workspace root,
validates its links and prints each finding. The exit code is non-zero
when any link is broken.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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
	computer := diagnostics.NewComputer(ws, linkProvider, tocs, slugifier)

	ctx := context.Background()
	docs, err := ws.GetAllMarkdownDocuments(ctx)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("checking"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	options := cfg.DiagnosticOptions()
	broken := 0
	for _, doc := range docs {
		report, err := computer.Compute(ctx, doc, options)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", doc.URI(), err)
		}
		bar.Add(1)
		for _, diag := range report.Diagnostics {
			broken++
			path := displayPath(root, doc.URI())
			fmt.Printf("%s:%d:%d: %s\n", path, diag.Range.Start.Line+1, diag.Range.Start.Character+1, diag.Message)
		}
	}

	if broken > 0 {
		return fmt.Errorf("%d broken link(s)", broken)
	}
	fmt.Printf("checked %d document(s), no broken links\n", len(docs))
	return nil
}

// displayPath shortens a document URI to a path relative to the root.
func displayPath(root string, uri protocol.DocumentUri) string {
	path, err := document.ToPath(uri)
	if err != nil {
		return string(uri)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
