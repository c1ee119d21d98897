// Package cli is the command surface: an LSP server over stdio plus batch
// tooling for checking and indexing a workspace from the terminal.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/CamdenClark/zett-languageservice/internal/config"
)

var (
	cfgFile string
	cfg     config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "zett",
	Short: "Markdown link intelligence for zettelkasten workspaces",
	Long: `zett resolves, validates and indexes the links between the markdown
documents of a workspace.

Example usage:
  zett serve           # run the LSP server over stdio
  zett check .         # validate every link in the workspace
  zett index .         # rebuild the persistent link index`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		path := cfgFile
		if path == "" {
			path = filepath.Join(rootDir, "zett.yaml")
		}
		cfg, err = config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// SetVersion wires the build-time version string into the root command.
func SetVersion(version string) {
	rootCmd.Version = version
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./zett.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "workspace root (default is current directory)")
}
