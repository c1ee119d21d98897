package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/CamdenClark/zett-languageservice/internal/server"
)

var logfile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server over stdio",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logfile, "logfile", "", "path to log file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if logfile != "" {
		f, err := os.OpenFile(logfile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("starting language server")
	} else {
		log.SetOutput(io.Discard)
	}
	commonlog.Configure(2, nil) // logger used by glsp

	return server.New().RunStdio()
}
