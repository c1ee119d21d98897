package main

import (
	"github.com/CamdenClark/zett-languageservice/internal/cli"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

func main() {
	cli.SetVersion(Version)
	cli.Execute()
}
