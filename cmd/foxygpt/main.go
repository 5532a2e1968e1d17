package main

import (
	"fmt"
	"os"

	"github.com/sveny/foxygpt/cmd/foxygpt/commands"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	if err := commands.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
