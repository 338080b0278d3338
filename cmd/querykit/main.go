// Package main is the entry point for the querykit CLI.
package main

import (
	"os"

	"github.com/satishbabariya/querykit/cmd/querykit/commands"
	"github.com/satishbabariya/querykit/cmd/querykit/ui"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		ui.PrintError("%v", err)
		os.Exit(1)
	}
}
