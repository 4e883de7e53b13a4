// Package main is the entry point for the authcrawl CLI.
package main

import (
	"os"

	"github.com/jmylchreest/authcrawl/cmd/authcrawl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
