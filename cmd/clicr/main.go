// Package main provides the entry point for the clicr CLI.
package main

import (
	"os"

	"github.com/jagdteam/clicr/cmd/clicr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
