// Package main provides the entry point for the codanna CLI.
package main

import (
	"os"

	"github.com/codanna-go/codanna/cmd/codanna/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
