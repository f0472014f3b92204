// Package main is the entry point for the plaintasks CLI.
package main

import (
	"fmt"
	"os"

	"github.com/plaintasks/plaintasks/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	rootCmd := cli.NewRootCommand(version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
