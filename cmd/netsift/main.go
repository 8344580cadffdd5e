// Package main provides the entry point for the netsift CLI.
package main

import (
	"os"

	"github.com/netsift/netsift/cmd/netsift/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
