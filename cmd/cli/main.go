// Package main is the entry point for the datafood CLI binary.
package main

import (
	"os"

	"datafood/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
