// Package main is the entry point for the genbictl CLI binary.
package main

import (
	"os"

	"genbi/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
