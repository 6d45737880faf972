// Package main is the entry point for the grid server.
// This is a thin wrapper around the cli package.
package main

import (
	"os"

	"github.com/drewnoakes/biggus-griddus/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
