// Package main is the entry point for the m3udash application.
package main

import (
	"os"

	"github.com/jmylchreest/m3udash/cmd/m3udash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
