// Package main provides the colgraph CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/colgraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
