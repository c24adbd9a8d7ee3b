// Package main provides the recordkeeper command.
package main

import (
	"os"

	"github.com/leapstack-labs/recordkeeper/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
