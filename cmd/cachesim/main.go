// Package main provides the cachesim CLI for replaying access traces
// against pluggable cache eviction policies.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
