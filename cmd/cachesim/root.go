package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/cachelab/cachesim/policy/clock"
	_ "github.com/cachelab/cachesim/policy/fifo"
	_ "github.com/cachelab/cachesim/policy/gdsf"
	_ "github.com/cachelab/cachesim/policy/lfu"
	_ "github.com/cachelab/cachesim/policy/lru"
)

var (
	// Global flags.
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "Deterministic cache replacement policy simulator",
	Long: `Cachesim replays access traces against a cache of fixed capacity and
reports the miss ratio of pluggable eviction policies.

Runs are deterministic: the same trace and policy always produce the
same result, which makes policies directly comparable.

Examples:
  # Replay a trace with LRU at 1 GiB capacity
  cachesim run trace.csv --policy lru --capacity 1073741824

  # Compare several policies across traces and capacities
  cachesim evaluate --config eval.yaml --output results.jsonl

  # List the available policies
  cachesim policies`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// newLogger builds the CLI logger: human-readable debug output when
// --verbose is set, silence otherwise.
func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
