package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cachelab/cachesim"
	statsprom "github.com/cachelab/cachesim/internal/stats/prometheus"
	"github.com/cachelab/cachesim/internal/trace"
	"github.com/cachelab/cachesim/policy"
	"github.com/cachelab/cachesim/policy/luapolicy"
)

var runCmd = &cobra.Command{
	Use:   "run TRACE",
	Short: "Replay a trace through one policy and report the miss ratio",
	Long: `Replay a trace file through a single policy at a fixed capacity.

The trace is a delimited text file with one access per line. Columns
are configurable; by default the key is column 0 and the size column 1.
Files ending in .zst or .gz are decompressed on the fly.

Examples:
  # LRU at 64 MiB over a comma-delimited key,size trace
  cachesim run trace.csv --policy lru --capacity 67108864

  # A trace without sizes: every object occupies one capacity unit
  cachesim run keys.csv --size-column -1 --policy clock --capacity 1000

  # A custom policy written in Lua
  cachesim run trace.csv.zst --lua mypolicy.lua --capacity 67108864

  # Expose Prometheus metrics while replaying
  cachesim run trace.csv --policy lru --capacity 67108864 --metrics-listen :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runPolicy     string
	runLuaScript  string
	runCapacity   int64
	runKeyColumn  int
	runSizeColumn int
	runDelimiter  string
	runHasHeader  bool
	runJSON       bool
	runProgress   bool
	metricsListen string
)

func init() {
	runCmd.Flags().StringVarP(&runPolicy, "policy", "p", "lru", "eviction policy name")
	runCmd.Flags().StringVar(&runLuaScript, "lua", "", "path to a Lua policy script (overrides --policy)")
	runCmd.Flags().Int64VarP(&runCapacity, "capacity", "c", 0, "cache capacity in size units (required)")
	runCmd.Flags().IntVar(&runKeyColumn, "key-column", 0, "zero-based column holding the key")
	runCmd.Flags().IntVar(&runSizeColumn, "size-column", 1, "zero-based column holding the size, -1 for unit sizes")
	runCmd.Flags().StringVar(&runDelimiter, "delimiter", ",", "field delimiter")
	runCmd.Flags().BoolVar(&runHasHeader, "header", false, "skip the first line of the trace")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "output result as JSON")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "print progress while replaying")
	runCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address during the replay")
	runCmd.MarkFlagRequired("capacity")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	if len(runDelimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", runDelimiter)
	}

	// Resolve the policy.
	var pol cachesim.Policy
	if runLuaScript != "" {
		lp, err := luapolicy.NewFromFile(runLuaScript)
		if err != nil {
			return fmt.Errorf("loading Lua policy: %w", err)
		}
		defer lp.Close()
		pol = lp
	} else {
		p, err := policy.New(runPolicy)
		if err != nil {
			return err
		}
		if closer, ok := p.(interface{ Close() }); ok {
			defer closer.Close()
		}
		pol = p
	}

	reader, err := trace.Open(args[0], trace.Format{
		KeyColumn:  runKeyColumn,
		SizeColumn: runSizeColumn,
		Delimiter:  rune(runDelimiter[0]),
		HasHeader:  runHasHeader,
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	opts := []cachesim.Option{
		cachesim.WithPolicy(pol),
		cachesim.WithCapacity(runCapacity),
		cachesim.WithLogger(logger.Named("cachesim")),
	}

	if metricsListen != "" {
		collector, err := statsprom.New(nil)
		if err != nil {
			return fmt.Errorf("creating metrics collector: %w", err)
		}
		opts = append(opts, cachesim.WithStats(collector))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(metricsListen, mux); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
	}

	if runProgress {
		opts = append(opts, cachesim.WithProgress(func(p cachesim.Progress) {
			fmt.Fprintf(os.Stderr, "\r%d requests, %d hits, %d misses, %s resident",
				p.Requests, p.Hits, p.Misses, formatBytes(p.ResidentBytes))
		}))
	}

	sim, err := cachesim.New(opts...)
	if err != nil {
		return err
	}

	// Handle interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		cancel()
	}()

	start := time.Now()
	result, err := sim.Replay(ctx, reader)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if runProgress {
		fmt.Fprintln(os.Stderr)
	}

	if runJSON {
		return printResultJSON(result, elapsed)
	}
	printResultText(args[0], result, elapsed)
	return nil
}

func printResultText(tracePath string, result *cachesim.Result, elapsed time.Duration) {
	fmt.Printf("Trace:      %s\n", tracePath)
	fmt.Printf("Capacity:   %s\n", formatBytes(runCapacity))
	fmt.Printf("Accesses:   %d\n", result.Accesses)
	fmt.Printf("Hits:       %d\n", result.Hits)
	fmt.Printf("Misses:     %d\n", result.Misses)
	fmt.Printf("Evictions:  %d\n", result.Evictions)
	fmt.Printf("Rejections: %d\n", result.Rejections)
	fmt.Printf("Miss ratio: %.4f\n", result.MissRatio())
	fmt.Printf("Time:       %s\n", elapsed.Round(time.Millisecond))
}

func printResultJSON(result *cachesim.Result, elapsed time.Duration) error {
	out := struct {
		Accesses   uint64  `json:"accesses"`
		Hits       uint64  `json:"hits"`
		Misses     uint64  `json:"misses"`
		Evictions  uint64  `json:"evictions"`
		Rejections uint64  `json:"rejections"`
		MissRatio  float64 `json:"miss_ratio"`
		ElapsedMS  int64   `json:"elapsed_ms"`
	}{
		Accesses:   result.Accesses,
		Hits:       result.Hits,
		Misses:     result.Misses,
		Evictions:  result.Evictions,
		Rejections: result.Rejections,
		MissRatio:  result.MissRatio(),
		ElapsedMS:  elapsed.Milliseconds(),
	}
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(out)
}
