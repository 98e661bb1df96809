package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cachelab/cachesim/evaluate"
	"github.com/cachelab/cachesim/policy/luapolicy"
	"github.com/cachelab/cachesim/reporting"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run a batch evaluation from a YAML config",
	Long: `Run every configured policy against every configured trace at every
configured capacity, in parallel, and write one JSONL entry per run.

Example config:

  traces:
    - name: web
      path: traces/web.csv.zst
      has_header: true
  policies: [lru, lfu, gdsf]
  capacities: [67108864]
  capacity_fractions: [0.01, 0.1]
  train_fraction: 0.5
  baseline: lru

Examples:
  cachesim evaluate --config eval.yaml --output results.jsonl
  cachesim evaluate --config eval.yaml --report report.md`,
	RunE: runEvaluate,
}

var (
	evalConfigPath string
	evalOutput     string
	evalReport     string
	evalTitle      string
)

func init() {
	evaluateCmd.Flags().StringVar(&evalConfigPath, "config", "", "path to the YAML evaluation config (required)")
	evaluateCmd.Flags().StringVarP(&evalOutput, "output", "o", "", "write JSONL results to this file (stdout when empty)")
	evaluateCmd.Flags().StringVar(&evalReport, "report", "", "write a Markdown report to this file")
	evaluateCmd.Flags().StringVar(&evalTitle, "title", "Cache Policy Evaluation", "report title")
	evaluateCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := evaluate.LoadConfig(evalConfigPath)
	if err != nil {
		return err
	}

	for name, path := range cfg.LuaPolicies {
		if err := luapolicy.RegisterFile(name, path); err != nil {
			return fmt.Errorf("registering Lua policy %q: %w", name, err)
		}
	}

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
	entries, err := evaluate.New(cfg, evaluate.WithLogger(logger.Named("evaluate"))).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d runs in %s\n", len(entries), time.Since(start).Round(time.Millisecond))

	if evalOutput != "" {
		if err := evaluate.WriteFile(evalOutput, entries); err != nil {
			return err
		}
	} else if err := evaluate.WriteJSONL(os.Stdout, entries); err != nil {
		return err
	}

	if evalReport != "" {
		f, err := os.Create(evalReport)
		if err != nil {
			return fmt.Errorf("creating report: %w", err)
		}
		if err := reporting.WriteReport(f, evalTitle, cfg, entries); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "report written to %s\n", evalReport)
	}

	return nil
}
