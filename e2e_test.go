//go:build e2e

package cachesim_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/analysis"
	"github.com/cachelab/cachesim/evaluate"
	"github.com/cachelab/cachesim/internal/trace"
	"github.com/cachelab/cachesim/policy/lru"
	"github.com/cachelab/cachesim/reporting"

	_ "github.com/cachelab/cachesim/policy/fifo"
	_ "github.com/cachelab/cachesim/policy/gdsf"
	_ "github.com/cachelab/cachesim/policy/lfu"
)

func TestE2E_FullPipeline(t *testing.T) {
	tmpDir := t.TempDir()

	// Step 1: generate a compressed synthetic trace.
	t.Log("generating trace...")
	start := time.Now()
	requests := trace.Generate(trace.GeneratorSpec{
		Keys:     2000,
		Requests: 100000,
		MaxSize:  4096,
		Skew:     1.2,
		Seed:     99,
	})
	tracePath := filepath.Join(tmpDir, "synthetic.csv.zst")
	if err := trace.Write(tracePath, requests); err != nil {
		t.Fatalf("trace.Write() error = %v", err)
	}
	t.Logf("   %d requests in %v", len(requests), time.Since(start))

	// Step 2: streaming replay must match the in-memory replay.
	t.Log("replaying...")
	reader, err := trace.Open(tracePath, trace.DefaultFormat())
	if err != nil {
		t.Fatalf("trace.Open() error = %v", err)
	}
	streamSim, err := cachesim.New(
		cachesim.WithPolicy(lru.New()),
		cachesim.WithCapacity(1<<20),
	)
	if err != nil {
		t.Fatal(err)
	}
	streamResult, err := streamSim.Replay(context.Background(), reader)
	reader.Close()
	if err != nil {
		t.Fatalf("streaming Replay() error = %v", err)
	}

	memSim, err := cachesim.New(
		cachesim.WithPolicy(lru.New()),
		cachesim.WithCapacity(1<<20),
	)
	if err != nil {
		t.Fatal(err)
	}
	memResult, err := memSim.Replay(context.Background(), cachesim.NewSliceSource(requests))
	if err != nil {
		t.Fatalf("in-memory Replay() error = %v", err)
	}
	if streamResult.Hits != memResult.Hits || streamResult.Misses != memResult.Misses {
		t.Errorf("streaming result %+v differs from in-memory %+v", streamResult, memResult)
	}

	// Step 3: batch evaluation across policies and capacities.
	t.Log("evaluating...")
	cfg := &evaluate.Config{
		Traces:            []evaluate.TraceSpec{{Name: "synthetic", Path: tracePath}},
		Policies:          []string{"lru", "fifo", "lfu", "gdsf"},
		CapacityFractions: []float64{0.05, 0.1, 0.2},
		TrainFraction:     0.5,
		Baseline:          "fifo",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	entries, err := evaluate.New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(entries) != 12 {
		t.Fatalf("len(entries) = %d, want 12", len(entries))
	}

	// Step 4: results round-trip through compressed JSONL.
	resultsPath := filepath.Join(tmpDir, "results.jsonl.zst")
	if err := evaluate.WriteFile(resultsPath, entries); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	loaded, err := evaluate.ReadFile(resultsPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(loaded) != len(entries) {
		t.Fatalf("loaded %d entries, want %d", len(loaded), len(entries))
	}

	// Step 5: statistical comparison and report.
	t.Log("reporting...")
	comparison, err := analysis.CompareAll(loaded, cfg.Baseline, 500, 0.95)
	if err != nil {
		t.Fatalf("CompareAll() error = %v", err)
	}
	if len(comparison.Comparisons) != 3 {
		t.Errorf("len(Comparisons) = %d, want 3", len(comparison.Comparisons))
	}

	reportPath := filepath.Join(tmpDir, "report.md")
	f, err := os.Create(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := reporting.WriteReport(f, "E2E Evaluation", cfg, loaded); err != nil {
		f.Close()
		t.Fatalf("WriteReport() error = %v", err)
	}
	f.Close()

	report, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# E2E Evaluation", "## Results", "## fifo vs"} {
		if !strings.Contains(string(report), want) {
			t.Errorf("report missing %q", want)
		}
	}
}
