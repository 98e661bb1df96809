package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/cachelab/cachesim/evaluate"
)

func fixtureConfig() *evaluate.Config {
	return &evaluate.Config{
		Traces:        []evaluate.TraceSpec{{Name: "web", Path: "/tmp/web.csv"}},
		Policies:      []string{"fifo", "lru"},
		Capacities:    []int64{100, 200},
		TrainFraction: 0.5,
		Baseline:      "fifo",
	}
}

func fixtureEntries() []evaluate.Entry {
	return []evaluate.Entry{
		{Trace: "web", Policy: "lru", Capacity: 200, Accesses: 1000, MissRatio: 0.32, Evictions: 120},
		{Trace: "web", Policy: "lru", Capacity: 100, Accesses: 1000, MissRatio: 0.40, Evictions: 200},
		{Trace: "web", Policy: "fifo", Capacity: 100, Accesses: 1000, MissRatio: 0.50, Evictions: 260},
		{Trace: "web", Policy: "fifo", Capacity: 200, Accesses: 1000, MissRatio: 0.44, Evictions: 180},
	}
}

func TestWriteHeader(t *testing.T) {
	var buf strings.Builder
	r := NewMarkdownReport(&buf)
	r.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }
	r.WriteHeader("Policy Evaluation")

	got := buf.String()
	if !strings.HasPrefix(got, "# Policy Evaluation\n") {
		t.Errorf("header = %q, want title first", got)
	}
	if !strings.Contains(got, "2026-08-24T12:00:00Z") {
		t.Errorf("header missing timestamp: %q", got)
	}
}

func TestWriteSummaryTable_SortedRows(t *testing.T) {
	var buf strings.Builder
	NewMarkdownReport(&buf).WriteSummaryTable(fixtureEntries())

	got := buf.String()
	// fifo before lru, and capacity 100 before 200 within a policy.
	first := strings.Index(got, "| web | fifo | 100 |")
	second := strings.Index(got, "| web | fifo | 200 |")
	third := strings.Index(got, "| web | lru | 100 |")
	if first == -1 || second == -1 || third == -1 {
		t.Fatalf("missing rows:\n%s", got)
	}
	if !(first < second && second < third) {
		t.Errorf("rows out of order:\n%s", got)
	}
}

func TestWriteSummaryTable_FractionCapacity(t *testing.T) {
	var buf strings.Builder
	NewMarkdownReport(&buf).WriteSummaryTable([]evaluate.Entry{
		{Trace: "web", Policy: "lru", Capacity: 512, CapacityFraction: 0.1, MissRatio: 0.3},
	})
	if !strings.Contains(buf.String(), "512 (10%)") {
		t.Errorf("fraction capacity not rendered:\n%s", buf.String())
	}
}

func TestWriteReport(t *testing.T) {
	var buf strings.Builder
	if err := WriteReport(&buf, "Policy Evaluation", fixtureConfig(), fixtureEntries()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{
		"# Policy Evaluation",
		"## Methodology",
		"- **Policies:** fifo, lru",
		"- **Train/test split:** 50% warmup",
		"## Results",
		"## fifo vs lru",
		"### Conclusion",
		"*Report generated by cachesim*",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWriteReport_NoBaseline(t *testing.T) {
	cfg := fixtureConfig()
	cfg.Baseline = ""

	var buf strings.Builder
	if err := WriteReport(&buf, "Policy Evaluation", cfg, fixtureEntries()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	if strings.Contains(buf.String(), "## fifo vs lru") {
		t.Error("report contains comparison section without a baseline")
	}
}
