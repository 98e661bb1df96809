// Package reporting renders policy evaluation results as Markdown.
package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cachelab/cachesim/analysis"
	"github.com/cachelab/cachesim/evaluate"
)

// MarkdownReport writes an evaluation report in Markdown format.
type MarkdownReport struct {
	w io.Writer

	// now is swappable for tests.
	now func() time.Time
}

// NewMarkdownReport creates a report writer targeting w.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w, now: time.Now}
}

// WriteHeader writes the report title and generation timestamp.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\n", title)
	fmt.Fprintf(r.w, "Generated: %s\n\n", r.now().Format(time.RFC3339))
}

// WriteMethodology writes the methodology section.
func (r *MarkdownReport) WriteMethodology(cfg *evaluate.Config) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Traces:** %d\n", len(cfg.Traces))
	fmt.Fprintf(r.w, "- **Policies:** %s\n", strings.Join(cfg.Policies, ", "))
	fmt.Fprintf(r.w, "- **Capacities:** %d absolute, %d footprint fractions\n",
		len(cfg.Capacities), len(cfg.CapacityFractions))
	if cfg.TrainFraction > 0 {
		fmt.Fprintf(r.w, "- **Train/test split:** %.0f%% warmup, miss ratio measured on the remainder\n",
			cfg.TrainFraction*100)
	}
	fmt.Fprintln(r.w, "- **Metric:** Miss ratio (lower is better)")
	fmt.Fprintln(r.w, "- **Statistical tests:** Mann-Whitney U (non-parametric), Cohen's d effect size")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes one row per run, grouped by trace then
// policy then capacity.
func (r *MarkdownReport) WriteSummaryTable(entries []evaluate.Entry) {
	fmt.Fprintln(r.w, "## Results")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Trace | Policy | Capacity | Accesses | Miss Ratio | Evictions | Rejections |")
	fmt.Fprintln(r.w, "|-------|--------|----------|----------|------------|-----------|------------|")

	sorted := make([]evaluate.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Trace != sorted[j].Trace {
			return sorted[i].Trace < sorted[j].Trace
		}
		if sorted[i].Policy != sorted[j].Policy {
			return sorted[i].Policy < sorted[j].Policy
		}
		return sorted[i].Capacity < sorted[j].Capacity
	})

	for _, e := range sorted {
		capacity := fmt.Sprintf("%d", e.Capacity)
		if e.CapacityFraction > 0 {
			capacity = fmt.Sprintf("%d (%.0f%%)", e.Capacity, e.CapacityFraction*100)
		}
		fmt.Fprintf(r.w, "| %s | %s | %s | %d | %.4f | %d | %d |\n",
			e.Trace, e.Policy, capacity, e.Accesses, e.MissRatio, e.Evictions, e.Rejections)
	}
	fmt.Fprintln(r.w)
}

// WriteComparison writes a detailed comparison section for one policy pair.
func (r *MarkdownReport) WriteComparison(comp *analysis.PolicyComparison) {
	fmt.Fprintf(r.w, "## %s vs %s\n\n", comp.Policy1, comp.Policy2)

	fmt.Fprintln(r.w, "### Descriptive Statistics")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Metric | "+comp.Policy1+" | "+comp.Policy2+" |")
	fmt.Fprintln(r.w, "|--------|"+strings.Repeat("-", len(comp.Policy1)+2)+"|"+strings.Repeat("-", len(comp.Policy2)+2)+"|")
	fmt.Fprintf(r.w, "| Mean | %.4f | %.4f |\n", comp.Stats1.Mean, comp.Stats2.Mean)
	fmt.Fprintf(r.w, "| Median | %.4f | %.4f |\n", comp.Stats1.Median, comp.Stats2.Median)
	fmt.Fprintf(r.w, "| Std Dev | %.4f | %.4f |\n", comp.Stats1.StdDev, comp.Stats2.StdDev)
	fmt.Fprintf(r.w, "| Min | %.4f | %.4f |\n", comp.Stats1.Min, comp.Stats2.Min)
	fmt.Fprintf(r.w, "| Max | %.4f | %.4f |\n", comp.Stats1.Max, comp.Stats2.Max)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Statistical Analysis")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		comp.MannWhitney.U, comp.MannWhitney.Z, comp.MannWhitney.PValue)
	fmt.Fprintf(r.w, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		comp.EffectSize.CohensD, comp.EffectSize.Interpretation)
	fmt.Fprintf(r.w, "- **95%% CI for mean difference:** [%.4f, %.4f]\n",
		comp.BootstrapCI.LowerBound, comp.BootstrapCI.UpperBound)
	fmt.Fprintf(r.w, "- **Miss ratio reduction:** %.1f%%\n", comp.Reduction*100)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Conclusion")
	fmt.Fprintln(r.w)
	if comp.WinnerConfident {
		fmt.Fprintf(r.w, "**%s** shows statistically significant improvement over %s ",
			comp.Winner, otherPolicy(comp.Winner, comp.Policy1, comp.Policy2))
		fmt.Fprintf(r.w, "(p < 0.05, effect size: %s).\n", comp.EffectSize.Interpretation)
	} else {
		fmt.Fprintln(r.w, "No statistically significant difference detected between policies (p >= 0.05).")
	}
	fmt.Fprintln(r.w)
}

func otherPolicy(winner, p1, p2 string) string {
	if winner == p1 {
		return p2
	}
	return p1
}

// WriteFooter writes the report footer.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprintln(r.w, "---")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "*Report generated by cachesim*")
}

// WriteReport writes a complete report: header, methodology, summary
// table, and one comparison per non-baseline policy when a baseline is
// configured.
func WriteReport(w io.Writer, title string, cfg *evaluate.Config, entries []evaluate.Entry) error {
	r := NewMarkdownReport(w)
	r.WriteHeader(title)
	r.WriteMethodology(cfg)
	r.WriteSummaryTable(entries)

	if cfg.Baseline != "" {
		comparison, err := analysis.CompareAll(entries, cfg.Baseline, 1000, 0.95)
		if err != nil {
			return err
		}
		for _, comp := range comparison.Comparisons {
			r.WriteComparison(comp)
		}
	}

	r.WriteFooter()
	return nil
}
