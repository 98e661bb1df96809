package analysis

import (
	"fmt"
	"sort"

	"github.com/cachelab/cachesim/evaluate"
)

// PolicyComparison is a full statistical comparison of two policies
// over their miss-ratio samples.
type PolicyComparison struct {
	Policy1     string
	Policy2     string
	Stats1      *DescriptiveStats
	Stats2      *DescriptiveStats
	MannWhitney *MannWhitneyResult
	EffectSize  *EffectSize
	BootstrapCI *BootstrapResult

	// Reduction is the relative miss-ratio improvement of Policy2 over
	// Policy1, computed on the mean miss ratios.
	Reduction float64

	// Winner is the policy with the lower mean miss ratio, or "tie".
	Winner string

	// WinnerConfident is true when the difference is statistically
	// significant.
	WinnerConfident bool
}

// ComparePolicies compares two policies on their miss-ratio samples.
func ComparePolicies(name1 string, sample1 []float64, name2 string, sample2 []float64, bootstrapIterations int, confidence float64) *PolicyComparison {
	mw := MannWhitneyU(sample1, sample2)
	es := ComputeEffectSize(sample1, sample2)
	bs := BootstrapConfidenceInterval(sample1, sample2, bootstrapIterations, confidence)

	stats1 := Describe(sample1)
	stats2 := Describe(sample2)

	var winner string
	var confident bool
	switch {
	case stats1.Mean < stats2.Mean:
		winner = name1
		confident = mw.Significant
	case stats2.Mean < stats1.Mean:
		winner = name2
		confident = mw.Significant
	default:
		winner = "tie"
	}

	return &PolicyComparison{
		Policy1:         name1,
		Policy2:         name2,
		Stats1:          stats1,
		Stats2:          stats2,
		MannWhitney:     mw,
		EffectSize:      es,
		BootstrapCI:     bs,
		Reduction:       evaluate.MissRatioReduction(stats1.Mean, stats2.Mean),
		Winner:          winner,
		WinnerConfident: confident,
	}
}

// Summary returns a human-readable summary of the comparison.
func (c *PolicyComparison) Summary() string {
	sig := "not statistically significant"
	if c.MannWhitney.Significant {
		sig = fmt.Sprintf("statistically significant (p=%.4f)", c.MannWhitney.PValue)
	}

	return fmt.Sprintf(
		"%s vs %s:\n"+
			"  %s: mean=%.4f, median=%.4f, std=%.4f\n"+
			"  %s: mean=%.4f, median=%.4f, std=%.4f\n"+
			"  Miss ratio reduction: %.1f%%\n"+
			"  Effect size: %.2f (%s)\n"+
			"  Result: %s, %s",
		c.Policy1, c.Policy2,
		c.Policy1, c.Stats1.Mean, c.Stats1.Median, c.Stats1.StdDev,
		c.Policy2, c.Stats2.Mean, c.Stats2.Median, c.Stats2.StdDev,
		c.Reduction*100,
		c.EffectSize.CohensD, c.EffectSize.Interpretation,
		c.Winner, sig,
	)
}

// MissRatioSamples groups entries into per-policy miss-ratio samples.
func MissRatioSamples(entries []evaluate.Entry) map[string][]float64 {
	samples := make(map[string][]float64)
	for _, e := range entries {
		samples[e.Policy] = append(samples[e.Policy], e.MissRatio)
	}
	return samples
}

// BaselineComparison compares every policy against a baseline.
type BaselineComparison struct {
	Baseline    string
	Comparisons []*PolicyComparison
}

// CompareAll compares each non-baseline policy in entries against the
// baseline policy, in alphabetical order.
func CompareAll(entries []evaluate.Entry, baseline string, bootstrapIterations int, confidence float64) (*BaselineComparison, error) {
	samples := MissRatioSamples(entries)
	base, ok := samples[baseline]
	if !ok {
		return nil, fmt.Errorf("baseline policy %q has no entries", baseline)
	}

	names := make([]string, 0, len(samples))
	for name := range samples {
		if name != baseline {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	result := &BaselineComparison{Baseline: baseline}
	for _, name := range names {
		result.Comparisons = append(result.Comparisons, ComparePolicies(baseline, base, name, samples[name], bootstrapIterations, confidence))
	}
	return result, nil
}
