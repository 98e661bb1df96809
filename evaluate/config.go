package evaluate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cachelab/cachesim/internal/trace"
)

// DefaultWorkers is the worker pool size when the config does not set one.
const DefaultWorkers = 4

// TraceSpec identifies one trace file and how to parse it.
type TraceSpec struct {
	// Name labels the trace in results. Defaults to Path.
	Name string `yaml:"name"`

	// Path is the local file to read. Compression is inferred from the
	// extension.
	Path string `yaml:"path"`

	// KeyColumn is the zero-based column holding the object key.
	KeyColumn int `yaml:"key_column"`

	// SizeColumn is the zero-based column holding the object size. When
	// nil it defaults to column 1; set it to -1 for traces without sizes,
	// which makes every object one capacity unit.
	SizeColumn *int `yaml:"size_column"`

	// Delimiter is the single-character field separator. Defaults to ",".
	Delimiter string `yaml:"delimiter"`

	// HasHeader skips the first row when true.
	HasHeader bool `yaml:"has_header"`

	// SampleRate keeps this fraction of keys (hash-sampled, with every
	// retained key's full reuse sequence intact). Zero means no sampling.
	SampleRate float64 `yaml:"sample_rate"`
}

// Format returns the trace parsing format for this spec.
func (t TraceSpec) Format() trace.Format {
	f := trace.Format{
		KeyColumn:  t.KeyColumn,
		SizeColumn: 1,
		Delimiter:  ',',
		HasHeader:  t.HasHeader,
	}
	if t.SizeColumn != nil {
		f.SizeColumn = *t.SizeColumn
	}
	if t.Delimiter != "" {
		f.Delimiter = rune(t.Delimiter[0])
	}
	return f
}

// Label returns the trace's display name.
func (t TraceSpec) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Path
}

// Config describes a batch evaluation: which traces to replay, which
// policies to compare, and at which cache capacities.
type Config struct {
	// Traces to replay.
	Traces []TraceSpec `yaml:"traces"`

	// Policies are registered policy names.
	Policies []string `yaml:"policies"`

	// Capacities are absolute cache capacities to evaluate.
	Capacities []int64 `yaml:"capacities"`

	// CapacityFractions are capacities expressed as fractions of each
	// trace's footprint (total bytes of its distinct objects).
	CapacityFractions []float64 `yaml:"capacity_fractions"`

	// TrainFraction splits each trace: the leading fraction warms the
	// cache, the remainder is measured. Zero measures the whole trace.
	TrainFraction float64 `yaml:"train_fraction"`

	// Workers bounds run parallelism. Defaults to DefaultWorkers.
	Workers int `yaml:"workers"`

	// Baseline names the policy that reductions are computed against.
	Baseline string `yaml:"baseline"`

	// LuaPolicies maps policy names to Lua script paths. Each is
	// registered before the run and can then be listed in Policies.
	LuaPolicies map[string]string `yaml:"lua_policies"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config and fills in defaults.
func (c *Config) Validate() error {
	if len(c.Traces) == 0 {
		return fmt.Errorf("config: no traces")
	}
	for i, t := range c.Traces {
		if t.Path == "" {
			return fmt.Errorf("config: trace %d has no path", i)
		}
		if len(t.Delimiter) > 1 {
			return fmt.Errorf("config: trace %q: delimiter must be a single character", t.Label())
		}
		if t.SampleRate < 0 || t.SampleRate > 1 {
			return fmt.Errorf("config: trace %q: sample_rate %g outside [0, 1]", t.Label(), t.SampleRate)
		}
	}
	if len(c.Policies) == 0 {
		return fmt.Errorf("config: no policies")
	}
	if len(c.Capacities) == 0 && len(c.CapacityFractions) == 0 {
		return fmt.Errorf("config: no capacities or capacity_fractions")
	}
	for _, capacity := range c.Capacities {
		if capacity <= 0 {
			return fmt.Errorf("config: capacity %d is not positive", capacity)
		}
	}
	for _, frac := range c.CapacityFractions {
		if frac <= 0 || frac > 1 {
			return fmt.Errorf("config: capacity fraction %g outside (0, 1]", frac)
		}
	}
	if c.TrainFraction < 0 || c.TrainFraction >= 1 {
		return fmt.Errorf("config: train_fraction %g outside [0, 1)", c.TrainFraction)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers %d is negative", c.Workers)
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Baseline != "" {
		found := false
		for _, p := range c.Policies {
			if p == c.Baseline {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("config: baseline %q is not in policies", c.Baseline)
		}
	}
	return nil
}
