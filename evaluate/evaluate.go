// Package evaluate runs batch policy evaluations: every configured
// policy replays every configured trace at every configured capacity,
// and each run is reported as one JSONL entry.
package evaluate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/internal/trace"
	"github.com/cachelab/cachesim/policy"
)

// Entry is the result of one (trace, policy, capacity) run.
type Entry struct {
	RunID  string `json:"run_id"`
	Trace  string `json:"trace"`
	Policy string `json:"policy"`

	Capacity int64 `json:"capacity"`
	// CapacityFraction is set when the capacity was derived from the
	// trace footprint, zero otherwise.
	CapacityFraction float64 `json:"capacity_fraction,omitempty"`

	Accesses   uint64 `json:"accesses"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Evictions  uint64 `json:"evictions"`
	Rejections uint64 `json:"rejections"`

	// MissRatio covers the measured portion of the trace: the whole
	// trace, or the test split when a train fraction is configured.
	MissRatio float64 `json:"miss_ratio"`

	// TrainMissRatio covers the warmup split. Zero when there is none.
	TrainMissRatio float64 `json:"train_miss_ratio,omitempty"`

	DurationMS int64 `json:"duration_ms"`
}

// MissRatioReduction returns the relative improvement of candidate over
// baseline: positive when the candidate misses less. Zero when the
// baseline never misses.
func MissRatioReduction(baseline, candidate float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (baseline - candidate) / baseline
}

// Evaluator fans the runs of a Config out over a bounded worker pool.
type Evaluator struct {
	cfg    *Config
	logger *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New creates an Evaluator for a validated config.
func New(cfg *Config, opts ...Option) *Evaluator {
	e := &Evaluator{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// job is one (trace, policy, capacity) run.
type job struct {
	trace    string
	policy   string
	capacity int64
	fraction float64
	train    []cachesim.Request
	test     []cachesim.Request
}

// loadedTrace is a trace read into memory once and shared read-only by
// every run over it.
type loadedTrace struct {
	spec      TraceSpec
	train     []cachesim.Request
	test      []cachesim.Request
	footprint int64
}

// Run executes every configured run and returns the entries in a
// deterministic order (config order of traces, policies, capacities).
// Each run owns a fresh Simulator and Policy, so runs never share
// mutable state.
func (e *Evaluator) Run(ctx context.Context) ([]Entry, error) {
	traces, err := e.loadTraces()
	if err != nil {
		return nil, err
	}

	jobs := e.buildJobs(traces)
	e.logger.Info("starting evaluation",
		zap.Int("runs", len(jobs)),
		zap.Int("workers", e.cfg.Workers),
	)

	entries := make([]Entry, len(jobs))
	sem := make(chan struct{}, e.cfg.Workers)
	errCh := make(chan error, len(jobs))
	var wg sync.WaitGroup

	for i, j := range jobs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		wg.Add(1)
		go func(slot int, j job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			entry, err := e.runOne(ctx, j)
			if err != nil {
				errCh <- fmt.Errorf("%s/%s@%d: %w", j.trace, j.policy, j.capacity, err)
				return
			}
			entries[slot] = entry
		}(i, j)
	}

	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}

	return entries, nil
}

// loadTraces reads each configured trace into memory and splits it.
func (e *Evaluator) loadTraces() ([]loadedTrace, error) {
	traces := make([]loadedTrace, 0, len(e.cfg.Traces))
	for _, spec := range e.cfg.Traces {
		requests, err := trace.ReadAll(spec.Path, spec.Format())
		if err != nil {
			return nil, fmt.Errorf("loading trace %s: %w", spec.Label(), err)
		}
		if spec.SampleRate > 0 && spec.SampleRate < 1 {
			requests = trace.SampleByKey(requests, spec.SampleRate)
		}
		if len(requests) == 0 {
			return nil, fmt.Errorf("trace %s is empty", spec.Label())
		}

		train, test := trace.Split(requests, e.cfg.TrainFraction)
		lt := loadedTrace{
			spec:      spec,
			train:     train,
			test:      test,
			footprint: trace.Footprint(requests),
		}
		e.logger.Info("trace loaded",
			zap.String("trace", spec.Label()),
			zap.Int("requests", len(requests)),
			zap.Int64("footprint", lt.footprint),
		)
		traces = append(traces, lt)
	}
	return traces, nil
}

// buildJobs expands the config cross product into concrete runs.
func (e *Evaluator) buildJobs(traces []loadedTrace) []job {
	var jobs []job
	for _, lt := range traces {
		capacities := make([]job, 0, len(e.cfg.Capacities)+len(e.cfg.CapacityFractions))
		for _, c := range e.cfg.Capacities {
			capacities = append(capacities, job{capacity: c})
		}
		for _, frac := range e.cfg.CapacityFractions {
			c := int64(frac * float64(lt.footprint))
			if c < 1 {
				c = 1
			}
			capacities = append(capacities, job{capacity: c, fraction: frac})
		}

		for _, name := range e.cfg.Policies {
			for _, c := range capacities {
				jobs = append(jobs, job{
					trace:    lt.spec.Label(),
					policy:   name,
					capacity: c.capacity,
					fraction: c.fraction,
					train:    lt.train,
					test:     lt.test,
				})
			}
		}
	}
	return jobs
}

// runOne replays one trace through one fresh policy at one capacity.
func (e *Evaluator) runOne(ctx context.Context, j job) (Entry, error) {
	p, err := policy.New(j.policy)
	if err != nil {
		return Entry{}, err
	}
	if closer, ok := p.(interface{ Close() }); ok {
		defer closer.Close()
	}

	sim, err := cachesim.New(
		cachesim.WithPolicy(p),
		cachesim.WithCapacity(j.capacity),
	)
	if err != nil {
		return Entry{}, err
	}

	start := time.Now()

	var trainResult *cachesim.Result
	if len(j.train) > 0 {
		trainResult, err = sim.Replay(ctx, cachesim.NewSliceSource(j.train))
		if err != nil {
			return Entry{}, err
		}
	}

	final, err := sim.Replay(ctx, cachesim.NewSliceSource(j.test))
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		RunID:            uuid.NewString(),
		Trace:            j.trace,
		Policy:           j.policy,
		Capacity:         j.capacity,
		CapacityFraction: j.fraction,
		Accesses:         final.Accesses,
		Hits:             final.Hits,
		Misses:           final.Misses,
		Evictions:        final.Evictions,
		Rejections:       final.Rejections,
		MissRatio:        final.MissRatio(),
		DurationMS:       time.Since(start).Milliseconds(),
	}

	// Replay accumulates: subtract the warmup counters so the reported
	// miss ratio covers only the measured split.
	if trainResult != nil {
		testAccesses := final.Accesses - trainResult.Accesses
		testMisses := final.Misses - trainResult.Misses
		entry.TrainMissRatio = trainResult.MissRatio()
		entry.MissRatio = 0
		if testAccesses > 0 {
			entry.MissRatio = float64(testMisses) / float64(testAccesses)
		}
	}

	e.logger.Debug("run complete",
		zap.String("trace", j.trace),
		zap.String("policy", j.policy),
		zap.Int64("capacity", j.capacity),
		zap.Float64("miss_ratio", entry.MissRatio),
	)

	return entry, nil
}
