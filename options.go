package cachesim

import (
	"go.uber.org/zap"

	"github.com/cachelab/cachesim/internal/stats"
)

// Option configures a Simulator.
type Option interface {
	apply(*options)
}

// options holds the simulator configuration.
type options struct {
	policy           Policy
	capacity         int64
	stats            stats.Collector
	logger           *zap.Logger
	requestLog       bool
	progress         ProgressFunc
	progressInterval uint64
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		stats:            stats.NewNoop(),
		logger:           zap.NewNop(),
		progressInterval: 100000,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithPolicy sets the eviction policy under evaluation. Required.
// The policy instance must be fresh: sharing one across runs carries
// metadata residue from the previous run into the next.
func WithPolicy(p Policy) Option {
	return optionFunc(func(o *options) {
		o.policy = p
	})
}

// WithCapacity sets the cache capacity in size units. Required, positive.
func WithCapacity(capacity int64) Option {
	return optionFunc(func(o *options) {
		o.capacity = capacity
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithRequestLog enables the per-request hit/miss log on the Result.
// Off by default; a full log for a long trace costs memory proportional
// to the trace length.
func WithRequestLog() Option {
	return optionFunc(func(o *options) {
		o.requestLog = true
	})
}

// WithProgress installs a callback invoked periodically during Replay.
func WithProgress(fn ProgressFunc) Option {
	return optionFunc(func(o *options) {
		o.progress = fn
	})
}

// WithProgressInterval sets how many requests elapse between progress
// callbacks. Default is 100000.
func WithProgressInterval(n uint64) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.progressInterval = n
		}
	})
}
