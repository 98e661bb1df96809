// Package prometheus provides a Prometheus-based stats collector.
//
// The simulator emits a small fixed set of metrics (see the stats package
// constants), so all of them are registered eagerly at construction; metric
// names outside that set are dropped rather than registered on the fly.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cachelab/cachesim/internal/stats"
)

// Collector implements stats.Collector using Prometheus metrics.
type Collector struct {
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a new Prometheus collector with the simulator's metrics
// registered. If registry is nil, prometheus.DefaultRegisterer is used.
func New(registry prometheus.Registerer) (*Collector, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	c := &Collector{
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}

	counterHelp := map[string]string{
		stats.MetricRequests:   "Trace requests processed.",
		stats.MetricHits:       "Requests whose key was resident.",
		stats.MetricMisses:     "Requests whose key was absent.",
		stats.MetricEvictions:  "Objects evicted to make room.",
		stats.MetricRejections: "Requests larger than the cache capacity.",
	}
	for name, help := range counterHelp {
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		if err := register(registry, counter, &c.counters, name); err != nil {
			return nil, err
		}
	}

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: stats.MetricResidentBytes,
		Help: "Current total size of resident objects.",
	})
	if err := register(registry, gauge, &c.gauges, stats.MetricResidentBytes); err != nil {
		return nil, err
	}

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    stats.MetricEvictionsPerMiss,
		Help:    "Victims evicted per admitting miss.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
	})
	if err := register(registry, histogram, &c.histograms, stats.MetricEvictionsPerMiss); err != nil {
		return nil, err
	}

	return c, nil
}

// register adds metric to the registry and records it in dst under name.
// An AlreadyRegisteredError resolves to the existing collector, so two
// cachesim collectors can share a registry.
func register[M prometheus.Collector](registry prometheus.Registerer, metric M, dst *map[string]M, name string) error {
	if err := registry.Register(metric); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(M); ok {
				(*dst)[name] = existing
				return nil
			}
		}
		return err
	}
	(*dst)[name] = metric
	return nil
}

// IncCounter increments a counter metric.
func (c *Collector) IncCounter(name string, delta int64) {
	if counter, ok := c.counters[name]; ok {
		counter.Add(float64(delta))
	}
}

// SetGauge sets a gauge metric.
func (c *Collector) SetGauge(name string, value int64) {
	if gauge, ok := c.gauges[name]; ok {
		gauge.Set(float64(value))
	}
}

// ObserveHistogram records a value in a histogram.
func (c *Collector) ObserveHistogram(name string, value float64) {
	if histogram, ok := c.histograms[name]; ok {
		histogram.Observe(value)
	}
}
