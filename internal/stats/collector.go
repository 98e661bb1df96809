// Package stats provides a unified interface for collecting simulator metrics.
package stats

// Metric names used throughout the library.
const (
	// Per-request metrics.
	MetricRequests   = "cachesim_requests_total"
	MetricHits       = "cachesim_hits_total"
	MetricMisses     = "cachesim_misses_total"
	MetricEvictions  = "cachesim_evictions_total"
	MetricRejections = "cachesim_rejections_total"

	// Cache occupancy.
	MetricResidentBytes = "cachesim_resident_bytes"

	// Distribution of victims taken per admitting miss.
	MetricEvictionsPerMiss = "cachesim_evictions_per_miss"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
