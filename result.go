package cachesim

// Outcome classifies how a single request was handled.
type Outcome int

const (
	// OutcomeHit means the requested key was already resident.
	OutcomeHit Outcome = iota

	// OutcomeMiss means the key was absent and the object was admitted,
	// evicting zero or more victims first.
	OutcomeMiss

	// OutcomeRejected means the object can never fit (size > capacity).
	// Counted as a miss; no eviction is attempted.
	OutcomeRejected
)

// String returns a short lower-case name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// RequestRecord is the per-request entry of the optional request log.
type RequestRecord struct {
	// Index is the zero-based position of the request in the trace.
	Index uint64

	// Key is the requested key.
	Key string

	// Outcome is how the request was handled.
	Outcome Outcome

	// Victims lists the keys evicted to admit this request, in eviction
	// order. Empty for hits, rejections, and misses that fit without
	// eviction.
	Victims []string
}

// Result aggregates the outcome of a replayed trace.
type Result struct {
	// Accesses is the total number of requests processed.
	Accesses uint64

	// Hits and Misses partition Accesses.
	Hits   uint64
	Misses uint64

	// Evictions is the total number of objects evicted.
	Evictions uint64

	// Rejections counts requests whose size exceeded the cache capacity.
	// Rejections are included in Misses.
	Rejections uint64

	// Requests holds the per-request log when request logging is enabled,
	// nil otherwise.
	Requests []RequestRecord
}

// MissRatio returns Misses/Accesses, the metric candidate policies are
// compared on. Returns 0 for an empty run.
func (r *Result) MissRatio() float64 {
	if r.Accesses == 0 {
		return 0
	}
	return float64(r.Misses) / float64(r.Accesses)
}

// HitRatio returns Hits/Accesses. Returns 0 for an empty run.
func (r *Result) HitRatio() float64 {
	if r.Accesses == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Accesses)
}
