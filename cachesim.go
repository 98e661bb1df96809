// Package cachesim replays access traces against a cache of fixed capacity
// to measure the miss ratio of pluggable eviction policies.
//
// The engine owns the authoritative cache state (residency, occupancy,
// hit/miss counters) and drives the eviction loop; a Policy only decides
// which resident object to evict and maintains its own private metadata.
// Runs are deterministic: the same trace and policy always produce the
// same hit/miss sequence, which is what makes results comparable across
// candidate policies.
//
// Example usage:
//
//	sim, err := cachesim.New(
//	    cachesim.WithPolicy(lru.New()),
//	    cachesim.WithCapacity(1<<20),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := sim.Replay(ctx, cachesim.NewSliceSource(requests))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("miss ratio: %.4f\n", result.MissRatio())
package cachesim

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cachelab/cachesim/internal/stats"
)

// Request is one trace entry: an access to Key for an object of Size
// capacity units.
type Request struct {
	Key  string
	Size int64
}

// Source yields trace requests in order. Next returns io.EOF after the
// final request.
type Source interface {
	Next() (Request, error)
}

// SliceSource is an in-memory Source backed by a slice of requests.
type SliceSource struct {
	requests []Request
	pos      int
}

// Compile-time check that SliceSource implements Source.
var _ Source = (*SliceSource)(nil)

// NewSliceSource returns a Source that yields the given requests in order.
func NewSliceSource(requests []Request) *SliceSource {
	return &SliceSource{requests: requests}
}

// Next returns the next request, or io.EOF when exhausted.
func (s *SliceSource) Next() (Request, error) {
	if s.pos >= len(s.requests) {
		return Request{}, io.EOF
	}
	r := s.requests[s.pos]
	s.pos++
	return r, nil
}

// Progress is a snapshot of a replay in flight.
type Progress struct {
	Requests      uint64
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	ResidentBytes int64
	Capacity      int64
}

// ProgressFunc is called periodically with replay progress.
type ProgressFunc func(Progress)

// Simulator replays a trace through one State/Policy pair.
//
// A Simulator is single-threaded: one request is processed to
// completion before the next is read, so ordering between requests is
// exactly trace order. Run independent Simulator instances to evaluate
// several traces or policies in parallel; never share one across
// goroutines.
type Simulator struct {
	state  *State
	policy Policy

	stats  stats.Collector
	logger *zap.Logger

	requestLog       bool
	records          []RequestRecord
	progress         ProgressFunc
	progressInterval uint64

	evictions  uint64
	rejections uint64
}

// New creates a Simulator with the given options. WithPolicy and
// WithCapacity are required.
func New(opts ...Option) (*Simulator, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.policy == nil {
		return nil, ErrNoPolicy
	}
	if cfg.capacity <= 0 {
		return nil, ErrBadCapacity
	}

	s := &Simulator{
		state:            newState(cfg.capacity),
		policy:           cfg.policy,
		stats:            cfg.stats,
		logger:           cfg.logger,
		requestLog:       cfg.requestLog,
		progress:         cfg.progress,
		progressInterval: cfg.progressInterval,
	}

	s.logger.Debug("simulator initialized",
		zap.Int64("capacity", cfg.capacity),
	)

	return s, nil
}

// State returns the authoritative cache state.
func (s *Simulator) State() *State {
	return s.state
}

// Get processes a single access and returns its outcome. Most callers use
// Replay; Get exists for request-at-a-time harnesses and tests.
func (s *Simulator) Get(obj Object) (Outcome, error) {
	rec, err := s.process(obj)
	if err != nil {
		return rec.Outcome, err
	}
	if s.requestLog {
		s.records = append(s.records, rec)
	}
	return rec.Outcome, nil
}

// Replay feeds every request from src through the cache and returns the
// aggregated result. A ContractError from the policy aborts the replay
// with full context; the partial counters are discarded.
func (s *Simulator) Replay(ctx context.Context, src Source) (*Result, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading trace: %w", err)
		}

		if _, err := s.Get(Object{Key: req.Key, Size: req.Size}); err != nil {
			return nil, err
		}

		if s.progress != nil && s.state.accessCount%s.progressInterval == 0 {
			s.progress(s.snapshotProgress())
		}
	}

	return s.Result(), nil
}

// Result returns the totals accumulated so far.
func (s *Simulator) Result() *Result {
	return &Result{
		Accesses:   s.state.accessCount,
		Hits:       s.state.hitCount,
		Misses:     s.state.missCount,
		Evictions:  s.evictions,
		Rejections: s.rejections,
		Requests:   s.records,
	}
}

// process runs the admission state machine for one request:
// Start -> Hit, or Start -> Miss -> (Evicting ->) Admitted, or
// Start -> Miss (rejected) when the object can never fit.
func (s *Simulator) process(obj Object) (RequestRecord, error) {
	index := s.state.accessCount
	rec := RequestRecord{Index: index, Key: obj.Key}

	if !obj.valid() {
		return rec, fmt.Errorf("%w: key=%q size=%d (request %d)", ErrBadObject, obj.Key, obj.Size, index)
	}

	s.stats.IncCounter(stats.MetricRequests, 1)

	// Hit: count it, notify the policy, done.
	if existing, ok := s.state.cache[obj.Key]; ok {
		s.state.recordAccess(true)
		s.stats.IncCounter(stats.MetricHits, 1)
		rec.Outcome = OutcomeHit
		if err := s.guardHook(index, obj.Key, func() {
			s.policy.OnHit(s.state, existing)
		}); err != nil {
			return rec, err
		}
		return rec, nil
	}

	s.state.recordAccess(false)
	s.stats.IncCounter(stats.MetricMisses, 1)

	// An object larger than the whole cache can never be admitted: reject
	// up front, before the eviction loop, so the loop cannot spin forever.
	if obj.Size > s.state.capacity {
		s.rejections++
		s.stats.IncCounter(stats.MetricRejections, 1)
		s.logger.Debug("request rejected",
			zap.String("key", obj.Key),
			zap.Int64("size", obj.Size),
			zap.Int64("capacity", s.state.capacity),
		)
		rec.Outcome = OutcomeRejected
		return rec, nil
	}

	rec.Outcome = OutcomeMiss

	// Eviction loop: free room for obj, re-consulting the policy against
	// the updated state each iteration. Admitting one large object may
	// take several victims.
	var evicted uint64
	for s.state.size+obj.Size > s.state.capacity {
		if len(s.state.cache) == 0 {
			// Unreachable while obj.Size <= capacity; kept as a hard stop
			// so a bookkeeping bug cannot become an infinite loop.
			return rec, &ContractError{RequestIndex: index, Key: obj.Key, Reason: "eviction loop on empty cache"}
		}

		var victimKey string
		if err := s.guardHook(index, obj.Key, func() {
			victimKey = s.policy.SelectVictim(s.state, obj)
		}); err != nil {
			return rec, err
		}

		victim, err := s.state.remove(victimKey)
		if err != nil {
			return rec, &ContractError{RequestIndex: index, Key: victimKey, Reason: "SelectVictim returned a key that is not resident"}
		}

		if err := s.guardHook(index, victimKey, func() {
			s.policy.OnEvict(s.state, obj, victim)
		}); err != nil {
			return rec, err
		}

		evicted++
		if s.requestLog {
			rec.Victims = append(rec.Victims, victimKey)
		}
	}

	if evicted > 0 {
		s.evictions += evicted
		s.stats.IncCounter(stats.MetricEvictions, int64(evicted))
		s.stats.ObserveHistogram(stats.MetricEvictionsPerMiss, float64(evicted))
	}

	if err := s.state.admit(obj); err != nil {
		return rec, err
	}
	if err := s.guardHook(index, obj.Key, func() {
		s.policy.OnInsert(s.state, obj)
	}); err != nil {
		return rec, err
	}

	s.stats.SetGauge(stats.MetricResidentBytes, s.state.size)

	return rec, nil
}

// guardHook invokes a policy hook and verifies, in O(1), that the hook did
// not mutate the authoritative state behind the engine's back. Residency
// count and size counter are engine-owned; any drift across a hook call is
// a contract violation.
func (s *Simulator) guardHook(index uint64, key string, hook func()) error {
	lenBefore := len(s.state.cache)
	sizeBefore := s.state.size
	hook()
	if len(s.state.cache) != lenBefore || s.state.size != sizeBefore {
		return &ContractError{RequestIndex: index, Key: key, Reason: "policy hook mutated cache state directly"}
	}
	return nil
}

func (s *Simulator) snapshotProgress() Progress {
	return Progress{
		Requests:      s.state.accessCount,
		Hits:          s.state.hitCount,
		Misses:        s.state.missCount,
		Evictions:     s.evictions,
		ResidentBytes: s.state.size,
		Capacity:      s.state.capacity,
	}
}
