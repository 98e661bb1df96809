package cachesim

import (
	"context"
	"errors"
	"testing"
)

// queuePolicy is a minimal FIFO policy used to exercise the engine. It
// counts hook invocations so tests can assert when the engine consults
// the policy.
type queuePolicy struct {
	queue []string

	selectCalls int
	hitCalls    int
	insertCalls int
	evictCalls  int
}

func (p *queuePolicy) SelectVictim(state *State, incoming Object) string {
	p.selectCalls++
	if len(p.queue) == 0 {
		return ""
	}
	return p.queue[0]
}

func (p *queuePolicy) OnHit(state *State, obj Object) {
	p.hitCalls++
}

func (p *queuePolicy) OnInsert(state *State, obj Object) {
	p.insertCalls++
	p.queue = append(p.queue, obj.Key)
}

func (p *queuePolicy) OnEvict(state *State, incoming, evicted Object) {
	p.evictCalls++
	for i, key := range p.queue {
		if key == evicted.Key {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			return
		}
	}
}

// badVictimPolicy names a victim that is never resident.
type badVictimPolicy struct{ queuePolicy }

func (p *badVictimPolicy) SelectVictim(state *State, incoming Object) string {
	return "ghost"
}

// tamperPolicy mutates the residency map behind the engine's back.
type tamperPolicy struct{ queuePolicy }

func (p *tamperPolicy) OnHit(state *State, obj Object) {
	delete(state.Cache(), obj.Key)
}

func newTestSimulator(t *testing.T, p Policy, capacity int64, opts ...Option) *Simulator {
	t.Helper()
	sim, err := New(append([]Option{WithPolicy(p), WithCapacity(capacity)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return sim
}

func mustGet(t *testing.T, sim *Simulator, key string, size int64) Outcome {
	t.Helper()
	outcome, err := sim.Get(Object{Key: key, Size: size})
	if err != nil {
		t.Fatalf("Get(%s) error = %v", key, err)
	}
	return outcome
}

func TestNew_RequiresPolicy(t *testing.T) {
	_, err := New(WithCapacity(10))
	if !errors.Is(err, ErrNoPolicy) {
		t.Errorf("New() error = %v, want ErrNoPolicy", err)
	}
}

func TestNew_RequiresCapacity(t *testing.T) {
	if _, err := New(WithPolicy(&queuePolicy{})); !errors.Is(err, ErrBadCapacity) {
		t.Errorf("New() error = %v, want ErrBadCapacity", err)
	}
	if _, err := New(WithPolicy(&queuePolicy{}), WithCapacity(-5)); !errors.Is(err, ErrBadCapacity) {
		t.Errorf("New(capacity=-5) error = %v, want ErrBadCapacity", err)
	}
}

func TestSimulator_EvictsWhenFull(t *testing.T) {
	// Capacity 10: A(4) + B(4) fit, C(4) forces one eviction.
	sim := newTestSimulator(t, &queuePolicy{}, 10)

	mustGet(t, sim, "a", 4)
	mustGet(t, sim, "b", 4)
	mustGet(t, sim, "c", 4)

	state := sim.State()
	if state.Size() != 8 {
		t.Errorf("Size() = %d, want 8", state.Size())
	}
	if state.MissCount() != 3 {
		t.Errorf("MissCount() = %d, want 3", state.MissCount())
	}
	if !state.Contains("c") {
		t.Error("Contains(c) = false, want true")
	}
	resident := 0
	for _, key := range []string{"a", "b"} {
		if state.Contains(key) {
			resident++
		}
	}
	if resident != 1 {
		t.Errorf("residents of {a, b} = %d, want exactly 1", resident)
	}
}

func TestSimulator_HitLeavesSizeUnchanged(t *testing.T) {
	p := &queuePolicy{}
	sim := newTestSimulator(t, p, 10)

	mustGet(t, sim, "a", 4)
	sizeBefore := sim.State().Size()

	if outcome := mustGet(t, sim, "a", 4); outcome != OutcomeHit {
		t.Errorf("Get(a) outcome = %v, want hit", outcome)
	}

	state := sim.State()
	if state.Size() != sizeBefore {
		t.Errorf("Size() = %d, want unchanged %d", state.Size(), sizeBefore)
	}
	if state.HitCount() != 1 {
		t.Errorf("HitCount() = %d, want 1", state.HitCount())
	}
	if state.AccessCount() != 2 {
		t.Errorf("AccessCount() = %d, want 2", state.AccessCount())
	}
	if p.hitCalls != 1 {
		t.Errorf("hitCalls = %d, want 1", p.hitCalls)
	}
}

func TestSimulator_RejectsOversized(t *testing.T) {
	p := &queuePolicy{}
	sim := newTestSimulator(t, p, 10)
	mustGet(t, sim, "a", 4)

	// An object that can never fit is rejected before the eviction
	// loop, repeatedly and without side effects on residency.
	for i := 0; i < 3; i++ {
		if outcome := mustGet(t, sim, "huge", 11); outcome != OutcomeRejected {
			t.Fatalf("Get(huge) outcome = %v, want rejected", outcome)
		}
	}

	state := sim.State()
	if !state.Contains("a") || len(state.Cache()) != 1 {
		t.Errorf("Cache() = %v, want only a resident", state.Cache())
	}
	if state.MissCount() != 4 {
		t.Errorf("MissCount() = %d, want 4 (1 admit + 3 rejections)", state.MissCount())
	}
	if p.selectCalls != 0 {
		t.Errorf("selectCalls = %d, want 0 (no eviction attempted)", p.selectCalls)
	}
	if got := sim.Result().Rejections; got != 3 {
		t.Errorf("Rejections = %d, want 3", got)
	}
}

func TestSimulator_FullSizeReplacement(t *testing.T) {
	// Two objects that each fill the whole cache: the second must evict
	// exactly the first.
	p := &queuePolicy{}
	sim := newTestSimulator(t, p, 10)

	mustGet(t, sim, "first", 10)
	if p.selectCalls != 0 {
		t.Errorf("selectCalls after first admit = %d, want 0", p.selectCalls)
	}
	if sim.State().Size() != 10 {
		t.Errorf("Size() = %d, want 10", sim.State().Size())
	}

	mustGet(t, sim, "second", 10)
	state := sim.State()
	if state.Contains("first") {
		t.Error("Contains(first) = true, want evicted")
	}
	if !state.Contains("second") {
		t.Error("Contains(second) = false, want admitted")
	}
	if state.Size() != 10 {
		t.Errorf("Size() = %d, want 10", state.Size())
	}
	if got := sim.Result().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestSimulator_CountersPartitionAccesses(t *testing.T) {
	sim := newTestSimulator(t, &queuePolicy{}, 2)

	// Alternating hit/miss pattern: a stays resident, b and c fight
	// over the remaining unit.
	keys := []string{"a", "a", "b", "a", "c", "a", "b", "a", "c", "a"}
	for _, key := range keys {
		mustGet(t, sim, key, 1)

		state := sim.State()
		if state.HitCount()+state.MissCount() != state.AccessCount() {
			t.Fatalf("hit %d + miss %d != access %d", state.HitCount(), state.MissCount(), state.AccessCount())
		}
	}
	if got := sim.State().AccessCount(); got != uint64(len(keys)) {
		t.Errorf("AccessCount() = %d, want %d", got, len(keys))
	}
}

func TestSimulator_CapacityInvariant(t *testing.T) {
	sim := newTestSimulator(t, &queuePolicy{}, 17)

	workload := []Object{
		{"a", 5}, {"b", 7}, {"c", 9}, {"a", 5}, {"d", 17},
		{"e", 1}, {"f", 2}, {"e", 1}, {"g", 16}, {"a", 5},
	}
	for i, obj := range workload {
		if _, err := sim.Get(obj); err != nil {
			t.Fatalf("Get(%s) error = %v", obj.Key, err)
		}

		state := sim.State()
		if state.Size() > state.Capacity() {
			t.Fatalf("request %d: Size() %d exceeds capacity %d", i, state.Size(), state.Capacity())
		}
		var sum int64
		for _, resident := range state.Cache() {
			sum += resident.Size
		}
		if sum != state.Size() {
			t.Fatalf("request %d: Size() %d != sum of resident sizes %d", i, state.Size(), sum)
		}
	}
}

func TestSimulator_NoGratuitousEviction(t *testing.T) {
	p := &queuePolicy{}
	sim := newTestSimulator(t, p, 100)

	for _, key := range []string{"a", "b", "c", "a", "b"} {
		mustGet(t, sim, key, 10)
	}
	if p.selectCalls != 0 {
		t.Errorf("selectCalls = %d, want 0 when everything fits", p.selectCalls)
	}
}

func TestSimulator_MultiVictimEviction(t *testing.T) {
	p := &queuePolicy{}
	sim := newTestSimulator(t, p, 10, WithRequestLog())

	mustGet(t, sim, "a", 4)
	mustGet(t, sim, "b", 4)
	mustGet(t, sim, "big", 9)

	result := sim.Result()
	if result.Evictions != 2 {
		t.Errorf("Evictions = %d, want 2", result.Evictions)
	}

	last := result.Requests[len(result.Requests)-1]
	if last.Outcome != OutcomeMiss {
		t.Errorf("last outcome = %v, want miss", last.Outcome)
	}
	// FIFO order: a first, then b.
	if len(last.Victims) != 2 || last.Victims[0] != "a" || last.Victims[1] != "b" {
		t.Errorf("Victims = %v, want [a b]", last.Victims)
	}
}

func TestSimulator_RequestLog(t *testing.T) {
	sim := newTestSimulator(t, &queuePolicy{}, 10, WithRequestLog())

	mustGet(t, sim, "a", 4)
	mustGet(t, sim, "a", 4)
	mustGet(t, sim, "huge", 11)

	records := sim.Result().Requests
	want := []Outcome{OutcomeMiss, OutcomeHit, OutcomeRejected}
	if len(records) != len(want) {
		t.Fatalf("len(Requests) = %d, want %d", len(records), len(want))
	}
	for i, rec := range records {
		if rec.Outcome != want[i] {
			t.Errorf("Requests[%d].Outcome = %v, want %v", i, rec.Outcome, want[i])
		}
		if rec.Index != uint64(i) {
			t.Errorf("Requests[%d].Index = %d, want %d", i, rec.Index, i)
		}
	}
}

func TestSimulator_InvalidObject(t *testing.T) {
	sim := newTestSimulator(t, &queuePolicy{}, 10)

	if _, err := sim.Get(Object{Key: "", Size: 1}); !errors.Is(err, ErrBadObject) {
		t.Errorf("Get(empty key) error = %v, want ErrBadObject", err)
	}
	if _, err := sim.Get(Object{Key: "a", Size: 0}); !errors.Is(err, ErrBadObject) {
		t.Errorf("Get(zero size) error = %v, want ErrBadObject", err)
	}
}

func TestSimulator_NonResidentVictimAborts(t *testing.T) {
	sim := newTestSimulator(t, &badVictimPolicy{}, 4)

	mustGet(t, sim, "a", 4)
	_, err := sim.Get(Object{Key: "b", Size: 4})
	if err == nil {
		t.Fatal("Get(b) expected contract violation")
	}
	if !IsContractViolation(err) {
		t.Errorf("Get(b) error = %v, want ContractError", err)
	}

	var ce *ContractError
	if errors.As(err, &ce) {
		if ce.RequestIndex != 1 {
			t.Errorf("RequestIndex = %d, want 1", ce.RequestIndex)
		}
		if ce.Key != "ghost" {
			t.Errorf("Key = %q, want ghost", ce.Key)
		}
	}
}

func TestSimulator_HookTamperAborts(t *testing.T) {
	sim := newTestSimulator(t, &tamperPolicy{}, 10)

	mustGet(t, sim, "a", 4)
	if _, err := sim.Get(Object{Key: "a", Size: 4}); !IsContractViolation(err) {
		t.Errorf("Get(a) error = %v, want ContractError for tampering hook", err)
	}
}

func TestReplay_Deterministic(t *testing.T) {
	requests := []Request{
		{"a", 3}, {"b", 4}, {"c", 5}, {"a", 3}, {"d", 2},
		{"b", 4}, {"e", 6}, {"a", 3}, {"c", 5}, {"d", 2},
	}

	replay := func() *Result {
		sim := newTestSimulator(t, &queuePolicy{}, 12, WithRequestLog())
		result, err := sim.Replay(context.Background(), NewSliceSource(requests))
		if err != nil {
			t.Fatalf("Replay() error = %v", err)
		}
		return result
	}

	first := replay()
	second := replay()
	if first.Hits != second.Hits || first.Misses != second.Misses || first.Evictions != second.Evictions {
		t.Errorf("runs differ: %+v vs %+v", first, second)
	}
	for i := range first.Requests {
		if first.Requests[i].Outcome != second.Requests[i].Outcome {
			t.Errorf("request %d outcome differs: %v vs %v", i, first.Requests[i].Outcome, second.Requests[i].Outcome)
		}
	}
}

func TestReplay_ContextCancelled(t *testing.T) {
	sim := newTestSimulator(t, &queuePolicy{}, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sim.Replay(ctx, NewSliceSource([]Request{{Key: "a", Size: 1}})); !errors.Is(err, context.Canceled) {
		t.Errorf("Replay() error = %v, want context.Canceled", err)
	}
}

func TestReplay_Progress(t *testing.T) {
	var calls []Progress
	sim := newTestSimulator(t, &queuePolicy{}, 10,
		WithProgress(func(p Progress) { calls = append(calls, p) }),
		WithProgressInterval(2),
	)

	requests := []Request{{"a", 1}, {"b", 1}, {"c", 1}, {"a", 1}}
	if _, err := sim.Replay(context.Background(), NewSliceSource(requests)); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("progress calls = %d, want 2", len(calls))
	}
	if calls[1].Requests != 4 {
		t.Errorf("last progress Requests = %d, want 4", calls[1].Requests)
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeHit, "hit"},
		{OutcomeMiss, "miss"},
		{OutcomeRejected, "rejected"},
		{Outcome(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}

func TestResult_Ratios(t *testing.T) {
	empty := &Result{}
	if got := empty.MissRatio(); got != 0 {
		t.Errorf("empty MissRatio() = %f, want 0", got)
	}

	r := &Result{Accesses: 10, Hits: 6, Misses: 4}
	if got := r.MissRatio(); got != 0.4 {
		t.Errorf("MissRatio() = %f, want 0.4", got)
	}
	if got := r.HitRatio(); got != 0.6 {
		t.Errorf("HitRatio() = %f, want 0.6", got)
	}
}
