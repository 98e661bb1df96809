package gdsf

import (
	"context"
	"testing"

	"github.com/cachelab/cachesim"
)

func replay(t *testing.T, capacity int64, requests []cachesim.Request) *cachesim.Simulator {
	t.Helper()
	sim, err := cachesim.New(
		cachesim.WithPolicy(New()),
		cachesim.WithCapacity(capacity),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := sim.Replay(context.Background(), cachesim.NewSliceSource(requests)); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	return sim
}

func TestPolicy_PrefersEvictingLargeCold(t *testing.T) {
	// Scores at the insert of d: a=1/1=1, b=1/5=0.2, c=1/4=0.25.
	// The large cold b has the lowest score and goes first.
	sim := replay(t, 10, []cachesim.Request{
		{Key: "a", Size: 1},
		{Key: "b", Size: 5},
		{Key: "c", Size: 4},
		{Key: "d", Size: 2},
	})

	state := sim.State()
	if state.Contains("b") {
		t.Error("Contains(b) = true, want evicted as largest cold object")
	}
	for _, key := range []string{"a", "c", "d"} {
		if !state.Contains(key) {
			t.Errorf("Contains(%q) = false, want true", key)
		}
	}
}

func TestPolicy_FrequencyProtects(t *testing.T) {
	// b is as large as c but has been hit: score 2/5 vs 1/5, so c goes.
	sim := replay(t, 10, []cachesim.Request{
		{Key: "b", Size: 5},
		{Key: "c", Size: 5},
		{Key: "b", Size: 5},
		{Key: "d", Size: 2},
	})

	state := sim.State()
	if state.Contains("c") {
		t.Error("Contains(c) = true, want evicted")
	}
	if !state.Contains("b") {
		t.Error("Contains(b) = false, want protected by frequency")
	}
}

func TestPolicy_InflationAgesResidents(t *testing.T) {
	// After evictions the floor L rises; a newly inserted object scores
	// above an old resident whose score predates the inflation, so churn
	// eventually displaces stale entries even with equal frequency.
	p := New()
	if p.inflation != 0 {
		t.Fatalf("new policy inflation = %f, want 0", p.inflation)
	}

	sim := replay(t, 4, []cachesim.Request{
		{Key: "a", Size: 2}, // score 0.5
		{Key: "b", Size: 2}, // score 0.5
		{Key: "c", Size: 2}, // evicts a (tie, smallest key); L becomes 0.5
		{Key: "d", Size: 2}, // evicts b (0.5) over c (1.0)
	})

	state := sim.State()
	for _, key := range []string{"c", "d"} {
		if !state.Contains(key) {
			t.Errorf("Contains(%q) = false, want true", key)
		}
	}
	for _, key := range []string{"a", "b"} {
		if state.Contains(key) {
			t.Errorf("Contains(%q) = true, want evicted", key)
		}
	}
}

func TestPolicy_MetadataPurgedOnEvict(t *testing.T) {
	p := New()

	sim, err := cachesim.New(
		cachesim.WithPolicy(p),
		cachesim.WithCapacity(2),
	)
	if err != nil {
		t.Fatal(err)
	}
	requests := []cachesim.Request{
		{Key: "a", Size: 2},
		{Key: "b", Size: 2},
	}
	if _, err := sim.Replay(context.Background(), cachesim.NewSliceSource(requests)); err != nil {
		t.Fatal(err)
	}

	if _, ok := p.entries["a"]; ok {
		t.Error("entries[a] still present after eviction")
	}
	if _, ok := p.entries["b"]; !ok {
		t.Error("entries[b] missing for resident object")
	}
}
