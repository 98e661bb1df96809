package fifo

import (
	"context"
	"testing"

	"github.com/cachelab/cachesim"
)

func replay(t *testing.T, capacity int64, keys []string) *cachesim.Simulator {
	t.Helper()
	sim, err := cachesim.New(
		cachesim.WithPolicy(New()),
		cachesim.WithCapacity(capacity),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	requests := make([]cachesim.Request, len(keys))
	for i, key := range keys {
		requests[i] = cachesim.Request{Key: key, Size: 1}
	}
	if _, err := sim.Replay(context.Background(), cachesim.NewSliceSource(requests)); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	return sim
}

func TestPolicy_EvictsInAdmissionOrder(t *testing.T) {
	sim := replay(t, 3, []string{"a", "b", "c", "d", "e"})

	state := sim.State()
	for _, key := range []string{"c", "d", "e"} {
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

func TestPolicy_HitsDoNotProtect(t *testing.T) {
	// a is hit repeatedly but FIFO still evicts it first.
	sim := replay(t, 2, []string{"a", "b", "a", "a", "c"})

	if sim.State().Contains("a") {
		t.Error("Contains(a) = true, want evicted despite hits")
	}
	if !sim.State().Contains("b") {
		t.Error("Contains(b) = false, want resident")
	}
}

func TestPolicy_ReinsertGoesToBack(t *testing.T) {
	// a evicted, re-admitted, then must outlive b which is now oldest.
	sim := replay(t, 2, []string{"a", "b", "c", "a", "d"})

	state := sim.State()
	if !state.Contains("a") {
		t.Error("Contains(a) = false, want re-admitted at queue back")
	}
	if state.Contains("c") {
		t.Error("Contains(c) = true, want evicted before re-inserted a")
	}
}
