// Package gdsf implements Greedy-Dual-Size-Frequency eviction. Each
// resident carries the score L + frequency/size; evicting raises the
// inflation floor L to the victim's score, which ages out objects that
// stopped being accessed. Small, frequently hit objects survive longest.
package gdsf

import (
	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/policy"
)

func init() {
	policy.Register("gdsf", func() cachesim.Policy { return New() })
}

// Compile-time check that Policy implements cachesim.Policy.
var _ cachesim.Policy = (*Policy)(nil)

// entry is the per-key metadata.
type entry struct {
	frequency uint64
	score     float64
}

// Policy evicts the resident with the lowest greedy-dual score.
type Policy struct {
	entries   map[string]*entry
	inflation float64
}

// New creates a fresh GDSF policy.
func New() *Policy {
	return &Policy{entries: make(map[string]*entry)}
}

// SelectVictim returns the key with the minimum score, breaking ties by
// smallest key for determinism.
func (p *Policy) SelectVictim(state *cachesim.State, incoming cachesim.Object) string {
	var victim string
	var best *entry
	for key, e := range p.entries {
		if best == nil || e.score < best.score || (e.score == best.score && key < victim) {
			victim = key
			best = e
		}
	}
	return victim
}

// OnHit bumps the frequency and rescores against the current floor.
func (p *Policy) OnHit(state *cachesim.State, obj cachesim.Object) {
	if e, ok := p.entries[obj.Key]; ok {
		e.frequency++
		e.score = p.inflation + float64(e.frequency)/float64(obj.Size)
	}
}

// OnInsert scores the new key at frequency 1.
func (p *Policy) OnInsert(state *cachesim.State, obj cachesim.Object) {
	p.entries[obj.Key] = &entry{
		frequency: 1,
		score:     p.inflation + 1/float64(obj.Size),
	}
}

// OnEvict raises the inflation floor to the victim's score and purges its
// metadata.
func (p *Policy) OnEvict(state *cachesim.State, incoming, evicted cachesim.Object) {
	if e, ok := p.entries[evicted.Key]; ok {
		if e.score > p.inflation {
			p.inflation = e.score
		}
		delete(p.entries, evicted.Key)
	}
}
