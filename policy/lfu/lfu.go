// Package lfu implements least-frequently-used eviction with LRU and then
// lexicographic tie-breaking, so victim selection is fully deterministic.
package lfu

import (
	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/policy"
)

func init() {
	policy.Register("lfu", func() cachesim.Policy { return New() })
}

// Compile-time check that Policy implements cachesim.Policy.
var _ cachesim.Policy = (*Policy)(nil)

// entry is the per-key metadata: hit count and last access ordinal.
type entry struct {
	frequency  uint64
	lastAccess uint64
}

// Policy evicts the least frequently used resident object.
type Policy struct {
	entries map[string]*entry
}

// New creates a fresh LFU policy.
func New() *Policy {
	return &Policy{entries: make(map[string]*entry)}
}

// SelectVictim scans the metadata for the lowest frequency, breaking ties
// by least recent access and then by smallest key. The scan iterates the
// policy's own metadata, never the shared residency map.
func (p *Policy) SelectVictim(state *cachesim.State, incoming cachesim.Object) string {
	var victim string
	var best *entry
	for key, e := range p.entries {
		if best == nil || less(e, key, best, victim) {
			victim = key
			best = e
		}
	}
	return victim
}

// less orders candidate victims: lower frequency first, then older access,
// then smaller key.
func less(a *entry, aKey string, b *entry, bKey string) bool {
	if a.frequency != b.frequency {
		return a.frequency < b.frequency
	}
	if a.lastAccess != b.lastAccess {
		return a.lastAccess < b.lastAccess
	}
	return aKey < bKey
}

// OnHit bumps the key's frequency and recency.
func (p *Policy) OnHit(state *cachesim.State, obj cachesim.Object) {
	if e, ok := p.entries[obj.Key]; ok {
		e.frequency++
		e.lastAccess = state.AccessCount()
	}
}

// OnInsert starts the key at frequency 1.
func (p *Policy) OnInsert(state *cachesim.State, obj cachesim.Object) {
	p.entries[obj.Key] = &entry{frequency: 1, lastAccess: state.AccessCount()}
}

// OnEvict purges the evicted key's metadata.
func (p *Policy) OnEvict(state *cachesim.State, incoming, evicted cachesim.Object) {
	delete(p.entries, evicted.Key)
}
