// Package lru implements least-recently-used eviction.
//
// The recency order is delegated to hashicorp's simplelru list rather than
// re-implemented; the index is sized so it never evicts on its own, and
// all eviction decisions stay with the simulator.
package lru

import (
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/policy"
)

func init() {
	policy.Register("lru", func() cachesim.Policy { return New() })
}

// Compile-time check that Policy implements cachesim.Policy.
var _ cachesim.Policy = (*Policy)(nil)

// Policy evicts the least recently used resident object.
type Policy struct {
	index *simplelru.LRU[string, struct{}]
}

// New creates a fresh LRU policy.
func New() *Policy {
	// NewLRU only fails for a non-positive size.
	index, err := simplelru.NewLRU[string, struct{}](math.MaxInt32, nil)
	if err != nil {
		panic(err)
	}
	return &Policy{index: index}
}

// SelectVictim returns the least recently used key.
func (p *Policy) SelectVictim(state *cachesim.State, incoming cachesim.Object) string {
	key, _, _ := p.index.GetOldest()
	return key
}

// OnHit promotes the key to most recently used.
func (p *Policy) OnHit(state *cachesim.State, obj cachesim.Object) {
	p.index.Get(obj.Key)
}

// OnInsert records the key as most recently used.
func (p *Policy) OnInsert(state *cachesim.State, obj cachesim.Object) {
	p.index.Add(obj.Key, struct{}{})
}

// OnEvict drops the evicted key from the recency index.
func (p *Policy) OnEvict(state *cachesim.State, incoming, evicted cachesim.Object) {
	p.index.Remove(evicted.Key)
}
