// Package fifo implements first-in-first-out eviction: objects are evicted
// in admission order, ignoring hits entirely.
package fifo

import (
	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/policy"
)

func init() {
	policy.Register("fifo", func() cachesim.Policy { return New() })
}

// Compile-time check that Policy implements cachesim.Policy.
var _ cachesim.Policy = (*Policy)(nil)

// Policy evicts the oldest admitted resident object.
type Policy struct {
	queue []string
}

// New creates a fresh FIFO policy.
func New() *Policy {
	return &Policy{}
}

// SelectVictim returns the earliest admitted resident key.
func (p *Policy) SelectVictim(state *cachesim.State, incoming cachesim.Object) string {
	if len(p.queue) == 0 {
		return ""
	}
	return p.queue[0]
}

// OnHit is a no-op; FIFO ignores recency.
func (p *Policy) OnHit(state *cachesim.State, obj cachesim.Object) {}

// OnInsert appends the key to the admission queue.
func (p *Policy) OnInsert(state *cachesim.State, obj cachesim.Object) {
	p.queue = append(p.queue, obj.Key)
}

// OnEvict removes the evicted key from the queue. The simulator always
// evicts the selected victim, so this is the queue head in practice, but
// the general removal keeps the queue consistent regardless.
func (p *Policy) OnEvict(state *cachesim.State, incoming, evicted cachesim.Object) {
	for i, key := range p.queue {
		if key == evicted.Key {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			return
		}
	}
}
