// Package clock implements second-chance (CLOCK) eviction: residents sit
// on a ring with a reference bit; the hand sweeps the ring, clearing set
// bits and evicting the first unreferenced object it finds.
package clock

import (
	"container/list"

	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/policy"
)

func init() {
	policy.Register("clock", func() cachesim.Policy { return New() })
}

// Compile-time check that Policy implements cachesim.Policy.
var _ cachesim.Policy = (*Policy)(nil)

// slot is the per-key ring entry.
type slot struct {
	key        string
	referenced bool
}

// Policy evicts by the second-chance sweep.
type Policy struct {
	ring  *list.List
	slots map[string]*list.Element
	hand  *list.Element
}

// New creates a fresh CLOCK policy.
func New() *Policy {
	return &Policy{
		ring:  list.New(),
		slots: make(map[string]*list.Element),
	}
}

// SelectVictim sweeps from the hand, clearing reference bits, and returns
// the first unreferenced key. Terminates within one full revolution: after
// a pass every bit is clear. Clearing bits is private-metadata mutation,
// which the contract permits during selection.
func (p *Policy) SelectVictim(state *cachesim.State, incoming cachesim.Object) string {
	if p.ring.Len() == 0 {
		return ""
	}
	for {
		if p.hand == nil {
			p.hand = p.ring.Front()
		}
		s := p.hand.Value.(*slot)
		if !s.referenced {
			return s.key
		}
		s.referenced = false
		p.hand = p.hand.Next()
	}
}

// OnHit sets the key's reference bit.
func (p *Policy) OnHit(state *cachesim.State, obj cachesim.Object) {
	if el, ok := p.slots[obj.Key]; ok {
		el.Value.(*slot).referenced = true
	}
}

// OnInsert places the key on the ring behind the hand with its bit clear.
func (p *Policy) OnInsert(state *cachesim.State, obj cachesim.Object) {
	s := &slot{key: obj.Key}
	var el *list.Element
	if p.hand != nil {
		el = p.ring.InsertBefore(s, p.hand)
	} else {
		el = p.ring.PushBack(s)
	}
	p.slots[obj.Key] = el
}

// OnEvict removes the evicted key's slot, advancing the hand off it first.
func (p *Policy) OnEvict(state *cachesim.State, incoming, evicted cachesim.Object) {
	el, ok := p.slots[evicted.Key]
	if !ok {
		return
	}
	if p.hand == el {
		p.hand = el.Next()
	}
	p.ring.Remove(el)
	delete(p.slots, evicted.Key)
}
