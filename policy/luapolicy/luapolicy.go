// Package luapolicy runs eviction policies written as Lua scripts.
//
// A script defines four global functions with the corpus's canonical shape:
//
//	function evict(cache_snapshot, obj) ... return victim_key end
//	function update_after_hit(cache_snapshot, obj) end
//	function update_after_insert(cache_snapshot, obj) end
//	function update_after_evict(cache_snapshot, obj, evicted_obj) end
//
// cache_snapshot is a table with fields cache (key -> {key=, size=}),
// capacity, size, access_count, hit_count and miss_count; obj and
// evicted_obj are {key=, size=} tables. Scripts keep their metadata in
// plain Lua globals, which are private to the policy instance: every
// instance owns its own interpreter state, so runs stay isolated.
//
// Scripts must be deterministic: math.random and friends disqualify a
// policy the same way they would in a native implementation.
package luapolicy

import (
	"fmt"
	"os"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/policy"
)

// Compile-time check that Policy implements cachesim.Policy.
var _ cachesim.Policy = (*Policy)(nil)

// Policy adapts a Lua script to the cachesim.Policy contract.
type Policy struct {
	state *lua.LState

	evictFn   lua.LValue
	hitFn     lua.LValue
	insertFn  lua.LValue
	evictedFn lua.LValue

	err error
}

// New loads a policy from Lua source.
func New(script string) (*Policy, error) {
	L := lua.NewState()
	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("luapolicy: loading script: %w", err)
	}
	return bind(L)
}

// NewFromFile loads a policy from a Lua script file.
func NewFromFile(path string) (*Policy, error) {
	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("luapolicy: loading %s: %w", path, err)
	}
	return bind(L)
}

// RegisterFile validates the script once and registers it in the policy
// registry under name. Each constructed instance re-executes the script in
// a fresh interpreter.
func RegisterFile(name, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("luapolicy: %w", err)
	}
	p, err := NewFromFile(path)
	if err != nil {
		return err
	}
	p.Close()

	policy.Register(name, func() cachesim.Policy {
		p, err := NewFromFile(path)
		if err != nil {
			// Validated above; failing now means the file changed under us.
			return &Policy{err: err}
		}
		return p
	})
	return nil
}

// bind resolves the four policy functions from the script's globals.
func bind(L *lua.LState) (*Policy, error) {
	p := &Policy{
		state:     L,
		evictFn:   L.GetGlobal("evict"),
		hitFn:     L.GetGlobal("update_after_hit"),
		insertFn:  L.GetGlobal("update_after_insert"),
		evictedFn: L.GetGlobal("update_after_evict"),
	}
	for name, fn := range map[string]lua.LValue{
		"evict":               p.evictFn,
		"update_after_hit":    p.hitFn,
		"update_after_insert": p.insertFn,
		"update_after_evict":  p.evictedFn,
	} {
		if _, ok := fn.(*lua.LFunction); !ok {
			L.Close()
			return nil, fmt.Errorf("luapolicy: script does not define function %q", name)
		}
	}
	return p, nil
}

// Close releases the interpreter. The policy must not be used afterwards.
func (p *Policy) Close() {
	if p.state != nil {
		p.state.Close()
	}
}

// Err returns the first script error encountered, if any. A script error
// during victim selection surfaces as a ContractError from the simulator;
// Err carries the underlying Lua failure for diagnosis.
func (p *Policy) Err() error {
	return p.err
}

// SelectVictim calls the script's evict function. On script failure it
// returns an empty key, which the simulator rejects as a contract
// violation; the cause is retained in Err.
func (p *Policy) SelectVictim(state *cachesim.State, incoming cachesim.Object) string {
	if p.err != nil {
		return ""
	}
	if err := p.state.CallByParam(lua.P{
		Fn:      p.evictFn,
		NRet:    1,
		Protect: true,
	}, p.snapshot(state), p.object(incoming)); err != nil {
		p.err = fmt.Errorf("luapolicy: evict: %w", err)
		return ""
	}
	ret := p.state.Get(-1)
	p.state.Pop(1)

	key, ok := ret.(lua.LString)
	if !ok {
		p.err = fmt.Errorf("luapolicy: evict returned %s, want string", ret.Type())
		return ""
	}
	return string(key)
}

// OnHit calls update_after_hit.
func (p *Policy) OnHit(state *cachesim.State, obj cachesim.Object) {
	p.call(p.hitFn, "update_after_hit", p.snapshot(state), p.object(obj))
}

// OnInsert calls update_after_insert.
func (p *Policy) OnInsert(state *cachesim.State, obj cachesim.Object) {
	p.call(p.insertFn, "update_after_insert", p.snapshot(state), p.object(obj))
}

// OnEvict calls update_after_evict.
func (p *Policy) OnEvict(state *cachesim.State, incoming, evicted cachesim.Object) {
	p.call(p.evictedFn, "update_after_evict", p.snapshot(state), p.object(incoming), p.object(evicted))
}

func (p *Policy) call(fn lua.LValue, name string, args ...lua.LValue) {
	if p.err != nil {
		return
	}
	if err := p.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		p.err = fmt.Errorf("luapolicy: %s: %w", name, err)
	}
}

// object converts an Object to a {key=, size=} table.
func (p *Policy) object(obj cachesim.Object) *lua.LTable {
	t := p.state.NewTable()
	t.RawSetString("key", lua.LString(obj.Key))
	t.RawSetString("size", lua.LNumber(obj.Size))
	return t
}

// snapshot converts the cache state to the cache_snapshot table. Residents
// are inserted in sorted key order so that scripts iterating with pairs see
// a deterministic order regardless of Go's map iteration.
func (p *Policy) snapshot(state *cachesim.State) *lua.LTable {
	residents := state.Cache()
	keys := make([]string, 0, len(residents))
	for key := range residents {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	cache := p.state.NewTable()
	for _, key := range keys {
		cache.RawSetString(key, p.object(residents[key]))
	}

	t := p.state.NewTable()
	t.RawSetString("cache", cache)
	t.RawSetString("capacity", lua.LNumber(state.Capacity()))
	t.RawSetString("size", lua.LNumber(state.Size()))
	t.RawSetString("access_count", lua.LNumber(state.AccessCount()))
	t.RawSetString("hit_count", lua.LNumber(state.HitCount()))
	t.RawSetString("miss_count", lua.LNumber(state.MissCount()))
	return t
}
