package cachesim

// Policy is the pluggable eviction decision unit. A Policy owns whatever
// private per-key metadata it needs (frequencies, recency lists, scores)
// and keeps it consistent with the authoritative State through the three
// notification hooks.
//
// Implementations must be deterministic: given the same trace and the same
// starting state, every run must pick the same victims. No source of
// randomness is permitted. Instances are not safe for concurrent use and
// must not be shared between simulation runs; construct a fresh instance
// per run.
//
// Metadata lifecycle is tied 1:1 to residency: create metadata for a key in
// OnInsert, refresh it in OnHit, and purge it in OnEvict. Leaving metadata
// behind for an evicted key is a correctness bug: a later re-insert of the
// same key must behave like a fresh insert.
type Policy interface {
	// SelectVictim returns the key of the resident object to evict so that
	// incoming can be admitted. The returned key must be present in
	// state.Cache(); returning anything else aborts the run with a
	// ContractError. The simulator never calls SelectVictim on an empty
	// cache, and re-invokes it against the updated state after every
	// eviction, so a single admission may select several victims.
	//
	// SelectVictim must not mutate state.
	SelectVictim(state *State, incoming Object) string

	// OnHit is called once per cache hit, after the access has been
	// counted, with the resident object that was hit.
	OnHit(state *State, obj Object)

	// OnInsert is called once per admitted object, after it has been
	// inserted into state.
	OnInsert(state *State, obj Object)

	// OnEvict is called once per eviction, after evicted has been removed
	// from state and before incoming is admitted. The policy must drop all
	// metadata for evicted.Key here; it may also rebalance metadata for the
	// remaining residents.
	OnEvict(state *State, incoming, evicted Object)
}
