package cachesim

// State is the authoritative cache state for a single simulation run:
// the residency map, the capacity, the current resident size, and the
// monotonic access/hit/miss counters.
//
// State is mutated exclusively by the Simulator. The mutating methods are
// unexported so that a Policy, which lives outside this package, can only
// observe state; all policy-visible mutation arrives through the OnHit,
// OnInsert and OnEvict notifications.
type State struct {
	cache    map[string]Object
	capacity int64
	size     int64

	accessCount uint64
	hitCount    uint64
	missCount   uint64
}

// newState creates an empty State with the given capacity.
// The caller validates capacity > 0.
func newState(capacity int64) *State {
	return &State{
		cache:    make(map[string]Object),
		capacity: capacity,
	}
}

// Cache returns the residency map, keyed by object key.
//
// The map is shared with the engine and must be treated as read-only;
// a policy that mutates it directly violates its contract and the run is
// aborted with a ContractError. Iteration order is not deterministic;
// policies that scan it must impose their own tie-breaking.
func (s *State) Cache() map[string]Object {
	return s.cache
}

// Capacity returns the fixed maximum total size of the cache.
func (s *State) Capacity() int64 {
	return s.capacity
}

// Size returns the sum of the sizes of all resident objects.
func (s *State) Size() int64 {
	return s.size
}

// AccessCount returns the number of requests processed so far.
func (s *State) AccessCount() uint64 {
	return s.accessCount
}

// HitCount returns the number of requests that were hits.
func (s *State) HitCount() uint64 {
	return s.hitCount
}

// MissCount returns the number of requests that were misses.
func (s *State) MissCount() uint64 {
	return s.missCount
}

// Contains reports whether key is resident.
func (s *State) Contains(key string) bool {
	_, ok := s.cache[key]
	return ok
}

// Lookup returns the resident object for key, if any.
func (s *State) Lookup(key string) (Object, bool) {
	obj, ok := s.cache[key]
	return obj, ok
}

// recordAccess bumps the access counter and the hit or miss counter.
func (s *State) recordAccess(hit bool) {
	s.accessCount++
	if hit {
		s.hitCount++
	} else {
		s.missCount++
	}
}

// admit inserts obj into the cache. The simulator must have freed enough
// room first; calling admit without room is an engine bug, not a policy bug.
func (s *State) admit(obj Object) error {
	if _, ok := s.cache[obj.Key]; ok {
		return &ContractError{Key: obj.Key, Reason: "admit: object already resident"}
	}
	if s.size+obj.Size > s.capacity {
		return &ContractError{Key: obj.Key, Reason: "admit: insufficient capacity"}
	}
	s.cache[obj.Key] = obj
	s.size += obj.Size
	return nil
}

// remove deletes key from the cache and returns the removed object.
func (s *State) remove(key string) (Object, error) {
	obj, ok := s.cache[key]
	if !ok {
		return Object{}, &ContractError{Key: key, Reason: "remove: object not resident"}
	}
	delete(s.cache, key)
	s.size -= obj.Size
	return obj, nil
}
