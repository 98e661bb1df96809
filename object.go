package cachesim

// Object is a cached object: an opaque key plus the amount of cache
// capacity the object consumes while resident.
//
// Objects are immutable values. The simulator owns the resident copy;
// policies receive copies and cannot affect residency through them.
type Object struct {
	// Key uniquely identifies the object within a trace.
	Key string

	// Size is the cost of keeping the object resident, in capacity units
	// (bytes for byte-addressed traces, 1 for unit-sized traces).
	// Must be positive.
	Size int64
}

// valid reports whether the object satisfies the engine's preconditions.
func (o Object) valid() bool {
	return o.Key != "" && o.Size > 0
}
