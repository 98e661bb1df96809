package cachesim

import (
	"errors"
	"fmt"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrNoPolicy indicates no eviction policy was provided.
	ErrNoPolicy = errors.New("cachesim: no policy provided")

	// ErrBadCapacity indicates a non-positive cache capacity.
	ErrBadCapacity = errors.New("cachesim: capacity must be positive")

	// ErrBadObject indicates a request with an empty key or non-positive size.
	ErrBadObject = errors.New("cachesim: object must have a key and positive size")
)

// ContractError reports a violation of the engine/policy contract: a victim
// that is not resident, or a hook that mutated the authoritative state
// directly instead of through the engine. Contract errors are fatal; they
// abort the run, because silently working around them would mask a bug in
// the very policy under evaluation.
type ContractError struct {
	// RequestIndex is the zero-based index of the trace request being
	// processed when the violation occurred.
	RequestIndex uint64

	// Key is the offending key, when one is involved.
	Key string

	// Reason describes the violated clause.
	Reason string
}

func (e *ContractError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cachesim: contract violation at request %d: %s", e.RequestIndex, e.Reason)
	}
	return fmt.Sprintf("cachesim: contract violation at request %d: %s (key %q)", e.RequestIndex, e.Reason, e.Key)
}

// IsContractViolation reports whether err is (or wraps) a ContractError.
func IsContractViolation(err error) bool {
	var ce *ContractError
	return errors.As(err, &ce)
}
