package trace

import (
	"fmt"
	"math/rand"

	"github.com/cachelab/cachesim"
)

// GeneratorSpec describes a synthetic trace. Generation is seeded and
// reproducible; it exists for tests, examples and benchmarks, never for
// the engine itself.
type GeneratorSpec struct {
	// Keys is the number of distinct keys.
	Keys int

	// Requests is the trace length.
	Requests int

	// MaxSize caps the per-key object size. Sizes are drawn uniformly in
	// [1, MaxSize] once per key and reused for every access to that key.
	// Zero or one yields unit-sized objects.
	MaxSize int64

	// Skew is the zipf exponent shaping key popularity. Must be > 1;
	// values near 1 are close to uniform, larger values concentrate
	// accesses on few keys.
	Skew float64

	// Seed seeds the generator.
	Seed int64
}

// Generate produces a synthetic trace with zipf-distributed key popularity.
func Generate(spec GeneratorSpec) []cachesim.Request {
	if spec.Keys <= 0 || spec.Requests <= 0 {
		return nil
	}
	if spec.Skew <= 1 {
		spec.Skew = 1.2
	}

	rng := rand.New(rand.NewSource(spec.Seed))
	zipf := rand.NewZipf(rng, spec.Skew, 1, uint64(spec.Keys-1))

	sizes := make([]int64, spec.Keys)
	for i := range sizes {
		if spec.MaxSize > 1 {
			sizes[i] = 1 + rng.Int63n(spec.MaxSize)
		} else {
			sizes[i] = 1
		}
	}

	requests := make([]cachesim.Request, spec.Requests)
	for i := range requests {
		id := zipf.Uint64()
		requests[i] = cachesim.Request{
			Key:  fmt.Sprintf("obj-%06d", id),
			Size: sizes[id],
		}
	}
	return requests
}
