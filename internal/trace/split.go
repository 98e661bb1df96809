package trace

import (
	"github.com/cespare/xxhash/v2"

	"github.com/cachelab/cachesim"
)

// Split divides a trace into a train prefix and a test suffix. trainFrac
// is clamped to [0, 1]. The split is positional: request order inside each
// half is preserved, mirroring how traces are divided for held-out
// evaluation.
func Split(requests []cachesim.Request, trainFrac float64) (train, test []cachesim.Request) {
	if trainFrac < 0 {
		trainFrac = 0
	}
	if trainFrac > 1 {
		trainFrac = 1
	}
	cut := int(float64(len(requests)) * trainFrac)
	return requests[:cut], requests[cut:]
}

// SampleByKey returns the subsequence of requests whose key hashes into the
// sampled fraction. Sampling by key rather than by request keeps every
// retained key's full reuse sequence intact, so miss ratios on the sample
// stay meaningful. Deterministic: the same key is always kept or dropped.
func SampleByKey(requests []cachesim.Request, rate float64) []cachesim.Request {
	if rate >= 1 {
		return requests
	}
	if rate <= 0 {
		return nil
	}

	// Keys whose hash falls below the threshold are kept.
	threshold := uint64(rate * float64(^uint64(0)))

	var sampled []cachesim.Request
	for _, req := range requests {
		if xxhash.Sum64String(req.Key) <= threshold {
			sampled = append(sampled, req)
		}
	}
	return sampled
}
